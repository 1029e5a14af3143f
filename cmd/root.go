package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pwtools/pwrun/internal/executor"
	"github.com/pwtools/pwrun/internal/interactive"
	"github.com/pwtools/pwrun/pkg/pwlog"
	"github.com/pwtools/pwrun/pkg/pwsdk"
)

type contextKey string

const (
	configContextKey contextKey = "pwrunconfig"
	loggerContextKey contextKey = "pwrunlogger"
)

var (
	cfgFile string
	verbose bool
	rootCmd = &cobra.Command{
		Use:   "pwrun",
		Short: "Run and monitor workflows on the PW orchestration platform",
		Long: `pwrun is a command-line client for the PW orchestration platform.
It lists the workflows available in your account, submits batch or session
runs and polls them to completion, and can bridge a running interactive
session to your machine over an SSH tunnel.

Run without arguments for interactive mode. The API key is read from the
PW_API_KEY environment variable, the config file, or the OS keyring
(see 'pwrun auth login').`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Pick up a .env file when present, same as the platform tooling.
			_ = godotenv.Load()

			log := pwlog.NewDefault()
			if verbose {
				log = pwlog.NewVerbose()
			}

			cfg, err := pwsdk.LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			if file := cfg.ConfigFileUsed(); file != "" {
				log.Debug("loaded config", "file", file)
			}

			if err := cfg.Viper().BindPFlags(cmd.Flags()); err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), configContextKey, cfg)
			ctx = context.WithValue(ctx, loggerContextKey, log)
			cmd.SetContext(ctx)

			return nil
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand: interactive mode.
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New("interactive mode needs a terminal; see 'pwrun --help' for subcommands")
			}

			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}

			session := &interactive.Session{
				In:      os.Stdin,
				Out:     os.Stdout,
				Catalog: client,
				Runner:  executor.New(newRunGateway(client, executor.WorkflowBatch, getLogger(cmd)), pollConfig()),
			}
			return session.Run(cmd.Context())
		},
	}
)

// GetConfig retrieves the Config from the command context.
func GetConfig(cmd *cobra.Command) (*pwsdk.Config, error) {
	cfg, ok := cmd.Context().Value(configContextKey).(*pwsdk.Config)
	if !ok {
		return nil, errors.New("no config in context")
	}
	return cfg, nil
}

// getLogger retrieves the logger from the command context.
func getLogger(cmd *cobra.Command) *pwlog.Logger {
	if log, ok := cmd.Context().Value(loggerContextKey).(*pwlog.Logger); ok {
		return log
	}
	return pwlog.NewDefault()
}

// newClient builds the API client from the resolved config and credentials.
func newClient(cmd *cobra.Command) (*pwsdk.Client, *pwsdk.Config, error) {
	cfg, err := GetConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	client, err := pwsdk.NewClient(cfg.BaseURL, pwsdk.ResolveAPIKey(cfg))
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// pollConfig resolves the polling schedule, honoring PW_POLL_* overrides.
func pollConfig() executor.PollConfig {
	settings, err := pwsdk.LoadPollSettings()
	if err != nil {
		return executor.DefaultPollConfig()
	}
	return executor.PollConfig{
		InitialInterval: settings.InitialInterval,
		MaxInterval:     settings.MaxInterval,
		BackoffFactor:   settings.BackoffFactor,
		FailureBudget:   settings.FailureBudget,
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", friendlyError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML). Searches: pwrun.yaml, .pwrun/config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.SilenceErrors = true
}
