package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pwtools/pwrun/pkg/pwsdk"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stored API credential",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an API key in the OS keyring",
	Long: `Prompt for an API key and store it in the OS keyring, scoped to the
configured base URL. The PW_API_KEY environment variable always takes
precedence over the stored key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}

		key, err := readAPIKey()
		if err != nil {
			return err
		}
		if key == "" {
			return errors.New("no API key entered")
		}

		if err := pwsdk.SaveAPIKey(cfg.BaseURL, key); err != nil {
			return fmt.Errorf("storing API key: %w", err)
		}

		fmt.Printf("API key stored for %s\n", cfg.BaseURL)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}

		if err := pwsdk.DeleteAPIKey(cfg.BaseURL); err != nil {
			return fmt.Errorf("removing API key: %w", err)
		}

		fmt.Printf("API key removed for %s\n", cfg.BaseURL)
		return nil
	},
}

// readAPIKey prompts without echoing when stdin is a terminal, so keys don't
// end up in scrollback.
func readAPIKey() (string, error) {
	fmt.Print("API key: ")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
}
