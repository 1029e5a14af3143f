package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/pwtools/pwrun/internal/executor"
	"github.com/pwtools/pwrun/internal/tunnel"
	"github.com/pwtools/pwrun/pkg/pwsdk"
)

var (
	runInputFile string
	runParams    []string
	runType      string
	runTimeout   float64
	runNoWait    bool
	runJSON      bool
	runTunnel    bool
	runLocalPort int
)

var runCmd = &cobra.Command{
	Use:   "run <workflow>",
	Short: "Run a workflow with inputs and wait for the result",
	Long: `Submit a workflow run and poll it until it finishes, times out, or is
cancelled with Ctrl+C. Session workflows stay running; with --tunnel the
session endpoint is forwarded to a local port once it becomes ready.`,
	Example: `  # Batch workflow (runs to completion)
  pwrun run my-batch-job --input inputs/job.json

  # Interactive session workflow
  pwrun run helloworld --input inputs/helloworld.json --type session

  # Session with SSH tunnel for local access
  pwrun run helloworld --input inputs/helloworld.json --type session --tunnel`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workflowName := args[0]

		inputs, err := buildInputs(runInputFile, runParams)
		if err != nil {
			return err
		}
		if len(inputs) == 0 && runInputFile == "" {
			return fmt.Errorf("no inputs provided: use --input FILE or -p key=value")
		}

		var wfType executor.WorkflowType
		switch runType {
		case "batch":
			wfType = executor.WorkflowBatch
		case "session":
			wfType = executor.WorkflowSession
		default:
			return fmt.Errorf("invalid --type %q: must be batch or session", runType)
		}

		if runTunnel && wfType != executor.WorkflowSession {
			return fmt.Errorf("--tunnel can only be used with --type session")
		}

		client, cfg, err := newClient(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		spec := executor.JobSpec{
			WorkflowName: workflowName,
			Inputs:       inputs,
			Type:         wfType,
			Timeout:      time.Duration(runTimeout * float64(time.Second)),
			Wait:         !runNoWait,
		}

		log := getLogger(cmd)
		log.Debug("resolved job",
			"workflow", workflowName, "type", string(wfType),
			"timeout", spec.Timeout.String(), "wait", spec.Wait)

		runner := executor.New(newRunGateway(client, wfType, log), pollConfig())

		var coord *tunnel.Coordinator
		if runTunnel {
			coord = tunnel.NewCoordinator(&tunnel.SSHStarter{User: tunnelUser(inputs, cfg)}, runLocalPort)
		}

		if !runJSON {
			fmt.Printf("Submitting %s workflow: %s\n", wfType, workflowName)
		}

		start := time.Now()
		var announce sync.Once
		onStatus := func(st executor.RunStatus) {
			if !runJSON {
				fmt.Printf("  Status: %s (%.0fs)\n", st.Raw, time.Since(start).Seconds())
			}
			if coord == nil {
				return
			}
			coord.Observe(st)
			if coord.State() == tunnel.StateActive {
				announce.Do(func() {
					if !runJSON {
						fmt.Println()
						fmt.Println("Tunnel established!")
						fmt.Printf("  Access your session at: http://localhost:%d\n", coord.BoundPort())
						fmt.Println("  Press Ctrl+C to close the tunnel and exit")
						fmt.Println()
					}
				})
			}
		}

		var result executor.ExecutionResult
		var execErr error
		localPort := 0
		if coord != nil {
			result, execErr = executeWithTunnel(ctx, runner, spec, coord, onStatus)
			localPort = coord.BoundPort()
		} else {
			result, execErr = runner.Execute(ctx, spec, onStatus)
		}

		if err := printResult(os.Stdout, result, runJSON, localPort); err != nil {
			return err
		}
		if execErr != nil && !runJSON {
			fmt.Fprintf(os.Stderr, "Error: %s\n", friendlyError(execErr))
		}

		if runNoWait && result.Outcome == "" {
			return nil
		}
		if !result.Succeeded() {
			os.Exit(1)
		}
		return nil
	},
}

// jobRunner is the executor capability run needs. An interface so the tunnel
// wiring can be exercised with a fake.
type jobRunner interface {
	Execute(ctx context.Context, spec executor.JobSpec, onStatus executor.StatusFunc) (executor.ExecutionResult, error)
}

// executeWithTunnel runs the job with the coordinator subscribed to its
// status stream. A coordinator failure such as a port conflict invalidates
// the whole execution: it cancels the polling loop instead of letting it run
// to the deadline, and becomes the reported error.
func executeWithTunnel(ctx context.Context, runner jobRunner, spec executor.JobSpec, coord *tunnel.Coordinator, onStatus executor.StatusFunc) (executor.ExecutionResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	coord.Run(ctx)
	go func() {
		select {
		case <-coord.Done():
			if coord.Err() != nil {
				cancel()
			}
		case <-ctx.Done():
		}
	}()

	result, execErr := runner.Execute(ctx, spec, onStatus)
	coord.Close()

	if err := coord.Err(); err != nil {
		result.Outcome = executor.OutcomeError
		result.ErrorMessage = err.Error()
		return result, err
	}
	return result, execErr
}

// tunnelUser picks the platform username for the ssh destination: the run
// inputs win, then config, then the local username.
func tunnelUser(inputs map[string]any, cfg *pwsdk.Config) string {
	if resource, ok := inputs["resource"].(map[string]any); ok {
		if user, ok := resource["user"].(string); ok && user != "" {
			return user
		}
	}
	if cfg.User != "" {
		return cfg.User
	}
	return os.Getenv("USER")
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runInputFile, "input", "i", "", "JSON input file")
	runCmd.Flags().StringArrayVarP(&runParams, "param", "p", nil, "Input parameter as key=value (dot notation for nesting)")
	runCmd.Flags().StringVar(&runType, "type", "batch", "Workflow type: batch (runs to completion) or session (interactive, stays running)")
	runCmd.Flags().Float64VarP(&runTimeout, "timeout", "t", 3600, "Timeout in seconds")
	runCmd.Flags().BoolVar(&runNoWait, "no-wait", false, "Submit and exit without waiting for completion")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Output result as JSON")
	runCmd.Flags().BoolVar(&runTunnel, "tunnel", false, "Create an SSH tunnel to the session (session workflows only)")
	runCmd.Flags().IntVar(&runLocalPort, "local-port", 0, "Local port for the SSH tunnel (default: the session's advertised port)")
}
