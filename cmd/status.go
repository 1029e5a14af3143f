package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status <workflow> <run-number>",
	Short: "Check the status of a workflow run",
	Example: `  pwrun status hello-world 42`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		workflowName := args[0]
		runNumber, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("run number must be an integer, got %q", args[1])
		}

		client, _, err := newClient(cmd)
		if err != nil {
			return err
		}

		run, err := client.GetRunStatus(cmd.Context(), workflowName, runNumber)
		if err != nil {
			return err
		}

		if statusJSON {
			return printJSON(os.Stdout, run)
		}

		printRunInfo(os.Stdout, run)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}
