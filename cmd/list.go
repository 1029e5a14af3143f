package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available workflows in the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient(cmd)
		if err != nil {
			return err
		}

		workflows, err := client.ListWorkflows(cmd.Context())
		if err != nil {
			return err
		}

		if listJSON {
			return printJSON(os.Stdout, workflows)
		}

		if len(workflows) == 0 {
			fmt.Println("No workflows found.")
			return nil
		}

		printWorkflowTable(os.Stdout, workflows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
}
