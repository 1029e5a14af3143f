package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/pwtools/pwrun/internal/executor"
	"github.com/pwtools/pwrun/pkg/pwsdk"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printWorkflowTable(w io.Writer, workflows []pwsdk.WorkflowInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tTYPE\tDESCRIPTION")
	for _, wf := range workflows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			wf.Name, orDash(wf.DisplayName), wf.Type, truncate(wf.Description, 50))
	}
	tw.Flush()
	fmt.Fprintf(w, "\nTotal: %d workflow(s)\n", len(workflows))
}

func printRunInfo(w io.Writer, run *pwsdk.RunInfo) {
	fmt.Fprintf(w, "Workflow: %s\n", run.WorkflowName)
	fmt.Fprintf(w, "Run: #%d\n", run.Number)
	fmt.Fprintf(w, "Status: %s\n", run.Status)
	fmt.Fprintf(w, "Created: %s\n", run.CreatedAt.Format(time.RFC3339))
	if run.CompletedAt != nil {
		fmt.Fprintf(w, "Completed: %s\n", run.CompletedAt.Format(time.RFC3339))
	}
}

// resultJSON is the machine-readable form of an execution result.
type resultJSON struct {
	WorkflowName string  `json:"workflow_name"`
	RunNumber    int     `json:"run_number"`
	Outcome      string  `json:"outcome,omitempty"`
	StartedAt    string  `json:"started_at"`
	CompletedAt  *string `json:"completed_at,omitempty"`
	DurationSecs float64 `json:"duration_seconds,omitempty"`
	Success      bool    `json:"success"`
	Error        string  `json:"error,omitempty"`
	LocalURL     string  `json:"local_url,omitempty"`
}

func printResult(w io.Writer, result executor.ExecutionResult, asJSON bool, localPort int) error {
	if asJSON {
		out := resultJSON{
			WorkflowName: result.WorkflowName,
			RunNumber:    result.RunNumber,
			Outcome:      string(result.Outcome),
			StartedAt:    result.StartedAt.Format(time.RFC3339),
			DurationSecs: result.Duration.Seconds(),
			Success:      result.Succeeded(),
			Error:        result.ErrorMessage,
		}
		if result.CompletedAt != nil {
			s := result.CompletedAt.Format(time.RFC3339)
			out.CompletedAt = &s
		}
		if localPort > 0 {
			out.LocalURL = fmt.Sprintf("http://localhost:%d", localPort)
		}
		return printJSON(w, out)
	}

	fmt.Fprintln(w)
	switch {
	case result.Outcome == "":
		fmt.Fprintln(w, "Submitted; not waiting for completion")
	case result.Succeeded():
		fmt.Fprintln(w, "Workflow completed successfully")
	case result.ErrorMessage != "":
		fmt.Fprintf(w, "Workflow %s: %s\n", result.Outcome, result.ErrorMessage)
	default:
		fmt.Fprintf(w, "Workflow %s\n", result.Outcome)
	}

	fmt.Fprintf(w, "  Run: #%d\n", result.RunNumber)
	if result.Duration > 0 && result.Outcome != "" {
		fmt.Fprintf(w, "  Duration: %.1fs\n", result.Duration.Seconds())
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	if s == "" {
		return "-"
	}
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
