// Package interactive implements the prompting flow used when pwrun is
// invoked without a subcommand. It is a thin presentation layer over the
// executor's public contract.
package interactive

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pwtools/pwrun/internal/executor"
	"github.com/pwtools/pwrun/pkg/pwsdk"
)

// Catalog lists the workflows available to the user.
type Catalog interface {
	ListWorkflows(ctx context.Context) ([]pwsdk.WorkflowInfo, error)
}

// Runner executes a selected workflow.
type Runner interface {
	Execute(ctx context.Context, spec executor.JobSpec, onStatus executor.StatusFunc) (executor.ExecutionResult, error)
}

// Session drives one interactive run: select a workflow, collect inputs,
// confirm, execute with live status updates.
type Session struct {
	In      io.Reader
	Out     io.Writer
	Catalog Catalog
	Runner  Runner
	Timeout time.Duration

	reader *bufio.Reader
	eof    bool
}

// Run executes the interactive flow until completion or the user quits.
func (s *Session) Run(ctx context.Context) error {
	s.reader = bufio.NewReader(s.In)
	if s.Timeout <= 0 {
		s.Timeout = time.Hour
	}

	fmt.Fprintf(s.Out, "\npwrun - Interactive Mode\n\n")

	workflow, err := s.selectWorkflow(ctx)
	if err != nil {
		return err
	}
	if workflow == nil {
		return nil
	}

	fmt.Fprintf(s.Out, "\nSelected: %s\n", workflow.Name)
	if workflow.Description != "" {
		fmt.Fprintf(s.Out, "Description: %s\n", workflow.Description)
	}

	inputs, quit, err := s.collectInputs()
	if err != nil {
		return err
	}
	if quit {
		fmt.Fprintln(s.Out, "Cancelled.")
		return nil
	}

	fmt.Fprintf(s.Out, "\nReady to execute:\n")
	fmt.Fprintf(s.Out, "  Workflow: %s\n", workflow.Name)
	fmt.Fprintf(s.Out, "  Inputs: %d parameter(s)\n", len(inputs))

	if !s.confirm("\nProceed? [Y/n] ") {
		fmt.Fprintln(s.Out, "Cancelled.")
		return nil
	}

	fmt.Fprintln(s.Out)
	return s.execute(ctx, workflow.Name, inputs)
}

func (s *Session) selectWorkflow(ctx context.Context) (*pwsdk.WorkflowInfo, error) {
	fmt.Fprintln(s.Out, "Fetching workflows...")
	workflows, err := s.Catalog.ListWorkflows(ctx)
	if err != nil {
		return nil, err
	}
	if len(workflows) == 0 {
		fmt.Fprintln(s.Out, "No workflows found in this account.")
		return nil, nil
	}

	tw := tabwriter.NewWriter(s.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tDISPLAY NAME\tTYPE")
	for i, w := range workflows {
		display := w.DisplayName
		if display == "" {
			display = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, w.Name, display, w.Type)
	}
	tw.Flush()
	fmt.Fprintln(s.Out)

	for {
		selection := s.prompt("Select workflow number (or 'q' to quit): ")
		if s.eof || strings.EqualFold(selection, "q") {
			return nil, nil
		}
		if selection == "" {
			selection = "1"
		}

		idx, err := strconv.Atoi(selection)
		if err != nil || idx < 1 || idx > len(workflows) {
			fmt.Fprintf(s.Out, "Please enter a number between 1 and %d\n", len(workflows))
			continue
		}
		return &workflows[idx-1], nil
	}
}

func (s *Session) collectInputs() (map[string]any, bool, error) {
	fmt.Fprintln(s.Out, "\nHow do you want to provide inputs?")
	fmt.Fprintln(s.Out, "  1. Load from JSON file")
	fmt.Fprintln(s.Out, "  2. Enter manually (key=value)")
	fmt.Fprintln(s.Out, "  3. Run with empty inputs")

	for {
		choice := s.prompt("Select [1/2/3/q]: ")
		if s.eof {
			return nil, true, nil
		}
		switch choice {
		case "", "1":
			inputs, quit := s.inputsFromFile()
			if quit {
				continue
			}
			return inputs, false, nil
		case "2":
			return s.inputsManually(), false, nil
		case "3":
			return map[string]any{}, false, nil
		case "q", "Q":
			return nil, true, nil
		default:
			fmt.Fprintln(s.Out, "Please choose 1, 2, 3 or q")
		}
	}
}

func (s *Session) inputsFromFile() (map[string]any, bool) {
	for {
		pathStr := s.prompt("Input file path (or 'q' to go back): ")
		if s.eof || strings.EqualFold(pathStr, "q") {
			return nil, true
		}

		if strings.HasPrefix(pathStr, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				pathStr = filepath.Join(home, pathStr[2:])
			}
		}

		data, err := os.ReadFile(pathStr)
		if err != nil {
			fmt.Fprintf(s.Out, "Cannot read %s: %v\n", pathStr, err)
			continue
		}

		inputs := map[string]any{}
		if err := json.Unmarshal(data, &inputs); err != nil {
			fmt.Fprintf(s.Out, "Invalid JSON: %v\n", err)
			continue
		}

		fmt.Fprintf(s.Out, "Loaded %d top-level parameter(s)\n", len(inputs))
		return inputs, false
	}
}

func (s *Session) inputsManually() map[string]any {
	fmt.Fprintln(s.Out, "\nEnter inputs as key=value (empty line to finish):")
	fmt.Fprintln(s.Out, "  Use dot notation for nested: hello.message=test")

	inputs := map[string]any{}
	for {
		line := s.prompt("> ")
		if line == "" {
			break
		}

		key, raw, found := strings.Cut(line, "=")
		if !found || key == "" {
			fmt.Fprintln(s.Out, "Format: key=value")
			continue
		}

		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		setNested(inputs, strings.Split(strings.TrimSpace(key), "."), value)
		fmt.Fprintf(s.Out, "  Set %s\n", key)
	}
	return inputs
}

func (s *Session) execute(ctx context.Context, workflowName string, inputs map[string]any) error {
	fmt.Fprintf(s.Out, "Submitting %s...\n", workflowName)

	start := time.Now()
	onStatus := func(st executor.RunStatus) {
		fmt.Fprintf(s.Out, "  Status: %s (%.0fs)\n", st.Raw, time.Since(start).Seconds())
	}

	spec := executor.JobSpec{
		WorkflowName: workflowName,
		Inputs:       inputs,
		Type:         executor.WorkflowBatch,
		Timeout:      s.Timeout,
		Wait:         true,
	}

	result, err := s.Runner.Execute(ctx, spec, onStatus)
	if err != nil {
		return err
	}

	fmt.Fprintln(s.Out)
	if result.Succeeded() {
		fmt.Fprintln(s.Out, "Workflow completed successfully")
	} else {
		fmt.Fprintf(s.Out, "Workflow %s\n", result.Outcome)
	}
	fmt.Fprintf(s.Out, "  Run: #%d\n", result.RunNumber)
	if result.Duration > 0 {
		fmt.Fprintf(s.Out, "  Duration: %.1fs\n", result.Duration.Seconds())
	}
	return nil
}

func (s *Session) prompt(label string) string {
	if s.eof {
		return ""
	}
	fmt.Fprint(s.Out, label)
	line, err := s.reader.ReadString('\n')
	if err != nil && line == "" {
		s.eof = true
		return ""
	}
	return strings.TrimSpace(line)
}

func (s *Session) confirm(label string) bool {
	answer := s.prompt(label)
	if s.eof {
		return false
	}
	return answer == "" || strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
}

func setNested(m map[string]any, keys []string, value any) {
	for _, key := range keys[:len(keys)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[key] = next
		}
		m = next
	}
	m[keys[len(keys)-1]] = value
}
