package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/pwtools/pwrun/internal/executor"
	"github.com/pwtools/pwrun/pkg/pwlog"
	"github.com/pwtools/pwrun/pkg/pwsdk"
)

// runGateway adapts the API client to the executor's Gateway interface. For
// session workflows it resolves the session endpoint while the run is live so
// readiness shows up in status snapshots.
type runGateway struct {
	client *pwsdk.Client
	typ    executor.WorkflowType
	log    *pwlog.Logger
}

func newRunGateway(client *pwsdk.Client, typ executor.WorkflowType, log *pwlog.Logger) runGateway {
	return runGateway{client: client, typ: typ, log: log}
}

func (g runGateway) Submit(ctx context.Context, workflow string, inputs map[string]any) (executor.RunHandle, error) {
	run, err := g.client.SubmitWorkflow(ctx, workflow, inputs)
	if err != nil {
		return executor.RunHandle{}, err
	}
	return executor.RunHandle{WorkflowName: workflow, RunNumber: run.Number}, nil
}

func (g runGateway) Status(ctx context.Context, h executor.RunHandle) (executor.RunStatus, error) {
	run, err := g.client.GetRunStatus(ctx, h.WorkflowName, h.RunNumber)
	if err != nil {
		return executor.RunStatus{}, err
	}

	st := executor.RunStatus{
		Handle:     h,
		Raw:        run.Status,
		ObservedAt: time.Now().UTC(),
	}

	if g.typ == executor.WorkflowSession && strings.EqualFold(run.Status, "running") {
		// Session endpoint lookup is best-effort; the next poll retries.
		s, err := g.client.SessionForRun(ctx, h.WorkflowName, h.RunNumber)
		switch {
		case err != nil:
			g.log.Debug("session lookup failed", "run", h.RunNumber, "error", err)
		case s != nil && s.Port > 0:
			st.Endpoint = &executor.SessionEndpoint{Host: s.Host, Port: s.Port}
		}
	}
	return st, nil
}
