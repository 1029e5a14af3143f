// Package executor submits workflow runs to the remote platform and monitors
// them to a classified outcome: adaptive-backoff status polling, a closed
// outcome taxonomy, and progress notification for observers such as the
// tunnel coordinator. It never prints; presentation belongs to the CLI layer.
package executor

import (
	"context"
	"errors"
	"time"
)

// Executor orchestrates one execution end to end: submit, poll, classify.
// No state is shared across Execute calls, so one Executor may serve
// concurrent executions of different jobs.
type Executor struct {
	gateway Gateway
	cfg     PollConfig

	// Injectable for tests.
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New returns an executor over the given gateway using the supplied polling
// schedule.
func New(gw Gateway, cfg PollConfig) *Executor {
	return &Executor{
		gateway: gw,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Execute submits the job and, unless it opts out of waiting, polls the
// run until a terminal condition, the timeout, or cancellation. Every
// observed snapshot is forwarded to onStatus unchanged.
//
// The returned result always carries a classified outcome (or none in
// no-wait mode). Timeout and cancellation are outcomes, not errors; the error
// return is non-nil only for error-classified failures such as a submission
// failure or an exhausted polling budget.
func (e *Executor) Execute(ctx context.Context, spec JobSpec, onStatus StatusFunc) (ExecutionResult, error) {
	started := e.now()

	result := ExecutionResult{
		WorkflowName: spec.WorkflowName,
		StartedAt:    started,
	}

	// Exactly one submission per call; a failure here propagates without
	// any polling.
	h, err := e.gateway.Submit(ctx, spec.WorkflowName, spec.Inputs)
	if err != nil {
		result.Outcome = OutcomeError
		result.ErrorMessage = err.Error()
		result.Duration = e.now().Sub(started)
		return result, err
	}
	result.RunNumber = h.RunNumber

	if !spec.Wait {
		// Outcome stays unresolved; the run keeps going remotely.
		return result, nil
	}

	poller := &Poller{gateway: e.gateway, cfg: e.cfg, now: e.now, sleep: e.sleep}
	st, pollErr := poller.Poll(ctx, h, TerminalPredicate(spec.Type), spec.Timeout, onStatus)

	finished := e.now()
	result.Duration = finished.Sub(started)

	switch {
	case pollErr == nil:
		result.CompletedAt = &finished
		result.Outcome, result.ErrorMessage = classifyTerminal(st)
		return result, nil

	case errors.Is(pollErr, ErrDeadline):
		result.Outcome = OutcomeTimeout
		return result, nil

	case errors.Is(pollErr, context.Canceled) || errors.Is(pollErr, context.DeadlineExceeded):
		result.Outcome = OutcomeCancelled
		return result, nil

	default:
		result.Outcome = OutcomeError
		result.ErrorMessage = pollErr.Error()
		return result, pollErr
	}
}

// CheckStatus queries the current status of an existing run once.
func (e *Executor) CheckStatus(ctx context.Context, h RunHandle) (RunStatus, error) {
	return e.gateway.Status(ctx, h)
}
