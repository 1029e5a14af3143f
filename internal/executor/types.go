package executor

import (
	"context"
	"time"
)

// WorkflowType distinguishes runs-to-completion jobs from interactive ones.
type WorkflowType string

const (
	// WorkflowBatch runs to completion and ends in a completed state.
	WorkflowBatch WorkflowType = "batch"
	// WorkflowSession is interactive: it stays running and exposes an
	// endpoint once ready.
	WorkflowSession WorkflowType = "session"
)

// JobSpec identifies a job to run. Immutable once constructed.
type JobSpec struct {
	WorkflowName string
	Inputs       map[string]any
	Type         WorkflowType
	Timeout      time.Duration
	Wait         bool
}

// RunHandle identifies one submitted execution. The run number is assigned by
// the gateway and never reused for the same workflow.
type RunHandle struct {
	WorkflowName string
	RunNumber    int
}

// SessionEndpoint is the network endpoint a ready session exposes.
type SessionEndpoint struct {
	Host string
	Port int
}

// RunStatus is an immutable snapshot of a run, produced fresh on every poll.
type RunStatus struct {
	Handle     RunHandle
	Raw        string
	Endpoint   *SessionEndpoint
	ObservedAt time.Time
}

// Outcome is the classified result of an execution.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeError     Outcome = "error"
)

// ExecutionResult is the terminal record of one execution. In no-wait mode
// Outcome is left empty and the completion fields are absent.
type ExecutionResult struct {
	WorkflowName string
	RunNumber    int
	Outcome      Outcome
	StartedAt    time.Time
	CompletedAt  *time.Time
	Duration     time.Duration
	ErrorMessage string
}

// Succeeded reports whether the run finished in the completed outcome.
func (r ExecutionResult) Succeeded() bool {
	return r.Outcome == OutcomeCompleted
}

// StatusFunc observes each RunStatus snapshot. It is invoked synchronously on
// the polling goroutine and must not block indefinitely.
type StatusFunc func(RunStatus)

// Gateway is the remote platform capability the executor consumes: submit a
// run, query its status. Implementations attach the session endpoint to
// snapshots once the run exposes one.
type Gateway interface {
	Submit(ctx context.Context, workflow string, inputs map[string]any) (RunHandle, error)
	Status(ctx context.Context, h RunHandle) (RunStatus, error)
}
