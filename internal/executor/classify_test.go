package executor

import "testing"

func TestClassifyStatus_Totality(t *testing.T) {
	cases := []struct {
		raw      string
		outcome  Outcome
		terminal bool
	}{
		{"completed", OutcomeCompleted, true},
		{"Completed", OutcomeCompleted, true},
		{" COMPLETED ", OutcomeCompleted, true},
		{"failed", OutcomeFailed, true},
		{"error", OutcomeFailed, true},
		{"cancelled", OutcomeCancelled, true},
		{"canceled", OutcomeCancelled, true},
		{"running", "", false},
		{"queued", "", false},
		{"", "", false},
		{"some-future-state", "", false},
	}

	for _, c := range cases {
		outcome, terminal := ClassifyStatus(c.raw)
		if terminal != c.terminal {
			t.Errorf("ClassifyStatus(%q) terminal = %v, want %v", c.raw, terminal, c.terminal)
		}
		if outcome != c.outcome {
			t.Errorf("ClassifyStatus(%q) outcome = %q, want %q", c.raw, outcome, c.outcome)
		}
	}
}

func TestTerminalPredicate_Batch(t *testing.T) {
	pred := TerminalPredicate(WorkflowBatch)

	for _, raw := range []string{"completed", "failed", "cancelled", "error"} {
		if !pred(RunStatus{Raw: raw}) {
			t.Errorf("batch predicate should accept %q", raw)
		}
	}
	for _, raw := range []string{"running", "queued", "brand-new-state"} {
		if pred(RunStatus{Raw: raw}) {
			t.Errorf("batch predicate should reject %q", raw)
		}
	}
}

func TestTerminalPredicate_Session(t *testing.T) {
	pred := TerminalPredicate(WorkflowSession)

	for _, raw := range []string{"failed", "cancelled", "error"} {
		if !pred(RunStatus{Raw: raw}) {
			t.Errorf("session predicate should accept %q", raw)
		}
	}
	// A session never terminates on "completed" and a healthy running
	// session with an endpoint is a milestone, not a terminal state.
	if pred(RunStatus{Raw: "completed"}) {
		t.Error("session predicate should reject completed")
	}
	if pred(RunStatus{Raw: "running", Endpoint: &SessionEndpoint{Host: "h", Port: 8080}}) {
		t.Error("session predicate should reject running with endpoint")
	}
}

func TestIsReady(t *testing.T) {
	ep := &SessionEndpoint{Host: "h", Port: 8080}

	if !IsReady(RunStatus{Raw: "running", Endpoint: ep}) {
		t.Error("running with endpoint should be ready")
	}
	if IsReady(RunStatus{Raw: "running"}) {
		t.Error("running without endpoint should not be ready")
	}
	if IsReady(RunStatus{Raw: "failed", Endpoint: ep}) {
		t.Error("terminal status should not be ready")
	}
}

func TestClassifyTerminal(t *testing.T) {
	outcome, msg := classifyTerminal(RunStatus{Raw: "completed"})
	if outcome != OutcomeCompleted || msg != "" {
		t.Errorf("completed: got (%q, %q)", outcome, msg)
	}

	outcome, msg = classifyTerminal(RunStatus{Raw: "failed"})
	if outcome != OutcomeFailed || msg != "failed" {
		t.Errorf("failed: got (%q, %q)", outcome, msg)
	}

	outcome, msg = classifyTerminal(RunStatus{Raw: "canceled"})
	if outcome != OutcomeCancelled || msg != "canceled" {
		t.Errorf("canceled: got (%q, %q)", outcome, msg)
	}
}
