package executor

import "strings"

// Remote status vocabulary. Anything outside these sets is treated as still
// running so new platform states never break the client.
var (
	completedStatuses = map[string]struct{}{
		"completed": {},
	}
	failedStatuses = map[string]struct{}{
		"failed": {},
		"error":  {},
	}
	cancelledStatuses = map[string]struct{}{
		"cancelled": {},
		"canceled":  {},
	}
)

// ClassifyStatus maps a raw remote status to an outcome. The second return is
// false when the status is non-terminal (running, queued, or unknown).
func ClassifyStatus(raw string) (Outcome, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := completedStatuses[s]; ok {
		return OutcomeCompleted, true
	}
	if _, ok := failedStatuses[s]; ok {
		return OutcomeFailed, true
	}
	if _, ok := cancelledStatuses[s]; ok {
		return OutcomeCancelled, true
	}
	return "", false
}

// IsReady reports whether a snapshot is the readiness milestone of a session
// run: still running but with a populated endpoint. It is a milestone, not a
// terminal state.
func IsReady(st RunStatus) bool {
	_, terminal := ClassifyStatus(st.Raw)
	return !terminal && st.Endpoint != nil
}

// TerminalPredicate returns the terminal-state predicate for a workflow type.
// Batch runs finish on any terminal status. Session runs only ever finish on
// failure or cancellation; a healthy running session is never terminal.
func TerminalPredicate(t WorkflowType) func(RunStatus) bool {
	if t == WorkflowSession {
		return func(st RunStatus) bool {
			o, terminal := ClassifyStatus(st.Raw)
			return terminal && (o == OutcomeFailed || o == OutcomeCancelled)
		}
	}
	return func(st RunStatus) bool {
		_, terminal := ClassifyStatus(st.Raw)
		return terminal
	}
}

// classifyTerminal produces the outcome and error message for a terminal
// snapshot. The message carries the raw remote status for non-completed
// outcomes, which is all the platform reports.
func classifyTerminal(st RunStatus) (Outcome, string) {
	outcome, terminal := ClassifyStatus(st.Raw)
	if !terminal {
		// Callers only pass snapshots that satisfied the terminal
		// predicate; treat anything else as a remote failure.
		return OutcomeFailed, st.Raw
	}
	if outcome == OutcomeCompleted {
		return outcome, ""
	}
	return outcome, st.Raw
}
