package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pwtools/pwrun/pkg/pwsdk/pwerr"
)

// statusStep scripts one gateway status response.
type statusStep struct {
	raw      string
	endpoint *SessionEndpoint
	err      error
}

// fakeGateway replays scripted responses; the last step repeats forever.
type fakeGateway struct {
	handle      RunHandle
	submitErr   error
	submitCalls int

	steps       []statusStep
	statusCalls int
}

func (g *fakeGateway) Submit(ctx context.Context, workflow string, inputs map[string]any) (RunHandle, error) {
	g.submitCalls++
	if g.submitErr != nil {
		return RunHandle{}, g.submitErr
	}
	return g.handle, nil
}

func (g *fakeGateway) Status(ctx context.Context, h RunHandle) (RunStatus, error) {
	i := g.statusCalls
	g.statusCalls++
	if i >= len(g.steps) {
		i = len(g.steps) - 1
	}
	step := g.steps[i]
	if step.err != nil {
		return RunStatus{}, step.err
	}
	return RunStatus{Handle: h, Raw: step.raw, Endpoint: step.endpoint}, nil
}

// fakeClock advances simulated time when the poller sleeps.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestPoller(gw Gateway, clock *fakeClock) *Poller {
	p := NewPoller(gw, DefaultPollConfig())
	p.now = clock.Now
	p.sleep = clock.Sleep
	return p
}

func running(n int) []statusStep {
	steps := make([]statusStep, n)
	for i := range steps {
		steps[i] = statusStep{raw: "running"}
	}
	return steps
}

func TestPoll_BackoffSchedule(t *testing.T) {
	gw := &fakeGateway{steps: append(running(12), statusStep{raw: "completed"})}
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := newTestPoller(gw, clock)

	_, err := p.Poll(context.Background(), RunHandle{}, TerminalPredicate(WorkflowBatch), 0, nil)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}

	if len(clock.slept) != 12 {
		t.Fatalf("expected 12 waits, got %d", len(clock.slept))
	}
	if clock.slept[0] != 5*time.Second {
		t.Errorf("first delay = %v, want 5s", clock.slept[0])
	}
	for i := 1; i < len(clock.slept); i++ {
		prev, cur := clock.slept[i-1], clock.slept[i]
		if cur < prev {
			t.Errorf("delay %d decreased: %v -> %v", i, prev, cur)
		}
		want := time.Duration(float64(prev) * 1.5)
		if want > 60*time.Second {
			want = 60 * time.Second
		}
		if cur != want {
			t.Errorf("delay %d = %v, want %v", i, cur, want)
		}
	}
	if last := clock.slept[len(clock.slept)-1]; last != 60*time.Second {
		t.Errorf("delays should cap at 60s, last was %v", last)
	}
}

func TestPoll_StopsOnTerminal(t *testing.T) {
	gw := &fakeGateway{steps: []statusStep{
		{raw: "running"},
		{raw: "running"},
		{raw: "completed"},
	}}
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := newTestPoller(gw, clock)

	var observed []string
	st, err := p.Poll(context.Background(), RunHandle{WorkflowName: "wf", RunNumber: 1},
		TerminalPredicate(WorkflowBatch), 0,
		func(s RunStatus) { observed = append(observed, s.Raw) })
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}

	if st.Raw != "completed" {
		t.Errorf("terminal status = %q, want completed", st.Raw)
	}
	// No further queries once the terminal predicate is satisfied.
	if gw.statusCalls != 3 {
		t.Errorf("expected 3 status calls, got %d", gw.statusCalls)
	}
	// The observer sees every snapshot, including the terminal one.
	if len(observed) != 3 || observed[2] != "completed" {
		t.Errorf("observer saw %v, want [running running completed]", observed)
	}
}

func TestPoll_Timeout(t *testing.T) {
	gw := &fakeGateway{steps: running(1)}
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := newTestPoller(gw, clock)

	_, err := p.Poll(context.Background(), RunHandle{}, TerminalPredicate(WorkflowBatch),
		10*time.Second, nil)
	if !errors.Is(err, ErrDeadline) {
		t.Fatalf("expected ErrDeadline, got %v", err)
	}

	// Polls at t=0, t=5, t=12.5; the elapsed check before the third wait
	// trips at 12.5s >= 10s.
	if gw.statusCalls != 3 {
		t.Errorf("expected 3 status calls before timeout, got %d", gw.statusCalls)
	}
}

func TestPoll_FailureBudget(t *testing.T) {
	transportErr := errors.New("connection refused")
	gw := &fakeGateway{steps: []statusStep{{err: transportErr}}}
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := newTestPoller(gw, clock)

	_, err := p.Poll(context.Background(), RunHandle{}, TerminalPredicate(WorkflowBatch), 0, nil)

	var pf *PollFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PollFailure, got %v", err)
	}
	if !errors.Is(err, transportErr) {
		t.Error("PollFailure should wrap the last transport error")
	}
	// Budget of 3 consecutive failures tolerated; the fourth escalates.
	if gw.statusCalls != 4 {
		t.Errorf("expected 4 status calls, got %d", gw.statusCalls)
	}
}

func TestPoll_NotFoundIsFatal(t *testing.T) {
	gw := &fakeGateway{steps: []statusStep{{err: pwerr.Newf(pwerr.CodeNotFound, "run not found")}}}
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := newTestPoller(gw, clock)

	_, err := p.Poll(context.Background(), RunHandle{WorkflowName: "gone", RunNumber: 1},
		TerminalPredicate(WorkflowBatch), time.Hour, nil)

	if !pwerr.IsCode(err, pwerr.CodeNotFound) {
		t.Fatalf("expected not_found surfaced directly, got %v", err)
	}
	var pf *PollFailure
	if errors.As(err, &pf) {
		t.Error("not_found must not be absorbed into the retry budget")
	}
	// An unknown run can never resolve; one call is enough.
	if gw.statusCalls != 1 {
		t.Errorf("expected 1 status call, got %d", gw.statusCalls)
	}
}

func TestPoll_TransientFailureRecovers(t *testing.T) {
	gw := &fakeGateway{steps: []statusStep{
		{err: errors.New("flaky")},
		{err: errors.New("flaky")},
		{raw: "running"},
		{err: errors.New("flaky")},
		{raw: "completed"},
	}}
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := newTestPoller(gw, clock)

	st, err := p.Poll(context.Background(), RunHandle{}, TerminalPredicate(WorkflowBatch), 0, nil)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if st.Raw != "completed" {
		t.Errorf("terminal status = %q, want completed", st.Raw)
	}
}

func TestPoll_CancelDuringWait(t *testing.T) {
	gw := &fakeGateway{steps: running(1)}
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := newTestPoller(gw, clock)
	p.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	_, err := p.Poll(context.Background(), RunHandle{}, TerminalPredicate(WorkflowBatch), 0, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if gw.statusCalls != 1 {
		t.Errorf("expected polling to stop at the wait boundary, got %d calls", gw.statusCalls)
	}
}
