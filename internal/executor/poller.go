package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pwtools/pwrun/pkg/pwsdk/pwerr"
)

// ErrDeadline is returned by Poll when the timeout elapses before a terminal
// status is observed. Callers classify it as a timeout outcome, not a crash.
var ErrDeadline = errors.New("deadline elapsed before terminal status")

// PollFailure is returned when the gateway failed more consecutive times than
// the failure budget allows. It is distinct from a timeout.
type PollFailure struct {
	Attempts int
	Last     error
}

func (e *PollFailure) Error() string {
	return fmt.Sprintf("status polling failed %d consecutive times: %v", e.Attempts, e.Last)
}

func (e *PollFailure) Unwrap() error {
	return e.Last
}

// PollConfig tunes the polling loop. The zero value is not usable; start from
// DefaultPollConfig.
type PollConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	BackoffFactor   float64
	FailureBudget   int
}

// DefaultPollConfig returns the standard schedule: 5s initial delay growing
// by x1.5 per poll, capped at 60s, tolerating 3 consecutive gateway failures.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		InitialInterval: 5 * time.Second,
		MaxInterval:     60 * time.Second,
		BackoffFactor:   1.5,
		FailureBudget:   3,
	}
}

func (c PollConfig) withDefaults() PollConfig {
	d := DefaultPollConfig()
	if c.InitialInterval <= 0 {
		c.InitialInterval = d.InitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = d.MaxInterval
	}
	if c.BackoffFactor <= 1 {
		c.BackoffFactor = d.BackoffFactor
	}
	if c.FailureBudget <= 0 {
		c.FailureBudget = d.FailureBudget
	}
	return c
}

// Poller repeatedly queries the gateway for one run's status until a terminal
// condition or deadline. Each poller is self-contained; concurrent polls of
// different runs need no locking.
type Poller struct {
	gateway Gateway
	cfg     PollConfig

	// Injectable for tests.
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewPoller returns a poller over the given gateway.
func NewPoller(gw Gateway, cfg PollConfig) *Poller {
	return &Poller{
		gateway: gw,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Poll queries the run's status on the backoff schedule until isTerminal
// accepts a snapshot, the timeout elapses, the context is cancelled, or the
// consecutive-failure budget is exhausted. Every snapshot, including the
// terminal one, is reported to onStatus before the predicate is evaluated.
//
// The elapsed check happens before each wait rather than only at the loop
// top, so fast terminal transitions cannot drag the loop far past the
// requested timeout; a slow network call may still exceed it slightly.
func (p *Poller) Poll(
	ctx context.Context,
	h RunHandle,
	isTerminal func(RunStatus) bool,
	timeout time.Duration,
	onStatus StatusFunc,
) (RunStatus, error) {
	start := p.now()
	interval := p.cfg.InitialInterval
	failures := 0

	for {
		st, err := p.gateway.Status(ctx, h)
		if err != nil {
			if ctx.Err() != nil {
				return RunStatus{}, ctx.Err()
			}
			// An unknown workflow or run number can never resolve on a
			// retry; only transport failures go into the budget.
			if pwerr.IsCode(err, pwerr.CodeNotFound) {
				return RunStatus{}, err
			}
			failures++
			if failures > p.cfg.FailureBudget {
				return RunStatus{}, &PollFailure{Attempts: failures, Last: err}
			}
		} else {
			failures = 0
			if onStatus != nil {
				onStatus(st)
			}
			if isTerminal(st) {
				return st, nil
			}
		}

		if timeout > 0 && p.now().Sub(start) >= timeout {
			return RunStatus{}, ErrDeadline
		}

		if err := p.sleep(ctx, interval); err != nil {
			return RunStatus{}, err
		}

		next := time.Duration(float64(interval) * p.cfg.BackoffFactor)
		if next > p.cfg.MaxInterval {
			next = p.cfg.MaxInterval
		}
		interval = next
	}
}

// sleepContext blocks for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
