// Package tunnel coordinates a local port-forward subprocess with the
// lifecycle of a remote session run: it waits for the run to advertise an
// endpoint, starts the forward, and tears it down when the run terminates or
// the user cancels.
package tunnel

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/pwtools/pwrun/internal/executor"
	"github.com/pwtools/pwrun/pkg/pwsdk/pwerr"
)

// State is the coordinator lifecycle. Transitions are monotonic:
// idle -> waiting -> active -> closing -> closed (waiting may jump straight
// to closing when the run terminates before readiness).
type State string

const (
	StateIdle    State = "idle"
	StateWaiting State = "waiting"
	StateActive  State = "active"
	StateClosing State = "closing"
	StateClosed  State = "closed"
)

// Process is a running tunnel subprocess. Alive is the liveness signal; Stop
// terminates the process and releases its resources.
type Process interface {
	Alive() bool
	Stop() error
}

// Starter launches the tunnel subprocess bound to a local port and a remote
// endpoint.
type Starter interface {
	Start(ctx context.Context, localPort int, endpoint executor.SessionEndpoint) (Process, error)
}

// Coordinator subscribes to a run's status stream and manages the tunnel
// subprocess. Observe never blocks the poller: snapshots are queued and
// handled in order on the coordinator's own goroutine.
type Coordinator struct {
	starter   Starter
	localPort int // 0 means adopt the remote-advertised port

	cancel context.CancelFunc
	done   chan struct{}
	wake   chan struct{}

	mu        sync.Mutex
	state     State
	queue     []executor.RunStatus
	proc      Process
	boundPort int
	err       error
}

// NewCoordinator returns an idle coordinator. localPort 0 adopts the
// remote-advertised port once known.
func NewCoordinator(starter Starter, localPort int) *Coordinator {
	return &Coordinator{
		starter:   starter,
		localPort: localPort,
		done:      make(chan struct{}),
		wake:      make(chan struct{}, 1),
		state:     StateIdle,
	}
}

// Run starts the coordinator goroutine and transitions to waiting. Cancelling
// ctx tears the tunnel down.
func (c *Coordinator) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		cancel()
		return
	}
	c.cancel = cancel
	c.state = StateWaiting
	c.mu.Unlock()

	go c.loop(ctx)
}

// Observe enqueues a status snapshot. It is safe to call from the polling
// goroutine: it never blocks, drops, or reorders events.
func (c *Coordinator) Observe(st executor.RunStatus) {
	c.mu.Lock()
	if c.state == StateClosing || c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, st)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// BoundPort returns the local port the tunnel is (or was) bound to, 0 before
// the tunnel starts.
func (c *Coordinator) BoundPort() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boundPort
}

// Done is closed once the coordinator reaches the closed state.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Err reports why the coordinator closed, nil for a clean teardown.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close tears the tunnel down and waits for the closed state. Safe to call
// multiple times and before Run.
func (c *Coordinator) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel == nil {
		// Run was never called; close directly.
		c.teardown()
		return
	}
	cancel()
	<-c.done
}

func (c *Coordinator) loop(ctx context.Context) {
	defer c.teardown()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
		}

		for {
			st, ok := c.dequeue()
			if !ok {
				break
			}
			if c.handle(ctx, st) {
				return
			}
		}
	}
}

func (c *Coordinator) dequeue() (executor.RunStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return executor.RunStatus{}, false
	}
	st := c.queue[0]
	c.queue = c.queue[1:]
	return st, true
}

// handle processes one snapshot in arrival order. Terminal statuses always
// win: a tunnel started by an earlier readiness signal in the same batch is
// torn down by the terminal snapshot that follows it.
func (c *Coordinator) handle(ctx context.Context, st executor.RunStatus) (closing bool) {
	if _, terminal := executor.ClassifyStatus(st.Raw); terminal {
		return true
	}

	if st.Endpoint == nil {
		return false
	}

	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state != StateWaiting {
		// Already active: a repeated readiness signal is a no-op.
		return false
	}

	port := c.localPort
	if port == 0 {
		port = st.Endpoint.Port
		if !portAvailable(port) {
			c.fail(pwerr.Newf(pwerr.CodePortConflict,
				"local port %d is already in use; pass an explicit local port", port))
			return true
		}
	}

	proc, err := c.starter.Start(ctx, port, *st.Endpoint)
	if err != nil {
		c.fail(err)
		return true
	}

	c.mu.Lock()
	c.proc = proc
	c.boundPort = port
	c.state = StateActive
	c.mu.Unlock()
	return false
}

func (c *Coordinator) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}

// teardown releases the subprocess and reports closed. It runs on every exit
// path of the coordinator goroutine and is idempotent.
func (c *Coordinator) teardown() {
	c.mu.Lock()
	if c.state == StateClosing || c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	proc := c.proc
	c.mu.Unlock()

	if proc != nil {
		if err := proc.Stop(); err != nil {
			c.fail(fmt.Errorf("stopping tunnel: %w", err))
		}
	}

	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
	close(c.done)
}

// portAvailable probes whether the port can be bound locally. The platform
// does not rotate endpoints mid-run, so a one-shot probe at start time is
// enough.
func portAvailable(port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}
