package tunnel

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/pwtools/pwrun/internal/executor"
)

// SSHStarter launches the port-forward as an ssh subprocess routed through
// the platform's proxy command. It satisfies Starter.
type SSHStarter struct {
	// User is the platform username used for the ssh destination.
	User string
	// ProxyCLI is the platform CLI binary used as ProxyCommand, "pw" when
	// empty.
	ProxyCLI string
}

// Start launches `ssh -N -L <local>:localhost:<remote>` against the session
// host. The process runs until stopped.
func (s *SSHStarter) Start(ctx context.Context, localPort int, endpoint executor.SessionEndpoint) (Process, error) {
	cli := s.ProxyCLI
	if cli == "" {
		cli = "pw"
	}
	if _, err := exec.LookPath(cli); err != nil {
		return nil, fmt.Errorf("%s CLI not found in PATH, install it to use --tunnel: %w", cli, err)
	}

	host := endpoint.Host
	if host == "" {
		host = "workspace"
	}

	cmd := exec.CommandContext(ctx, "ssh",
		"-L", fmt.Sprintf("%d:localhost:%d", localPort, endpoint.Port),
		"-o", fmt.Sprintf("ProxyCommand=%s ssh --proxy-command %%h", cli),
		"-N",
		fmt.Sprintf("%s@%s", s.User, host),
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ssh tunnel: %w", err)
	}

	p := &sshProcess{
		cmd:    cmd,
		stderr: &stderr,
		done:   make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type sshProcess struct {
	cmd     *exec.Cmd
	stderr  *bytes.Buffer
	done    chan struct{}
	waitErr error
}

func (p *sshProcess) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Stop terminates the ssh process, escalating to SIGKILL if it does not exit
// within a grace period.
func (p *sshProcess) Stop() error {
	if !p.Alive() {
		return nil
	}

	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.done:
	case <-time.After(5 * time.Second):
		_ = p.cmd.Process.Kill()
		<-p.done
	}

	// ssh exiting on SIGTERM is the expected shutdown, not a failure.
	if msg := strings.TrimSpace(p.stderr.String()); msg != "" && p.waitErr != nil {
		if exitErr, ok := p.waitErr.(*exec.ExitError); ok && !exitErr.Exited() {
			return nil
		}
		return fmt.Errorf("ssh tunnel: %s", msg)
	}
	return nil
}
