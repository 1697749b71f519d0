package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/entrhq/chromekit/pkg/logging"
)

// Process owns one live chromedriver child process and its port.
// Exactly one owner holds a Process at a time; it must be terminated
// exactly once and must not be used afterwards.
type Process struct {
	cmd    *exec.Cmd
	port   int
	opts   Options
	logger *logging.Logger

	// done is closed after the child has been reaped; waitErr is only
	// read after done is closed.
	done    chan struct{}
	waitErr error

	mu         sync.Mutex
	terminated bool
}

// Port returns the port the driver listens on. It fails with
// ErrProcessTerminated once the process has been terminated.
func (p *Process) Port() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminated {
		return 0, fmt.Errorf("%w: port unavailable", ErrProcessTerminated)
	}
	return p.port, nil
}

// URL returns the HTTP endpoint of the driver. It fails with
// ErrProcessTerminated once the process has been terminated.
func (p *Process) URL() (string, error) {
	port, err := p.Port()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://127.0.0.1:%d", port), nil
}

// PID returns the operating system process id of the child.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Alive reports whether the child process is still running.
func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// ExitErr returns the child's wait result. It is only meaningful after
// the process has exited.
func (p *Process) ExitErr() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
		return nil
	}
}

// Terminate stops the child with the configured grace and kill
// timeouts. See TerminateWithTimeout.
func (p *Process) Terminate(ctx context.Context) error {
	return p.TerminateWithTimeout(ctx, p.opts.GraceTimeout, p.opts.KillTimeout)
}

// TerminateWithTimeout sends a graceful stop signal, waits up to grace
// for the child to exit, escalates to a forced kill, and waits up to
// kill for the child to be reaped. It is idempotent: a second call, or
// a call after the process exited on its own, is a no-op.
func (p *Process) TerminateWithTimeout(ctx context.Context, grace, kill time.Duration) error {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return nil
	}
	p.terminated = true
	p.mu.Unlock()

	select {
	case <-p.done:
		// Already exited on its own; nothing to stop.
		return nil
	default:
	}

	p.logger.Infof("Terminating chromedriver (pid %d)", p.cmd.Process.Pid)
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		// Interrupt delivery is unsupported on some platforms; the
		// forced kill below still applies.
		p.logger.Debugf("Graceful signal failed: %v", err)
	}

	select {
	case <-p.done:
		p.logger.Infof("chromedriver exited gracefully")
		return nil
	case <-time.After(grace):
		p.logger.Warnf("chromedriver did not exit within %s, killing", grace)
	case <-ctx.Done():
		p.logger.Warnf("Termination context cancelled, killing")
	}

	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill chromedriver (pid %d): %w", p.cmd.Process.Pid, err)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(kill):
		return fmt.Errorf("chromedriver (pid %d) not reaped within %s of kill", p.cmd.Process.Pid, kill)
	}
}
