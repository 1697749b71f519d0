// Package driver launches and supervises chromedriver processes. It
// owns port selection, readiness detection via the driver's own output
// stream, and graceful-then-forced termination.
package driver

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/entrhq/chromekit/pkg/cache"
	"github.com/entrhq/chromekit/pkg/logging"
)

// readyMarker is the fragment chromedriver prints once it accepts
// connections, e.g. "ChromeDriver was started successfully on port 9515."
const readyMarker = "started successfully on port"

const (
	// DefaultReadyTimeout bounds the wait for the readiness line.
	DefaultReadyTimeout = 10 * time.Second

	// DefaultGraceTimeout bounds the wait after a graceful stop signal
	// before escalating to a forced kill.
	DefaultGraceTimeout = 3 * time.Second

	// DefaultKillTimeout bounds the wait for the process to be reaped
	// after a forced kill.
	DefaultKillTimeout = 3 * time.Second
)

// Options configures a launch. The zero value uses defaults.
type Options struct {
	// ReadyTimeout bounds the wait for the readiness signal.
	ReadyTimeout time.Duration

	// GraceTimeout bounds the graceful-termination wait.
	GraceTimeout time.Duration

	// KillTimeout bounds the wait after a forced kill.
	KillTimeout time.Duration

	// ExtraArgs are appended to the chromedriver command line.
	ExtraArgs []string

	// Logger is the component logger; a default is created when nil.
	Logger *logging.Logger
}

func (o Options) withDefaults() Options {
	if o.ReadyTimeout == 0 {
		o.ReadyTimeout = DefaultReadyTimeout
	}
	if o.GraceTimeout == 0 {
		o.GraceTimeout = DefaultGraceTimeout
	}
	if o.KillTimeout == 0 {
		o.KillTimeout = DefaultKillTimeout
	}
	if o.Logger == nil {
		o.Logger, _ = logging.NewLogger("driver")
	}
	return o
}

// Launch starts the driver binary of a cache entry on the requested
// port and waits until it reports readiness on its output stream. On a
// readiness timeout the half-started process is terminated before the
// error is returned, so no child is leaked.
func Launch(ctx context.Context, entry cache.Entry, portReq PortRequest, opts Options) (*Process, error) {
	opts = opts.withDefaults()

	port := 0
	if portReq.IsAny() {
		allocated, err := allocateFreePort()
		if err != nil {
			return nil, err
		}
		port = allocated
	} else {
		port = portReq.port
	}

	args := []string{
		fmt.Sprintf("--port=%d", port),
		"--log-level=INFO",
	}
	args = append(args, opts.ExtraArgs...)

	opts.Logger.Infof("Launching %s on port %d", entry.DriverPath, port)
	cmd := exec.Command(entry.DriverPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to pipe stdout: %v", ErrProcessSpawn, err)
	}
	// Readiness and diagnostics can arrive on either stream, so fold
	// stderr into stdout and scan one line stream.
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProcessSpawn, entry.DriverPath, err)
	}

	p := &Process{
		cmd:    cmd,
		opts:   opts,
		logger: opts.Logger,
		done:   make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	readyCh := make(chan int, 1)
	go func() {
		scanner := bufio.NewScanner(stdout)
		ready := false
		for scanner.Scan() {
			line := scanner.Text()
			opts.Logger.Debugf("chromedriver: %s", line)
			if ready || !strings.Contains(line, readyMarker) {
				continue
			}
			if boundPort, perr := parseReadyPort(line); perr == nil {
				ready = true
				readyCh <- boundPort
			} else {
				opts.Logger.Warnf("Unparseable readiness line %q: %v", line, perr)
			}
		}
	}()

	select {
	case boundPort := <-readyCh:
		// The port reported by the driver is authoritative; with an
		// any-port request it must match the reservation, but trust
		// the child over our own bookkeeping.
		p.port = boundPort
		opts.Logger.Infof("chromedriver ready on port %d (pid %d)", boundPort, cmd.Process.Pid)
		return p, nil

	case <-p.done:
		return nil, fmt.Errorf("%w: process exited before readiness (port %d): %v",
			ErrProcessSpawn, port, p.waitErr)

	case <-time.After(opts.ReadyTimeout):
		_ = p.Terminate(context.Background())
		return nil, fmt.Errorf("%w: no readiness signal within %s (port %d)",
			ErrProcessNotReady, opts.ReadyTimeout, port)

	case <-ctx.Done():
		_ = p.Terminate(context.Background())
		return nil, fmt.Errorf("launch cancelled: %w", ctx.Err())
	}
}

// parseReadyPort extracts the port number from a readiness line. The
// port is the last space-separated token, possibly quoted and followed
// by a period.
func parseReadyPort(line string) (int, error) {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.Trim(trimmed, "\"")
	trimmed = strings.TrimSuffix(trimmed, ".")
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty readiness line")
	}
	port, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid port token %q: %w", fields[len(fields)-1], err)
	}
	return port, nil
}
