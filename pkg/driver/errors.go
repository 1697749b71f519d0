package driver

import "errors"

var (
	// ErrPortAllocation indicates no free loopback port could be
	// reserved for an any-port launch.
	ErrPortAllocation = errors.New("port allocation failed")

	// ErrProcessSpawn indicates the driver binary could not be started
	// or exited before signalling readiness, e.g. because its port was
	// already taken.
	ErrProcessSpawn = errors.New("driver process spawn failed")

	// ErrProcessNotReady indicates the driver started but did not
	// report readiness within the timeout. The half-started process is
	// terminated before this error is returned.
	ErrProcessNotReady = errors.New("driver process not ready")

	// ErrProcessTerminated indicates a handle was used after
	// Terminate.
	ErrProcessTerminated = errors.New("driver process terminated")
)
