package driver

import (
	"fmt"
	"net"
)

// PortRequest selects the port a driver process should listen on:
// either a specific port number or any free port.
type PortRequest struct {
	port int
}

// AnyPort requests an automatically allocated free port.
func AnyPort() PortRequest {
	return PortRequest{}
}

// Port requests a specific port number.
func Port(n int) PortRequest {
	return PortRequest{port: n}
}

// IsAny reports whether the request asks for an auto-allocated port.
func (r PortRequest) IsAny() bool {
	return r.port == 0
}

func (r PortRequest) String() string {
	if r.IsAny() {
		return "any"
	}
	return fmt.Sprintf("%d", r.port)
}

// allocateFreePort reserves an ephemeral loopback port by binding a
// listener, reading back the assigned port, and releasing it again.
// This is a best-effort reservation, not an atomic handoff: another
// process may grab the port between release and the child's bind. The
// child's failure to come up is the recovery signal for that race.
func allocateFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPortAllocation, err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, fmt.Errorf("%w: failed to release probe listener: %v", ErrPortAllocation, err)
	}
	return port, nil
}
