package session

import "errors"

var (
	// ErrSessionCreate indicates a new session could not be opened
	// against the driver.
	ErrSessionCreate = errors.New("session create failed")

	// ErrSessionClosed indicates a command was issued on a session
	// that has already been closed.
	ErrSessionClosed = errors.New("session closed")

	// ErrSessionCommand indicates a session-scoped command failed.
	ErrSessionCommand = errors.New("session command failed")

	// ErrSessionClose indicates the close of a session failed,
	// leaving a dangling remote session behind.
	ErrSessionClose = errors.New("session close failed")
)
