package manager

import (
	"context"
	"time"

	"github.com/entrhq/chromekit/pkg/cache"
	"github.com/entrhq/chromekit/pkg/driver"
	"github.com/entrhq/chromekit/pkg/logging"
	"github.com/entrhq/chromekit/pkg/session"
)

// Chromedriver is a running driver together with the cache entry it
// was launched from. Keep it alive for as long as sessions are needed,
// then call Terminate exactly once.
type Chromedriver struct {
	// Entry holds the binaries backing this driver.
	Entry cache.Entry

	proc   *driver.Process
	broker *session.Broker
	logger *logging.Logger
}

// Process returns the supervised driver process.
func (c *Chromedriver) Process() *driver.Process {
	return c.proc
}

// Port returns the port the driver listens on.
func (c *Chromedriver) Port() (int, error) {
	return c.proc.Port()
}

// URL returns the driver's HTTP endpoint.
func (c *Chromedriver) URL() (string, error) {
	return c.proc.URL()
}

// OpenSession opens a session with default (headless) capabilities.
// The caller owns the session and must close it; prefer WithSession.
func (c *Chromedriver) OpenSession(ctx context.Context) (*session.Session, error) {
	return c.broker.Open(ctx, c.proc, session.DefaultCapabilities(c.Entry))
}

// WithSession runs body with a session that is opened with default
// capabilities and closed on every exit path of body.
func (c *Chromedriver) WithSession(ctx context.Context, body func(context.Context, *session.Session) error) error {
	return c.broker.WithSession(ctx, c.proc, session.DefaultCapabilities(c.Entry), body)
}

// WithCustomSession is WithSession with a capabilities hook, e.g. to
// disable headless mode or add browser switches.
func (c *Chromedriver) WithCustomSession(ctx context.Context, setup func(*session.Capabilities), body func(context.Context, *session.Session) error) error {
	caps := session.DefaultCapabilities(c.Entry)
	if setup != nil {
		setup(&caps)
	}
	return c.broker.WithSession(ctx, c.proc, caps, body)
}

// Terminate stops the driver process with the configured timeouts.
// It is idempotent.
func (c *Chromedriver) Terminate(ctx context.Context) error {
	return c.proc.Terminate(ctx)
}

// TerminateWithTimeout stops the driver process with explicit grace
// and kill timeouts.
func (c *Chromedriver) TerminateWithTimeout(ctx context.Context, grace, kill time.Duration) error {
	return c.proc.TerminateWithTimeout(ctx, grace, kill)
}
