// Package session opens and closes automation sessions against a
// running driver over the WebDriver HTTP protocol.
//
// The scoped form WithSession is the primary guarantee of this
// package: the session is closed on every exit path of the caller's
// body, including errors, panics, and caller cancellation.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/entrhq/chromekit/pkg/logging"
)

// closeTimeout bounds the unconditional close of a scoped session when
// the caller's context is already cancelled.
const closeTimeout = 10 * time.Second

// Endpoint locates a running driver. driver.Process implements it; the
// URL call fails once the process has been terminated, so a session
// can never be opened against a dead driver.
type Endpoint interface {
	URL() (string, error)
}

// Broker opens sessions against running drivers.
type Broker struct {
	client *http.Client
	logger *logging.Logger
}

// BrokerOption customizes a Broker.
type BrokerOption func(*Broker)

// WithHTTPClient replaces the HTTP client used for session traffic.
func WithHTTPClient(hc *http.Client) BrokerOption {
	return func(b *Broker) { b.client = hc }
}

// WithLogger sets the component logger.
func WithLogger(logger *logging.Logger) BrokerOption {
	return func(b *Broker) { b.logger = logger }
}

// NewBroker creates a session broker.
func NewBroker(opts ...BrokerOption) *Broker {
	b := &Broker{
		client: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger, _ = logging.NewLogger("session")
	}
	return b
}

// Open creates a new session against the given driver endpoint. The
// caller owns the returned session and must close it exactly once;
// prefer WithSession, which guarantees that.
func (b *Broker) Open(ctx context.Context, ep Endpoint, caps Capabilities) (*Session, error) {
	base, err := ep.URL()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreate, err)
	}

	var value json.RawMessage
	if err := webdriverRoundTrip(ctx, b.client, http.MethodPost, base+"/session", caps.payload(), &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreate, err)
	}

	var created struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(value, &created); err != nil || created.SessionID == "" {
		return nil, fmt.Errorf("%w: driver returned no session id", ErrSessionCreate)
	}

	b.logger.Infof("Opened session %s against %s", created.SessionID, base)
	return &Session{
		id:     created.SessionID,
		base:   base,
		client: b.client,
	}, nil
}

// WithSession opens a session, runs body with it, and closes the
// session on every exit path of body: success, error, panic, or
// cancellation of the caller's context. A close failure never masks an
// error from body; when body succeeded, the close failure is surfaced
// instead, since a dangling remote session is itself a caller-visible
// problem.
func (b *Broker) WithSession(ctx context.Context, ep Endpoint, caps Capabilities, body func(context.Context, *Session) error) (retErr error) {
	s, err := b.Open(ctx, ep, caps)
	if err != nil {
		return err
	}

	defer func() {
		// Detached from the caller's context so cancellation cannot
		// skip the close.
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()

		if cerr := s.Close(closeCtx); cerr != nil {
			if retErr == nil {
				retErr = cerr
			} else {
				b.logger.Warnf("Failed to close session %s after body error: %v", s.ID(), cerr)
			}
		}
	}()

	return body(ctx, s)
}
