package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Session is one open automation session against a running driver. It
// is tied to the driver process's lifetime and must not outlive it.
// A session is closed exactly once; commands on a closed session fail
// with ErrSessionClosed.
type Session struct {
	id     string
	base   string
	client *http.Client

	mu     sync.Mutex
	closed bool
}

// ID returns the driver-assigned session id.
func (s *Session) ID() string {
	return s.id
}

// Navigate loads the given URL in the session's browser.
func (s *Session) Navigate(ctx context.Context, url string) error {
	body := map[string]interface{}{"url": url}
	_, err := s.do(ctx, http.MethodPost, "/url", body)
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// CurrentURL returns the URL of the current page.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	value, err := s.do(ctx, http.MethodGet, "/url", nil)
	if err != nil {
		return "", fmt.Errorf("current url: %w", err)
	}
	var url string
	if err := json.Unmarshal(value, &url); err != nil {
		return "", fmt.Errorf("%w: malformed url value: %v", ErrSessionCommand, err)
	}
	return url, nil
}

// Title returns the title of the current page.
func (s *Session) Title(ctx context.Context) (string, error) {
	value, err := s.do(ctx, http.MethodGet, "/title", nil)
	if err != nil {
		return "", fmt.Errorf("title: %w", err)
	}
	var title string
	if err := json.Unmarshal(value, &title); err != nil {
		return "", fmt.Errorf("%w: malformed title value: %v", ErrSessionCommand, err)
	}
	return title, nil
}

// ExecuteScript runs a synchronous script in the page and returns the
// raw JSON result.
func (s *Session) ExecuteScript(ctx context.Context, script string, args ...interface{}) (json.RawMessage, error) {
	if args == nil {
		args = []interface{}{}
	}
	body := map[string]interface{}{"script": script, "args": args}
	value, err := s.do(ctx, http.MethodPost, "/execute/sync", body)
	if err != nil {
		return nil, fmt.Errorf("execute script: %w", err)
	}
	return value, nil
}

// Close ends the session. Closing an already-closed session is a
// no-op; a failed close leaves the session marked closed and returns
// ErrSessionClose, since the remote session may be dangling.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.roundTrip(ctx, http.MethodDelete, s.base+"/session/"+s.id, nil, nil); err != nil {
		return fmt.Errorf("%w: session %s: %v", ErrSessionClose, s.id, err)
	}
	return nil
}

// do issues a session-scoped command and returns the response value.
func (s *Session) do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: session %s", ErrSessionClosed, s.id)
	}

	var value json.RawMessage
	url := s.base + "/session/" + s.id + path
	if err := s.roundTrip(ctx, method, url, body, &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCommand, err)
	}
	return value, nil
}

// roundTrip performs one WebDriver request/response exchange. The
// response envelope's "value" field is decoded into out when non-nil.
func (s *Session) roundTrip(ctx context.Context, method, url string, body interface{}, out *json.RawMessage) error {
	return webdriverRoundTrip(ctx, s.client, method, url, body, out)
}

// webdriverRoundTrip is shared between session commands and the
// broker's new-session request.
func webdriverRoundTrip(ctx context.Context, client *http.Client, method, url string, body interface{}, out *json.RawMessage) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("malformed response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		var werr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Value, &werr) == nil && werr.Error != "" {
			return fmt.Errorf("%s: %s (status %d)", werr.Error, werr.Message, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out != nil {
		*out = envelope.Value
	}
	return nil
}
