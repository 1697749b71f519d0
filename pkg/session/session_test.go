package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/chromekit/pkg/cache"
)

// staticEndpoint points the broker at a fixed URL.
type staticEndpoint string

func (e staticEndpoint) URL() (string, error) {
	return string(e), nil
}

// deadEndpoint mimics a terminated driver process.
type deadEndpoint struct{}

func (deadEndpoint) URL() (string, error) {
	return "", errors.New("driver process terminated")
}

// fakeWebDriver is a minimal WebDriver remote end.
type fakeWebDriver struct {
	*httptest.Server

	mu         sync.Mutex
	nextID     int
	open       map[string]bool
	deleted    int
	failDelete bool
	urls       map[string]string
}

func newFakeWebDriver(t *testing.T) *fakeWebDriver {
	t.Helper()
	f := &fakeWebDriver{
		open: make(map[string]bool),
		urls: make(map[string]string),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeWebDriver) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Method == http.MethodPost && r.URL.Path == "/session" {
		f.nextID++
		id := fmt.Sprintf("sess-%d", f.nextID)
		f.open[id] = true
		writeValue(w, http.StatusOK, map[string]interface{}{
			"sessionId":    id,
			"capabilities": map[string]interface{}{"browserName": "chrome"},
		})
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/session/"), "/")
	id := parts[0]
	if !f.open[id] {
		writeValue(w, http.StatusNotFound, map[string]interface{}{
			"error":   "invalid session id",
			"message": "session " + id + " is not open",
		})
		return
	}

	switch {
	case r.Method == http.MethodDelete && len(parts) == 1:
		if f.failDelete {
			writeValue(w, http.StatusInternalServerError, map[string]interface{}{
				"error":   "unknown error",
				"message": "close refused",
			})
			return
		}
		delete(f.open, id)
		f.deleted++
		writeValue(w, http.StatusOK, nil)

	case r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "url":
		var body struct {
			URL string `json:"url"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.urls[id] = body.URL
		writeValue(w, http.StatusOK, nil)

	case r.Method == http.MethodGet && len(parts) == 2 && parts[1] == "url":
		writeValue(w, http.StatusOK, f.urls[id])

	case r.Method == http.MethodGet && len(parts) == 2 && parts[1] == "title":
		writeValue(w, http.StatusOK, "Fake Page")

	case r.Method == http.MethodPost && len(parts) == 3 && parts[1] == "execute" && parts[2] == "sync":
		writeValue(w, http.StatusOK, 42)

	default:
		writeValue(w, http.StatusNotFound, map[string]interface{}{
			"error":   "unknown command",
			"message": r.Method + " " + r.URL.Path,
		})
	}
}

func (f *fakeWebDriver) setFailDelete(fail bool) {
	f.mu.Lock()
	f.failDelete = fail
	f.mu.Unlock()
}

func (f *fakeWebDriver) deletedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleted
}

func (f *fakeWebDriver) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.open)
}

func writeValue(w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"value": value})
}

func TestBroker_OpenAndClose(t *testing.T) {
	server := newFakeWebDriver(t)
	broker := NewBroker()

	s, err := broker.Open(context.Background(), staticEndpoint(server.URL), Capabilities{})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, 1, server.openCount())

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 0, server.openCount())
	assert.Equal(t, 1, server.deletedCount())
}

func TestBroker_OpenAgainstDeadEndpoint(t *testing.T) {
	broker := NewBroker()

	_, err := broker.Open(context.Background(), deadEndpoint{}, Capabilities{})
	assert.ErrorIs(t, err, ErrSessionCreate)
}

func TestSession_Commands(t *testing.T) {
	server := newFakeWebDriver(t)
	broker := NewBroker()
	ctx := context.Background()

	s, err := broker.Open(ctx, staticEndpoint(server.URL), Capabilities{})
	require.NoError(t, err)
	defer s.Close(ctx)

	require.NoError(t, s.Navigate(ctx, "https://example.com"))

	url, err := s.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", url)

	title, err := s.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Fake Page", title)

	result, err := s.ExecuteScript(ctx, "return 42")
	require.NoError(t, err)
	assert.JSONEq(t, "42", string(result))
}

func TestSession_CommandAfterClose(t *testing.T) {
	server := newFakeWebDriver(t)
	broker := NewBroker()
	ctx := context.Background()

	s, err := broker.Open(ctx, staticEndpoint(server.URL), Capabilities{})
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))

	err = s.Navigate(ctx, "https://example.com")
	assert.ErrorIs(t, err, ErrSessionClosed)

	_, err = s.Title(ctx)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_CloseIdempotent(t *testing.T) {
	server := newFakeWebDriver(t)
	broker := NewBroker()
	ctx := context.Background()

	s, err := broker.Open(ctx, staticEndpoint(server.URL), Capabilities{})
	require.NoError(t, err)

	require.NoError(t, s.Close(ctx))
	assert.NoError(t, s.Close(ctx), "second close must be a no-op")
	assert.Equal(t, 1, server.deletedCount())
}

func TestWithSession_ClosesOnSuccess(t *testing.T) {
	server := newFakeWebDriver(t)
	broker := NewBroker()

	var captured *Session
	err := broker.WithSession(context.Background(), staticEndpoint(server.URL), Capabilities{},
		func(ctx context.Context, s *Session) error {
			captured = s
			return s.Navigate(ctx, "https://example.com")
		})
	require.NoError(t, err)
	assert.Equal(t, 1, server.deletedCount())

	// A further command on the captured session must fail as closed.
	err = captured.Navigate(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestWithSession_BodyErrorWinsOverCloseError(t *testing.T) {
	server := newFakeWebDriver(t)
	server.setFailDelete(true)
	broker := NewBroker()

	bodyErr := errors.New("assertion failed")
	err := broker.WithSession(context.Background(), staticEndpoint(server.URL), Capabilities{},
		func(ctx context.Context, s *Session) error {
			return bodyErr
		})
	assert.ErrorIs(t, err, bodyErr, "the body's error must not be masked by the close failure")
}

func TestWithSession_CloseFailureSurfaced(t *testing.T) {
	server := newFakeWebDriver(t)
	server.setFailDelete(true)
	broker := NewBroker()

	err := broker.WithSession(context.Background(), staticEndpoint(server.URL), Capabilities{},
		func(ctx context.Context, s *Session) error {
			return nil
		})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionClose)
}

func TestWithSession_ClosesOnPanic(t *testing.T) {
	server := newFakeWebDriver(t)
	broker := NewBroker()

	assert.Panics(t, func() {
		_ = broker.WithSession(context.Background(), staticEndpoint(server.URL), Capabilities{},
			func(ctx context.Context, s *Session) error {
				panic("body exploded")
			})
	})
	assert.Equal(t, 1, server.deletedCount(), "session must be closed even when the body panics")
}

func TestWithSession_ClosesOnCancellation(t *testing.T) {
	server := newFakeWebDriver(t)
	broker := NewBroker()

	ctx, cancel := context.WithCancel(context.Background())
	err := broker.WithSession(ctx, staticEndpoint(server.URL), Capabilities{},
		func(ctx context.Context, s *Session) error {
			cancel()
			return ctx.Err()
		})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, server.deletedCount(), "cancellation must not skip the close")
}

func TestWithSession_OpenFailure(t *testing.T) {
	broker := NewBroker()

	called := false
	err := broker.WithSession(context.Background(), deadEndpoint{}, Capabilities{},
		func(ctx context.Context, s *Session) error {
			called = true
			return nil
		})
	assert.ErrorIs(t, err, ErrSessionCreate)
	assert.False(t, called)
}

func TestWithSession_Concurrent(t *testing.T) {
	server := newFakeWebDriver(t)
	broker := NewBroker()

	const sessions = 5
	var wg sync.WaitGroup
	errs := make([]error, sessions)
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = broker.WithSession(context.Background(), staticEndpoint(server.URL), Capabilities{},
				func(ctx context.Context, s *Session) error {
					return s.Navigate(ctx, fmt.Sprintf("https://example.com/%d", i))
				})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "session %d", i)
	}
	assert.Equal(t, sessions, server.deletedCount())
	assert.Equal(t, 0, server.openCount())
}

func TestDefaultCapabilities(t *testing.T) {
	entry := cache.Entry{BrowserPath: "/cache/128/linux64/chrome-linux64/chrome"}
	caps := DefaultCapabilities(entry)

	assert.True(t, caps.Headless)
	assert.Equal(t, entry.BrowserPath, caps.BinaryPath)

	payload := caps.payload()
	always := payload["capabilities"].(map[string]interface{})["alwaysMatch"].(map[string]interface{})
	assert.Equal(t, "chrome", always["browserName"])

	chromeOpts := always["goog:chromeOptions"].(map[string]interface{})
	assert.Equal(t, entry.BrowserPath, chromeOpts["binary"])
	assert.Contains(t, chromeOpts["args"].([]string), "--headless=new")
}
