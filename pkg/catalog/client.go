// Package catalog provides a client for the Chrome for Testing version
// feeds published at googlechromelabs.github.io. The feeds are plain
// JSON documents describing the known-good builds and the current build
// in each release channel, together with per-platform download URLs.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultBaseURL is the public location of the Chrome for Testing feeds.
const DefaultBaseURL = "https://googlechromelabs.github.io/chrome-for-testing"

const (
	knownGoodPath     = "/known-good-versions-with-downloads.json"
	lastKnownGoodPath = "/last-known-good-versions-with-downloads.json"
)

// Download is a single downloadable archive for one platform.
type Download struct {
	Platform Platform `json:"platform"`
	URL      string   `json:"url"`
}

// DownloadSet groups the downloads of one build by binary kind.
type DownloadSet struct {
	Chrome       []Download `json:"chrome"`
	Chromedriver []Download `json:"chromedriver"`
}

// URLForPlatform returns the download URL for the given platform, or
// false when the build was not published for it.
func URLForPlatform(downloads []Download, p Platform) (string, bool) {
	for _, dl := range downloads {
		if dl.Platform == p {
			return dl.URL, true
		}
	}
	return "", false
}

// VersionEntry is one build in the known-good-versions feed.
type VersionEntry struct {
	Version   string      `json:"version"`
	Revision  string      `json:"revision"`
	Downloads DownloadSet `json:"downloads"`
}

// KnownGood is the decoded known-good-versions feed.
type KnownGood struct {
	Timestamp string         `json:"timestamp"`
	Versions  []VersionEntry `json:"versions"`
}

// ChannelEntry is the current build of one release channel.
type ChannelEntry struct {
	Channel   Channel     `json:"channel"`
	Version   string      `json:"version"`
	Revision  string      `json:"revision"`
	Downloads DownloadSet `json:"downloads"`
}

// LastKnownGood is the decoded last-known-good-versions feed.
type LastKnownGood struct {
	Timestamp string                   `json:"timestamp"`
	Channels  map[Channel]ChannelEntry `json:"channels"`
}

// Client queries the Chrome for Testing feeds. The zero value is not
// usable; construct one with NewClient.
type Client struct {
	baseURL string
	client  *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at an alternative feed location, for
// example a test server or an internal mirror.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.client = hc }
}

// NewClient creates a catalog client for the public feeds.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// KnownGood fetches the full list of known-good builds.
func (c *Client) KnownGood(ctx context.Context) (*KnownGood, error) {
	var feed KnownGood
	if err := c.get(ctx, knownGoodPath, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// LastKnownGood fetches the current build of every release channel.
func (c *Client) LastKnownGood(ctx context.Context) (*LastKnownGood, error) {
	var feed LastKnownGood
	if err := c.get(ctx, lastKnownGoodPath, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build catalog request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog returned status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode catalog response: %w", err)
	}
	return nil
}
