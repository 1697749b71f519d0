package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lastKnownGoodFixture = `{
  "timestamp": "2025-08-20T10:00:00.000Z",
  "channels": {
    "Stable": {
      "channel": "Stable",
      "version": "128.0.6613.86",
      "revision": "1331488",
      "downloads": {
        "chrome": [
          {"platform": "linux64", "url": "https://example.com/chrome-linux64.zip"},
          {"platform": "mac-arm64", "url": "https://example.com/chrome-mac-arm64.zip"}
        ],
        "chromedriver": [
          {"platform": "linux64", "url": "https://example.com/chromedriver-linux64.zip"},
          {"platform": "mac-arm64", "url": "https://example.com/chromedriver-mac-arm64.zip"}
        ]
      }
    },
    "Beta": {
      "channel": "Beta",
      "version": "129.0.6668.12",
      "revision": "1337001",
      "downloads": {
        "chrome": [{"platform": "linux64", "url": "https://example.com/beta-chrome.zip"}],
        "chromedriver": [{"platform": "linux64", "url": "https://example.com/beta-chromedriver.zip"}]
      }
    }
  }
}`

const knownGoodFixture = `{
  "timestamp": "2025-08-20T10:00:00.000Z",
  "versions": [
    {
      "version": "113.0.5672.0",
      "revision": "1121455",
      "downloads": {
        "chrome": [{"platform": "linux64", "url": "https://example.com/old-chrome.zip"}],
        "chromedriver": []
      }
    },
    {
      "version": "128.0.6613.86",
      "revision": "1331488",
      "downloads": {
        "chrome": [{"platform": "linux64", "url": "https://example.com/chrome.zip"}],
        "chromedriver": [{"platform": "linux64", "url": "https://example.com/chromedriver.zip"}]
      }
    }
  ]
}`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/last-known-good-versions-with-downloads.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(lastKnownGoodFixture))
	})
	mux.HandleFunc("/known-good-versions-with-downloads.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(knownGoodFixture))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClient_LastKnownGood(t *testing.T) {
	server := newFeedServer(t)
	client := NewClient(WithBaseURL(server.URL))

	feed, err := client.LastKnownGood(context.Background())
	require.NoError(t, err)

	stable, ok := feed.Channels[Stable]
	require.True(t, ok)
	assert.Equal(t, "128.0.6613.86", stable.Version)

	url, ok := URLForPlatform(stable.Downloads.Chromedriver, Linux64)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/chromedriver-linux64.zip", url)

	_, ok = URLForPlatform(stable.Downloads.Chrome, Win64)
	assert.False(t, ok)
}

func TestClient_KnownGood(t *testing.T) {
	server := newFeedServer(t)
	client := NewClient(WithBaseURL(server.URL))

	feed, err := client.KnownGood(context.Background())
	require.NoError(t, err)
	require.Len(t, feed.Versions, 2)
	assert.Equal(t, "113.0.5672.0", feed.Versions[0].Version)
	assert.Empty(t, feed.Versions[0].Downloads.Chromedriver)
}

func TestClient_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.LastKnownGood(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.KnownGood(context.Background())
	require.Error(t, err)
}

func TestParseChannel(t *testing.T) {
	tests := []struct {
		in      string
		want    Channel
		wantErr bool
	}{
		{in: "stable", want: Stable},
		{in: "Stable", want: Stable},
		{in: "BETA", want: Beta},
		{in: "dev", want: Dev},
		{in: "canary", want: Canary},
		{in: "nightly", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseChannel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestDetectPlatform(t *testing.T) {
	p, err := DetectPlatform()
	require.NoError(t, err)
	assert.NotEmpty(t, p)
}
