package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/entrhq/chromekit/pkg/logging"
	"github.com/entrhq/chromekit/pkg/resolver"
)

// Cache downloads and extracts build archives on first use and serves
// cached entries thereafter.
type Cache struct {
	fs     afero.Fs
	root   string
	client *http.Client
	group  singleflight.Group
	logger *logging.Logger
}

// Option customizes a Cache.
type Option func(*Cache)

// WithFs replaces the filesystem the cache operates on. Tests use an
// in-memory filesystem.
func WithFs(fs afero.Fs) Option {
	return func(c *Cache) { c.fs = fs }
}

// WithHTTPClient replaces the HTTP client used for archive downloads.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Cache) { c.client = hc }
}

// WithLogger sets the component logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// New creates a cache rooted at the given directory. The directory is
// created lazily on first use.
func New(root string, opts ...Option) *Cache {
	c := &Cache{
		fs:     afero.NewOsFs(),
		root:   root,
		client: &http.Client{Timeout: 10 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger, _ = logging.NewLogger("cache")
	}
	return c
}

// Root returns the cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// EnsureDownloaded guarantees the binaries named by the descriptor
// exist locally and returns their paths. A completed entry is returned
// without network access. Concurrent calls for the same descriptor
// share a single download and extraction; calls for different
// descriptors proceed independently.
func (c *Cache) EnsureDownloaded(ctx context.Context, desc resolver.BuildDescriptor) (Entry, error) {
	// The first caller's context governs the shared flight; later
	// callers wait for its outcome.
	v, err, _ := c.group.Do(desc.Key(), func() (interface{}, error) {
		return c.ensure(ctx, desc)
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

// Clear removes every cached entry and recreates the cache root.
func (c *Cache) Clear(ctx context.Context) error {
	c.logger.Infof("Clearing cache at %s", c.root)
	if err := c.fs.RemoveAll(c.root); err != nil {
		return fmt.Errorf("failed to clear cache root %s: %w", c.root, err)
	}
	return c.fs.MkdirAll(c.root, 0o755)
}

func (c *Cache) ensure(ctx context.Context, desc resolver.BuildDescriptor) (Entry, error) {
	entryDir := filepath.Join(c.root, desc.Version, string(desc.Platform))
	entry := Entry{
		Version:     desc.Version,
		Platform:    desc.Platform,
		Dir:         entryDir,
		BrowserPath: browserExecutable(entryDir, desc.Platform),
		DriverPath:  driverExecutable(entryDir, desc.Platform),
	}

	marker := filepath.Join(entryDir, completeMarker)
	if ok, _ := afero.Exists(c.fs, marker); ok {
		c.logger.Debugf("Cache hit for %s", desc.Key())
		return entry, nil
	}

	if err := c.fs.MkdirAll(entryDir, 0o755); err != nil {
		return Entry{}, fmt.Errorf("%w: failed to create entry dir %s: %v", ErrExtraction, entryDir, err)
	}

	for _, role := range []resolver.Role{resolver.RoleBrowser, resolver.RoleDriver} {
		url, ok := desc.URLs[role]
		if !ok {
			return Entry{}, fmt.Errorf("%w: descriptor %s has no %s download", ErrDownload, desc.Key(), role)
		}

		archive := filepath.Join(entryDir, string(role)+".zip")
		c.logger.Infof("Downloading %s %s for %s from %s", role, desc.Version, desc.Platform, url)
		if err := c.download(ctx, url, archive); err != nil {
			return Entry{}, err
		}

		c.logger.Infof("Extracting %s into %s", role, entryDir)
		if err := c.extract(archive, entryDir); err != nil {
			return Entry{}, err
		}

		// The archive is transient; only the extracted tree is cached.
		if err := c.fs.Remove(archive); err != nil {
			c.logger.Warnf("Failed to remove archive %s: %v", archive, err)
		}
	}

	// Written last: readers treat the marker as proof the extraction
	// fully completed.
	stamp := []byte(time.Now().UTC().Format(time.RFC3339) + "\n")
	if err := afero.WriteFile(c.fs, marker, stamp, 0o644); err != nil {
		return Entry{}, fmt.Errorf("%w: failed to write completeness marker: %v", ErrExtraction, err)
	}

	return entry, nil
}

// download fetches one archive to the given path. Non-2xx responses
// and empty bodies are download failures.
func (c *Cache) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: invalid url %s: %v", ErrDownload, url, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDownload, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned status %d", ErrDownload, url, resp.StatusCode)
	}

	file, err := c.fs.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: failed to create %s: %v", ErrDownload, dest, err)
	}

	written, err := io.Copy(file, resp.Body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", ErrDownload, dest, err)
	}
	if written == 0 {
		return fmt.Errorf("%w: %s returned an empty body", ErrDownload, url)
	}
	return nil
}
