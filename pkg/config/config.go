// Package config holds the settings of the toolchain manager: where
// the artifact cache lives, which catalog to query, and the process
// supervision timeouts. Settings load from an optional yaml file and
// fall back to defaults field by field.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the configuration for the toolchain manager.
type Config struct {
	// CacheDir is the root of the shared on-disk artifact cache.
	CacheDir string `yaml:"cache_dir"`

	// CatalogURL is the base URL of the Chrome for Testing feeds.
	CatalogURL string `yaml:"catalog_url"`

	// ReadyTimeout bounds the wait for the driver readiness signal.
	ReadyTimeout time.Duration `yaml:"ready_timeout"`

	// GraceTimeout bounds the graceful-termination wait.
	GraceTimeout time.Duration `yaml:"grace_timeout"`

	// KillTimeout bounds the wait after a forced kill.
	KillTimeout time.Duration `yaml:"kill_timeout"`
}

// Default returns the configuration used when no file overrides it.
// The cache lives in ~/.chromekit/cache; a relative fallback is used
// when the home directory cannot be determined.
func Default() *Config {
	cacheDir := ".chromekit/cache"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".chromekit", "cache")
	}
	return &Config{
		CacheDir:     cacheDir,
		CatalogURL:   "https://googlechromelabs.github.io/chrome-for-testing",
		ReadyTimeout: 10 * time.Second,
		GraceTimeout: 3 * time.Second,
		KillTimeout:  3 * time.Second,
	}
}

// Load reads a yaml config file and merges it over the defaults. A
// missing file is not an error; it yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.merge(&file)
	return cfg, nil
}

// UnmarshalYAML decodes durations from strings like "30s", which the
// yaml package does not do for time.Duration on its own.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		CacheDir     string `yaml:"cache_dir"`
		CatalogURL   string `yaml:"catalog_url"`
		ReadyTimeout string `yaml:"ready_timeout"`
		GraceTimeout string `yaml:"grace_timeout"`
		KillTimeout  string `yaml:"kill_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.CacheDir = raw.CacheDir
	c.CatalogURL = raw.CatalogURL

	for _, f := range []struct {
		name string
		in   string
		out  *time.Duration
	}{
		{"ready_timeout", raw.ReadyTimeout, &c.ReadyTimeout},
		{"grace_timeout", raw.GraceTimeout, &c.GraceTimeout},
		{"kill_timeout", raw.KillTimeout, &c.KillTimeout},
	} {
		if f.in == "" {
			continue
		}
		d, err := time.ParseDuration(f.in)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", f.name, f.in, err)
		}
		*f.out = d
	}
	return nil
}

// merge copies every non-zero field of other over c.
func (c *Config) merge(other *Config) {
	if other.CacheDir != "" {
		c.CacheDir = other.CacheDir
	}
	if other.CatalogURL != "" {
		c.CatalogURL = other.CatalogURL
	}
	if other.ReadyTimeout != 0 {
		c.ReadyTimeout = other.ReadyTimeout
	}
	if other.GraceTimeout != 0 {
		c.GraceTimeout = other.GraceTimeout
	}
	if other.KillTimeout != 0 {
		c.KillTimeout = other.KillTimeout
	}
}
