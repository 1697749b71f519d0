// Package manager composes the resolver, cache, supervisor, and
// session broker into one-call shortcuts: request in, running
// ready-to-use driver out. The manager holds no state beyond its
// collaborators and no locks of its own.
package manager

import (
	"context"
	"net/http"

	"github.com/spf13/afero"

	"github.com/entrhq/chromekit/pkg/cache"
	"github.com/entrhq/chromekit/pkg/catalog"
	"github.com/entrhq/chromekit/pkg/config"
	"github.com/entrhq/chromekit/pkg/driver"
	"github.com/entrhq/chromekit/pkg/logging"
	"github.com/entrhq/chromekit/pkg/resolver"
	"github.com/entrhq/chromekit/pkg/session"
)

// Manager is the facade over the toolchain lifecycle.
type Manager struct {
	cfg      *config.Config
	resolver *resolver.Resolver
	cache    *cache.Cache
	broker   *session.Broker
	logger   *logging.Logger
}

type options struct {
	cfg        *config.Config
	catalog    resolver.Catalog
	platform   catalog.Platform
	httpClient *http.Client
	fs         afero.Fs
}

// Option customizes a Manager.
type Option func(*options)

// WithConfig overrides the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithCatalog replaces the catalog collaborator, e.g. with a fake in
// tests or an internal mirror client.
func WithCatalog(cat resolver.Catalog) Option {
	return func(o *options) { o.catalog = cat }
}

// WithPlatform pins the target platform instead of detecting it.
func WithPlatform(p catalog.Platform) Option {
	return func(o *options) { o.platform = p }
}

// WithHTTPClient replaces the HTTP client used for downloads and
// session traffic.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithFs replaces the filesystem the cache operates on.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// New creates a manager. Platform detection happens here, once, and is
// fixed for the lifetime of the manager.
func New(opts ...Option) (*Manager, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg == nil {
		o.cfg = config.Default()
	}

	logger, _ := logging.NewLogger("manager")

	if o.catalog == nil {
		catOpts := []catalog.ClientOption{catalog.WithBaseURL(o.cfg.CatalogURL)}
		if o.httpClient != nil {
			catOpts = append(catOpts, catalog.WithHTTPClient(o.httpClient))
		}
		o.catalog = catalog.NewClient(catOpts...)
	}

	var res *resolver.Resolver
	if o.platform != "" {
		res = resolver.NewForPlatform(o.catalog, o.platform)
	} else {
		var err error
		res, err = resolver.New(o.catalog)
		if err != nil {
			return nil, err
		}
	}

	cacheOpts := []cache.Option{}
	if o.httpClient != nil {
		cacheOpts = append(cacheOpts, cache.WithHTTPClient(o.httpClient))
	}
	if o.fs != nil {
		cacheOpts = append(cacheOpts, cache.WithFs(o.fs))
	}

	brokerOpts := []session.BrokerOption{}
	if o.httpClient != nil {
		brokerOpts = append(brokerOpts, session.WithHTTPClient(o.httpClient))
	}

	return &Manager{
		cfg:      o.cfg,
		resolver: res,
		cache:    cache.New(o.cfg.CacheDir, cacheOpts...),
		broker:   session.NewBroker(brokerOpts...),
		logger:   logger,
	}, nil
}

// Resolve turns a version request into a build descriptor.
func (m *Manager) Resolve(ctx context.Context, req resolver.VersionRequest) (resolver.BuildDescriptor, error) {
	return m.resolver.Resolve(ctx, req)
}

// EnsureDownloaded guarantees the descriptor's binaries exist locally.
func (m *Manager) EnsureDownloaded(ctx context.Context, desc resolver.BuildDescriptor) (cache.Entry, error) {
	return m.cache.EnsureDownloaded(ctx, desc)
}

// Launch starts the driver of a cached entry on the requested port.
func (m *Manager) Launch(ctx context.Context, entry cache.Entry, port driver.PortRequest) (*driver.Process, error) {
	return driver.Launch(ctx, entry, port, driver.Options{
		ReadyTimeout: m.cfg.ReadyTimeout,
		GraceTimeout: m.cfg.GraceTimeout,
		KillTimeout:  m.cfg.KillTimeout,
	})
}

// Run resolves, caches, and launches in one call, returning a running
// driver handle ready for sessions.
func (m *Manager) Run(ctx context.Context, req resolver.VersionRequest, port driver.PortRequest) (*Chromedriver, error) {
	m.logger.Infof("Running chromedriver for request %s on port %s", req, port)

	desc, err := m.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	entry, err := m.EnsureDownloaded(ctx, desc)
	if err != nil {
		return nil, err
	}
	proc, err := m.Launch(ctx, entry, port)
	if err != nil {
		return nil, err
	}

	return &Chromedriver{
		Entry:  entry,
		proc:   proc,
		broker: m.broker,
		logger: m.logger,
	}, nil
}

// RunLatestStable runs the current stable build on any free port.
func (m *Manager) RunLatestStable(ctx context.Context) (*Chromedriver, error) {
	return m.Run(ctx, resolver.LatestIn(catalog.Stable), driver.AnyPort())
}

// RunLatestBeta runs the current beta build on any free port.
func (m *Manager) RunLatestBeta(ctx context.Context) (*Chromedriver, error) {
	return m.Run(ctx, resolver.LatestIn(catalog.Beta), driver.AnyPort())
}

// RunLatestDev runs the current dev build on any free port.
func (m *Manager) RunLatestDev(ctx context.Context) (*Chromedriver, error) {
	return m.Run(ctx, resolver.LatestIn(catalog.Dev), driver.AnyPort())
}

// RunLatestCanary runs the current canary build on any free port.
func (m *Manager) RunLatestCanary(ctx context.Context) (*Chromedriver, error) {
	return m.Run(ctx, resolver.LatestIn(catalog.Canary), driver.AnyPort())
}

// ClearCache removes every cached entry.
func (m *Manager) ClearCache(ctx context.Context) error {
	return m.cache.Clear(ctx)
}
