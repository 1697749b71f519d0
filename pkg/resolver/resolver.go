// Package resolver turns abstract version requests into concrete,
// platform-specific build descriptors by querying the Chrome for
// Testing catalog.
package resolver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/entrhq/chromekit/pkg/catalog"
)

// Catalog is the slice of the catalog client the resolver consumes.
type Catalog interface {
	KnownGood(ctx context.Context) (*catalog.KnownGood, error)
	LastKnownGood(ctx context.Context) (*catalog.LastKnownGood, error)
}

// Resolver resolves version requests against a catalog. The target
// platform is detected once at construction and never changes for the
// lifetime of the resolver; a single request never spans platforms.
type Resolver struct {
	catalog  Catalog
	platform catalog.Platform
}

// New creates a resolver for the platform the process is running on.
func New(cat Catalog) (*Resolver, error) {
	platform, err := catalog.DetectPlatform()
	if err != nil {
		return nil, err
	}
	return NewForPlatform(cat, platform), nil
}

// NewForPlatform creates a resolver pinned to an explicit platform.
func NewForPlatform(cat Catalog, platform catalog.Platform) *Resolver {
	return &Resolver{catalog: cat, platform: platform}
}

// Platform returns the platform requests are resolved for.
func (r *Resolver) Platform() catalog.Platform {
	return r.platform
}

// Resolve turns a version request into a build descriptor. Catalog
// failures are surfaced as ErrCatalog without retrying.
func (r *Resolver) Resolve(ctx context.Context, req VersionRequest) (BuildDescriptor, error) {
	switch req.kind {
	case kindExact:
		return r.resolveExact(ctx, req.version)
	case kindLatestIn:
		return r.resolveChannel(ctx, req.channel)
	default:
		return r.resolveLatest(ctx)
	}
}

func (r *Resolver) resolveExact(ctx context.Context, version string) (BuildDescriptor, error) {
	feed, err := r.catalog.KnownGood(ctx)
	if err != nil {
		return BuildDescriptor{}, fmt.Errorf("%w: %w", ErrCatalog, err)
	}

	for _, entry := range feed.Versions {
		if entry.Version != version {
			continue
		}
		desc, ok := r.describe(entry.Version, entry.Downloads)
		if !ok {
			return BuildDescriptor{}, fmt.Errorf("%w: version %s has no downloads for platform %s",
				ErrVersionNotFound, version, r.platform)
		}
		return desc, nil
	}
	return BuildDescriptor{}, fmt.Errorf("%w: version %s", ErrVersionNotFound, version)
}

func (r *Resolver) resolveChannel(ctx context.Context, channel catalog.Channel) (BuildDescriptor, error) {
	feed, err := r.catalog.LastKnownGood(ctx)
	if err != nil {
		return BuildDescriptor{}, fmt.Errorf("%w: %w", ErrCatalog, err)
	}

	entry, ok := feed.Channels[channel]
	if !ok {
		return BuildDescriptor{}, fmt.Errorf("%w: channel %s", ErrChannelUnavailable, channel)
	}
	desc, ok := r.describe(entry.Version, entry.Downloads)
	if !ok {
		return BuildDescriptor{}, fmt.Errorf("%w: channel %s has no downloads for platform %s",
			ErrChannelUnavailable, channel, r.platform)
	}
	return desc, nil
}

func (r *Resolver) resolveLatest(ctx context.Context) (BuildDescriptor, error) {
	feed, err := r.catalog.KnownGood(ctx)
	if err != nil {
		return BuildDescriptor{}, fmt.Errorf("%w: %w", ErrCatalog, err)
	}

	var (
		best  BuildDescriptor
		found bool
	)
	for _, entry := range feed.Versions {
		desc, ok := r.describe(entry.Version, entry.Downloads)
		if !ok {
			// Older builds were published without chromedriver archives.
			continue
		}
		if !found || compareVersions(desc.Version, best.Version) > 0 {
			best = desc
			found = true
		}
	}
	if !found {
		return BuildDescriptor{}, fmt.Errorf("%w: no known-good build with downloads for platform %s",
			ErrVersionNotFound, r.platform)
	}
	return best, nil
}

// describe builds a descriptor from one feed entry, requiring both the
// browser and driver archives to exist for the resolver's platform.
func (r *Resolver) describe(version string, downloads catalog.DownloadSet) (BuildDescriptor, bool) {
	browserURL, ok := catalog.URLForPlatform(downloads.Chrome, r.platform)
	if !ok {
		return BuildDescriptor{}, false
	}
	driverURL, ok := catalog.URLForPlatform(downloads.Chromedriver, r.platform)
	if !ok {
		return BuildDescriptor{}, false
	}
	return BuildDescriptor{
		Version:  version,
		Platform: r.platform,
		URLs: map[Role]string{
			RoleBrowser: browserURL,
			RoleDriver:  driverURL,
		},
	}, true
}

// compareVersions compares two dotted version strings numerically,
// segment by segment. Returns -1, 0, or 1.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var an, bn int
		if i < len(as) {
			an, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bn, _ = strconv.Atoi(bs[i])
		}
		if an != bn {
			if an < bn {
				return -1
			}
			return 1
		}
	}
	return 0
}
