package resolver

import (
	"fmt"

	"github.com/entrhq/chromekit/pkg/catalog"
)

type requestKind int

const (
	kindExact requestKind = iota
	kindLatestIn
	kindLatest
)

// VersionRequest names the build a caller wants, either as an exact
// version string, as the current build of a release channel, or as the
// newest known-good build overall. Requests are immutable values.
type VersionRequest struct {
	kind    requestKind
	version string
	channel catalog.Channel
}

// Exact requests one specific version, e.g. "128.0.6613.86".
func Exact(version string) VersionRequest {
	return VersionRequest{kind: kindExact, version: version}
}

// LatestIn requests the current build of the given release channel.
func LatestIn(channel catalog.Channel) VersionRequest {
	return VersionRequest{kind: kindLatestIn, channel: channel}
}

// Latest requests the newest known-good build that has downloads for
// both the browser and the driver. It may be newer than the current
// stable build; prefer LatestIn(catalog.Stable) for reproducibility.
func Latest() VersionRequest {
	return VersionRequest{kind: kindLatest}
}

func (r VersionRequest) String() string {
	switch r.kind {
	case kindExact:
		return fmt.Sprintf("exact(%s)", r.version)
	case kindLatestIn:
		return fmt.Sprintf("latest-in(%s)", r.channel)
	default:
		return "latest"
	}
}
