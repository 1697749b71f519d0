package resolver

import (
	"fmt"

	"github.com/entrhq/chromekit/pkg/catalog"
)

// Role names one binary inside a resolved build.
type Role string

const (
	// RoleBrowser is the Chrome for Testing browser binary.
	RoleBrowser Role = "browser"

	// RoleDriver is the chromedriver binary.
	RoleDriver Role = "driver"
)

// BuildDescriptor is the resolved, platform-specific metadata of one
// release: its version, the platform it was resolved for, and the
// archive URL of every binary role. Descriptors are immutable and the
// (version, platform) pair uniquely identifies a cache entry.
type BuildDescriptor struct {
	Version  string
	Platform catalog.Platform
	URLs     map[Role]string
}

// Key returns the cache key of the descriptor.
func (d BuildDescriptor) Key() string {
	return fmt.Sprintf("%s-%s", d.Version, d.Platform)
}
