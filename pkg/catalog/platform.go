package catalog

import (
	"fmt"
	"runtime"
)

// Platform identifies one of the OS/architecture combinations the
// Chrome for Testing project publishes archives for. The values match
// the platform strings used in the catalog feeds and in archive names.
type Platform string

const (
	Linux64  Platform = "linux64"
	MacArm64 Platform = "mac-arm64"
	MacX64   Platform = "mac-x64"
	Win32    Platform = "win32"
	Win64    Platform = "win64"
)

func (p Platform) String() string {
	return string(p)
}

// DetectPlatform maps the running OS and architecture to a catalog
// platform. Detection is cheap and deterministic, so callers typically
// perform it once at construction time and keep the result for the
// lifetime of the process.
func DetectPlatform() (Platform, error) {
	switch runtime.GOOS {
	case "linux":
		return Linux64, nil
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return MacArm64, nil
		}
		return MacX64, nil
	case "windows":
		if runtime.GOARCH == "386" {
			return Win32, nil
		}
		return Win64, nil
	default:
		return "", fmt.Errorf("unsupported platform: %s/%s", runtime.GOOS, runtime.GOARCH)
	}
}
