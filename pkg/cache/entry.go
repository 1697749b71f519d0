package cache

import (
	"path/filepath"

	"github.com/entrhq/chromekit/pkg/catalog"
)

// completeMarker is the file name of the completeness marker inside an
// entry directory. Its presence is the only signal that the entry is
// fully extracted and safe to use.
const completeMarker = ".complete"

// Entry is the local filesystem state of one cached build: absolute
// paths to the extracted executables. Entries are immutable once
// returned.
type Entry struct {
	// Version is the build version the entry was created for.
	Version string

	// Platform is the platform the binaries were built for.
	Platform catalog.Platform

	// Dir is the entry directory under the cache root.
	Dir string

	// BrowserPath is the extracted browser executable.
	BrowserPath string

	// DriverPath is the extracted driver executable.
	DriverPath string
}

// browserExecutable returns the browser binary path inside an entry
// directory. The layout mirrors the Chrome for Testing archives.
func browserExecutable(entryDir string, platform catalog.Platform) string {
	unpacked := filepath.Join(entryDir, "chrome-"+string(platform))
	switch platform {
	case catalog.MacArm64, catalog.MacX64:
		return filepath.Join(unpacked,
			"Google Chrome for Testing.app", "Contents", "MacOS", "Google Chrome for Testing")
	case catalog.Win32, catalog.Win64:
		return filepath.Join(unpacked, "chrome.exe")
	default:
		return filepath.Join(unpacked, "chrome")
	}
}

// driverExecutable returns the chromedriver binary path inside an
// entry directory.
func driverExecutable(entryDir string, platform catalog.Platform) string {
	name := "chromedriver"
	if platform == catalog.Win32 || platform == catalog.Win64 {
		name = "chromedriver.exe"
	}
	return filepath.Join(entryDir, "chromedriver-"+string(platform), name)
}
