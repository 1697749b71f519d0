package session

import (
	"os"

	"github.com/entrhq/chromekit/pkg/cache"
)

// Capabilities describes the browser a new session should launch.
type Capabilities struct {
	// BrowserName is the WebDriver browser name.
	BrowserName string

	// BinaryPath points the driver at a specific browser executable,
	// typically the one from a cache entry.
	BinaryPath string

	// Headless runs the browser without a visible window.
	Headless bool

	// Args are additional browser command line switches.
	Args []string
}

// DefaultCapabilities returns headless capabilities bound to the
// browser binary of a cache entry.
func DefaultCapabilities(entry cache.Entry) Capabilities {
	return Capabilities{
		BrowserName: "chrome",
		BinaryPath:  entry.BrowserPath,
		Headless:    true,
	}
}

// payload builds the W3C new-session request body.
func (c Capabilities) payload() map[string]interface{} {
	args := make([]string, 0, len(c.Args)+2)
	if c.Headless {
		args = append(args, "--headless=new")
	}
	if os.Getuid() == 0 {
		// Chrome refuses to sandbox when running as root, e.g. in a
		// Linux container.
		args = append(args, "--no-sandbox")
	}
	args = append(args, c.Args...)

	chromeOptions := map[string]interface{}{
		"args": args,
	}
	if c.BinaryPath != "" {
		chromeOptions["binary"] = c.BinaryPath
	}

	name := c.BrowserName
	if name == "" {
		name = "chrome"
	}

	return map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": map[string]interface{}{
				"browserName":        name,
				"goog:chromeOptions": chromeOptions,
			},
		},
	}
}
