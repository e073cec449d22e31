package adapters

import (
	"fmt"
	"runtime"

	"github.com/bigr-systems/guardian/internal/firewall"
)

// DetectPlatform maps runtime.GOOS to the adapter platform names this
// package understands, per platform.py's detect_platform.
func DetectPlatform() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	case "windows":
		return "windows"
	case "linux":
		return "linux"
	default:
		return "unknown"
	}
}

// New returns the Adapter for platformOverride, or for the running
// host when platformOverride is empty, per platform.py's get_adapter.
func New(platformOverride string) (firewall.Adapter, error) {
	target := platformOverride
	if target == "" {
		target = DetectPlatform()
	}

	switch target {
	case "macos":
		return NewMacOSAdapter(), nil
	case "windows":
		return NewWindowsAdapter(), nil
	case "linux":
		return NewLinuxAdapter(), nil
	default:
		return nil, fmt.Errorf("firewall: unsupported platform %q", target)
	}
}
