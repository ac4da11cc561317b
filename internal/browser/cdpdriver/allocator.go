// internal/browser/cdpdriver/allocator.go
package cdpdriver

import (
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/johnjkle/traderev/internal/config"
)

// allocatorFlags maps command line switches to values. A false value removes a
// switch that chromedp would otherwise pass by default.
func allocatorFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"headless":                 cfg.Headless,
		"hide-scrollbars":          cfg.Headless,
		"mute-audio":               true,
		"no-sandbox":               true,
		"disable-dev-shm-usage":    true,
		"disable-popup-blocking":   true,
		"no-first-run":             true,
		"no-default-browser-check": true,
	}
	if cfg.Headless {
		flags["disable-gpu"] = true
	}
	if cfg.DisableCache {
		flags["disk-cache-size"] = "0"
		flags["disable-application-cache"] = true
	}
	if cfg.IgnoreTLSErrors {
		flags["ignore-certificate-errors"] = true
	}

	// User supplied args win over everything above.
	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			flags[name] = value
		} else {
			flags[name] = true
		}
	}
	return flags
}

// AllocatorOptions builds the exec allocator options for a chrome session.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	opts = append(opts, chromedp.WindowSize(cfg.Viewport.Width, cfg.Viewport.Height))
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}
