// internal/browser/driver.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/johnjkle/traderev/internal/config"
)

var (
	// ErrNoSuchElement is returned when a lookup that expects one match finds none.
	ErrNoSuchElement = errors.New("no such element")
	// ErrAmbiguousElement is returned when a lookup that expects one match finds several.
	ErrAmbiguousElement = errors.New("ambiguous element")
	// ErrNoSuchWindow is returned when switching to a handle the browser does not know.
	ErrNoSuchWindow = errors.New("no such window")
	// ErrDriverClosed is returned by operations on a driver after Quit.
	ErrDriverClosed = errors.New("driver closed")
)

// Driver is the set of browser capabilities the suite relies on. Each backend
// (chromedp, playwright, webdriver) provides one implementation.
type Driver interface {
	// Name identifies the backend and browser, e.g. "chromedp/chrome".
	Name() string
	Navigate(ctx context.Context, url string) error
	// FindElement returns the single element matching loc in the current window.
	FindElement(ctx context.Context, loc Locator) (Element, error)
	// FindElements returns every match in document order. No match is not an error.
	FindElements(ctx context.Context, loc Locator) ([]Element, error)
	// WindowHandles lists open windows in the order the driver first saw them.
	WindowHandles(ctx context.Context) ([]string, error)
	SwitchToWindow(ctx context.Context, handle string) error
	// WaitForDocument blocks until the current window has a loaded document that
	// contains sentinel. Backends differ in how a freshly switched-to tab settles,
	// so this is where that difference lives.
	WaitForDocument(ctx context.Context, sentinel Locator, timeout time.Duration) error
	SetWindowSize(ctx context.Context, width, height int) error
	Screenshot(ctx context.Context) ([]byte, error)
	// Quit terminates the browser and every window it owns.
	Quit(ctx context.Context) error
}

// Element is a handle to a rendered DOM element.
type Element interface {
	// Click clicks the element. A page load the click starts in the same window
	// has finished when Click returns.
	Click(ctx context.Context) error
	// Text returns the rendered (visible) text of the element.
	Text(ctx context.Context) (string, error)
	IsDisplayed(ctx context.Context) (bool, error)
	FindElement(ctx context.Context, loc Locator) (Element, error)
	FindElements(ctx context.Context, loc Locator) ([]Element, error)
}

// Factory starts a new browser and returns a driver for it. A factory that fails
// must not leave a browser process behind.
type Factory func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Driver, error)

// ExactlyOne enforces the single-match contract shared by every backend.
func ExactlyOne[E any](loc Locator, matches []E) (E, error) {
	var zero E
	switch len(matches) {
	case 0:
		return zero, fmt.Errorf("%s: %w", loc, ErrNoSuchElement)
	case 1:
		return matches[0], nil
	default:
		return zero, fmt.Errorf("%s matched %d elements: %w", loc, len(matches), ErrAmbiguousElement)
	}
}
