// internal/browser/wddriver/driver.go
package wddriver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
	"go.uber.org/zap"

	"github.com/johnjkle/traderev/internal/browser"
	"github.com/johnjkle/traderev/internal/config"
	"github.com/johnjkle/traderev/internal/wait"
)

const documentPollInterval = 100 * time.Millisecond

// Driver speaks the W3C WebDriver protocol to chromedriver, geckodriver or a
// remote Selenium endpoint.
type Driver struct {
	logger  *zap.Logger
	name    string
	wd      selenium.WebDriver
	service *selenium.Service

	mu      sync.Mutex
	handles []string
	closed  bool
}

var _ browser.Driver = (*Driver)(nil)

// capabilities builds the session request for the configured browser.
func capabilities(cfg config.BrowserConfig) (selenium.Capabilities, error) {
	size := fmt.Sprintf("%d,%d", cfg.Viewport.Width, cfg.Viewport.Height)
	switch cfg.Name {
	case config.BrowserChrome:
		args := []string{"--window-size=" + size, "--disable-dev-shm-usage", "--no-sandbox"}
		if cfg.Headless {
			args = append(args, "--headless=new", "--disable-gpu")
		}
		if cfg.IgnoreTLSErrors {
			args = append(args, "--ignore-certificate-errors")
		}
		caps := selenium.Capabilities{"browserName": "chrome"}
		caps.AddChrome(chrome.Capabilities{
			Args: append(args, cfg.Args...),
			Path: cfg.ExecPath,
			W3C:  true,
		})
		return caps, nil
	case config.BrowserFirefox:
		var args []string
		if cfg.Headless {
			args = append(args, "-headless")
		}
		caps := selenium.Capabilities{"browserName": "firefox"}
		if cfg.IgnoreTLSErrors {
			caps["acceptInsecureCerts"] = true
		}
		caps.AddFirefox(firefox.Capabilities{
			Binary: cfg.ExecPath,
			Args:   append(args, cfg.Args...),
		})
		return caps, nil
	default:
		return nil, fmt.Errorf("webdriver backend cannot drive %q", cfg.Name)
	}
}

// startService launches the local driver binary for the browser.
func startService(cfg config.BrowserConfig) (*selenium.Service, string, error) {
	port := cfg.WebDriver.Port
	var (
		svc *selenium.Service
		err error
	)
	switch cfg.Name {
	case config.BrowserFirefox:
		svc, err = selenium.NewGeckoDriverService(cfg.WebDriver.GeckoDriverPath, port)
	default:
		svc, err = selenium.NewChromeDriverService(cfg.WebDriver.ChromeDriverPath, port)
	}
	if err != nil {
		return nil, "", fmt.Errorf("starting %s driver service on port %d: %w", cfg.Name, port, err)
	}
	return svc, fmt.Sprintf("http://127.0.0.1:%d", port), nil
}

// New opens a WebDriver session. A driver service started here is stopped again
// if the session cannot be created.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (browser.Driver, error) {
	caps, err := capabilities(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.Named("webdriver").With(zap.String("browser", cfg.Name))
	selenium.SetDebug(cfg.Debug)

	d := &Driver{logger: log, name: cfg.Name}
	url := cfg.WebDriver.RemoteURL
	if url == "" {
		if d.service, url, err = startService(cfg); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		d.stopService()
		return nil, err
	}

	if d.wd, err = selenium.NewRemote(caps, url); err != nil {
		d.stopService()
		return nil, fmt.Errorf("creating webdriver session at %s: %w", url, err)
	}
	if err := d.wd.ResizeWindow("", cfg.Viewport.Width, cfg.Viewport.Height); err != nil {
		_ = d.wd.Quit()
		d.stopService()
		return nil, fmt.Errorf("sizing initial window: %w", err)
	}
	log.Debug("WebDriver session created.", zap.String("url", url), zap.String("session_id", d.wd.SessionID()))
	return d, nil
}

func (d *Driver) Name() string { return config.BackendWebDriver + "/" + d.name }

func (d *Driver) stopService() {
	if d.service == nil {
		return
	}
	if err := d.service.Stop(); err != nil {
		d.logger.Warn("Failed to stop driver service.", zap.Error(err))
	}
	d.service = nil
}

func (d *Driver) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return browser.ErrDriverClosed
	}
	return nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := d.wd.SetPageLoadTimeout(time.Until(deadline)); err != nil {
			d.logger.Debug("Could not set page load timeout.", zap.Error(err))
		}
	}
	if err := d.wd.Get(url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (d *Driver) FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	all, err := d.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	return browser.ExactlyOne(loc, all)
}

func (d *Driver) FindElements(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if err := d.ready(ctx); err != nil {
		return nil, err
	}
	found, err := d.wd.FindElements(selenium.ByCSSSelector, loc.CSS())
	if err != nil {
		if isNoSuchElement(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding %s: %w", loc, err)
	}
	return wrap(found), nil
}

// WindowHandles keeps handles in first-seen order, whatever order the remote end
// happens to report them in.
func (d *Driver) WindowHandles(ctx context.Context) ([]string, error) {
	if err := d.ready(ctx); err != nil {
		return nil, err
	}
	current, err := d.wd.WindowHandles()
	if err != nil {
		return nil, fmt.Errorf("listing windows: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	ordered := make([]string, 0, len(current))
	for _, h := range d.handles {
		if slices.Contains(current, h) {
			ordered = append(ordered, h)
		}
	}
	for _, h := range current {
		if !slices.Contains(ordered, h) {
			ordered = append(ordered, h)
		}
	}
	d.handles = ordered
	return slices.Clone(ordered), nil
}

func (d *Driver) SwitchToWindow(ctx context.Context, handle string) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	if err := d.wd.SwitchWindow(handle); err != nil {
		return fmt.Errorf("switching to %q: %w: %v", handle, browser.ErrNoSuchWindow, err)
	}
	return nil
}

// WaitForDocument polls document.readyState and the sentinel. geckodriver can
// answer commands for a freshly switched window before its document exists, so a
// script error counts as not ready yet.
func (d *Driver) WaitForDocument(ctx context.Context, sentinel browser.Locator, timeout time.Duration) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	what := fmt.Sprintf("document with %s", sentinel)
	return wait.Until(ctx, what, timeout, documentPollInterval, func(ctx context.Context) (bool, error) {
		state, err := d.wd.ExecuteScript("return document.readyState", nil)
		if err != nil || (state != "interactive" && state != "complete") {
			return false, nil
		}
		found, err := d.FindElements(ctx, sentinel)
		if err != nil {
			return false, nil
		}
		return len(found) > 0, nil
	})
}

func (d *Driver) SetWindowSize(ctx context.Context, width, height int) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	if err := d.wd.ResizeWindow("", width, height); err != nil {
		return fmt.Errorf("resizing window to %dx%d: %w", width, height, err)
	}
	return nil
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := d.ready(ctx); err != nil {
		return nil, err
	}
	png, err := d.wd.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return png, nil
}

func (d *Driver) Quit(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	err := d.wd.Quit()
	d.stopService()
	if err != nil {
		return fmt.Errorf("quitting webdriver session: %w", err)
	}
	return nil
}

func isNoSuchElement(err error) bool {
	var se *selenium.Error
	return errors.As(err, &se) && se.Err == "no such element"
}
