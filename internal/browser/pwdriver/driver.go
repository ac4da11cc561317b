// internal/browser/pwdriver/driver.go
package pwdriver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/johnjkle/traderev/internal/browser"
	"github.com/johnjkle/traderev/internal/config"
	"github.com/johnjkle/traderev/internal/wait"
)

// Driver drives Chromium, Firefox or WebKit through Playwright. Each window is a
// page in one browser context.
type Driver struct {
	logger  *zap.Logger
	name    string
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext

	mu      sync.Mutex
	pages   []playwright.Page
	handles map[playwright.Page]string
	current playwright.Page
	closed  bool
}

var _ browser.Driver = (*Driver)(nil)

// engineFor maps a configured browser name to the Playwright engine that runs it.
func engineFor(name string) (string, error) {
	switch name {
	case config.BrowserChrome, config.BrowserChromium:
		return "chromium", nil
	case config.BrowserFirefox:
		return "firefox", nil
	case config.BrowserWebKit:
		return "webkit", nil
	default:
		return "", fmt.Errorf("playwright cannot drive %q", name)
	}
}

func browserType(pw *playwright.Playwright, engine string) playwright.BrowserType {
	switch engine {
	case "firefox":
		return pw.Firefox
	case "webkit":
		return pw.WebKit
	default:
		return pw.Chromium
	}
}

// New starts the Playwright driver, launches the browser and opens the first page.
// Everything started before a failure is torn down again.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (_ browser.Driver, err error) {
	engine, err := engineFor(cfg.Name)
	if err != nil {
		return nil, err
	}
	log := logger.Named("playwright").With(zap.String("engine", engine))

	runOpts := &playwright.RunOptions{
		Browsers: []string{engine},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if cfg.InstallPlaywright {
		log.Info("Installing playwright driver and browser.")
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("installing playwright: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}
	d := &Driver{
		logger:  log,
		name:    cfg.Name,
		pw:      pw,
		handles: make(map[playwright.Page]string),
	}
	defer func() {
		if err != nil {
			_ = d.teardown()
		}
	}()

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args:     cfg.Args,
		Timeout:  timeoutMillis(ctx),
	}
	if cfg.ExecPath != "" {
		launch.ExecutablePath = playwright.String(cfg.ExecPath)
	}
	if d.browser, err = browserType(pw, engine).Launch(launch); err != nil {
		return nil, fmt.Errorf("launching %s: %w", engine, err)
	}

	d.bctx, err = d.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  cfg.Viewport.Width,
			Height: cfg.Viewport.Height,
		},
		IgnoreHttpsErrors: playwright.Bool(cfg.IgnoreTLSErrors),
	})
	if err != nil {
		return nil, fmt.Errorf("creating browser context: %w", err)
	}

	page, err := d.bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("opening first page: %w", err)
	}
	d.track(page)
	d.current = page
	log.Debug("Browser launched.")
	return d, nil
}

func (d *Driver) Name() string { return config.BackendPlaywright + "/" + d.name }

// timeoutMillis converts the ctx deadline into a Playwright timeout. Nil means
// Playwright's own default applies.
func timeoutMillis(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(ms)
}

// track assigns a handle to a page the driver has not seen yet. Callers hold mu
// or own the driver exclusively.
func (d *Driver) track(p playwright.Page) string {
	if h, ok := d.handles[p]; ok {
		return h
	}
	h := uuid.NewString()
	d.handles[p] = h
	d.pages = append(d.pages, p)
	return h
}

func (d *Driver) page(ctx context.Context) (playwright.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, browser.ErrDriverClosed
	}
	return d.current, nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	p, err := d.page(ctx)
	if err != nil {
		return err
	}
	if _, err := p.Goto(url, playwright.PageGotoOptions{
		Timeout:   timeoutMillis(ctx),
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
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
	p, err := d.page(ctx)
	if err != nil {
		return nil, err
	}
	handles, err := p.QuerySelectorAll(loc.CSS())
	if err != nil {
		return nil, fmt.Errorf("finding %s: %w", loc, err)
	}
	return wrap(handles), nil
}

// WindowHandles returns one handle per open page, in the order pages appeared.
func (d *Driver) WindowHandles(ctx context.Context) ([]string, error) {
	if _, err := d.page(ctx); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range d.bctx.Pages() {
		d.track(p)
	}
	open := d.pages[:0]
	handles := make([]string, 0, len(d.pages))
	for _, p := range d.pages {
		if p.IsClosed() {
			delete(d.handles, p)
			continue
		}
		open = append(open, p)
		handles = append(handles, d.handles[p])
	}
	d.pages = open
	return handles, nil
}

func (d *Driver) SwitchToWindow(ctx context.Context, handle string) error {
	if _, err := d.page(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	var target playwright.Page
	for p, h := range d.handles {
		if h == handle {
			target = p
			break
		}
	}
	d.mu.Unlock()
	if target == nil || target.IsClosed() {
		return fmt.Errorf("switching to %q: %w", handle, browser.ErrNoSuchWindow)
	}
	if err := target.BringToFront(); err != nil {
		return fmt.Errorf("bringing %q to front: %w", handle, err)
	}
	d.mu.Lock()
	d.current = target
	d.mu.Unlock()
	return nil
}

// WaitForDocument waits for DOMContentLoaded and then for the sentinel to be
// attached. Firefox reports a new page before its first document commits, which
// the load state wait absorbs.
func (d *Driver) WaitForDocument(ctx context.Context, sentinel browser.Locator, timeout time.Duration) error {
	p, err := d.page(ctx)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(timeout)
	remaining := func() *float64 {
		return playwright.Float(float64(max(time.Until(deadline).Milliseconds(), 1)))
	}

	err = p.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: remaining(),
	})
	if err == nil {
		err = p.Locator(sentinel.CSS()).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateAttached,
			Timeout: remaining(),
		})
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("document with %s: timed out after %v: %w", sentinel, timeout, wait.ErrTimeout)
	}
	return fmt.Errorf("waiting for document with %s: %w", sentinel, err)
}

func (d *Driver) SetWindowSize(ctx context.Context, width, height int) error {
	p, err := d.page(ctx)
	if err != nil {
		return err
	}
	if err := p.SetViewportSize(width, height); err != nil {
		return fmt.Errorf("resizing window to %dx%d: %w", width, height, err)
	}
	return nil
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	p, err := d.page(ctx)
	if err != nil {
		return nil, err
	}
	png, err := p.Screenshot(playwright.PageScreenshotOptions{Timeout: timeoutMillis(ctx)})
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

	if err := d.teardown(); err != nil {
		return fmt.Errorf("closing playwright browser: %w", err)
	}
	return nil
}

// teardown closes whatever was started, innermost first.
func (d *Driver) teardown() error {
	var errs []error
	if d.bctx != nil {
		errs = append(errs, d.bctx.Close())
	}
	if d.browser != nil {
		errs = append(errs, d.browser.Close())
	}
	if d.pw != nil {
		errs = append(errs, d.pw.Stop())
	}
	return errors.Join(errs...)
}
