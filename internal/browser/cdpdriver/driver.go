// internal/browser/cdpdriver/driver.go
package cdpdriver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/johnjkle/traderev/internal/browser"
	"github.com/johnjkle/traderev/internal/config"
	"github.com/johnjkle/traderev/internal/wait"
)

const shutdownTimeout = 10 * time.Second

// tab is one page target. ctx is nil until the driver first attaches to it.
type tab struct {
	id     target.ID
	ctx    context.Context
	cancel context.CancelFunc
}

// Driver drives Chrome over the DevTools protocol.
type Driver struct {
	logger *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	// browserCtx belongs to the first tab and owns the browser process.
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// runActions executes chromedp actions against a tab context. Tests replace it.
	runActions func(ctx context.Context, actions ...chromedp.Action) error

	mu      sync.Mutex
	tabs    []*tab
	current *tab
	closed  bool
}

var _ browser.Driver = (*Driver)(nil)

// New launches Chrome. If startup fails the allocator is canceled, which kills
// any process that was already spawned.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (browser.Driver, error) {
	log := logger.Named("chromedp")

	// The browser must outlive ctx, which may only bound startup.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), AllocatorOptions(cfg)...)

	ctxOpts := []chromedp.ContextOption{
		chromedp.WithLogf(log.Sugar().Infof),
		chromedp.WithErrorf(log.Sugar().Errorf),
	}
	if cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(log.Sugar().Debugf))
	}
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, ctxOpts...)

	stop := context.AfterFunc(ctx, browserCancel)
	err := chromedp.Run(browserCtx)
	aborted := !stop()
	if err == nil && aborted {
		err = ctx.Err()
	}
	if err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	first := &tab{
		id:     chromedp.FromContext(browserCtx).Target.TargetID,
		ctx:    browserCtx,
		cancel: browserCancel,
	}
	d := &Driver{
		logger:        log,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		tabs:          []*tab{first},
		current:       first,
	}
	d.runActions = chromedp.Run
	log.Debug("Chrome started.", zap.String("target_id", string(first.id)))
	return d, nil
}

func (d *Driver) Name() string { return config.BackendChromedp + "/" + config.BrowserChrome }

func (d *Driver) currentTab() (*tab, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, browser.ErrDriverClosed
	}
	return d.current, nil
}

// runIn executes actions in t, bounded by the caller's ctx.
func (d *Driver) runIn(ctx context.Context, t *tab, actions ...chromedp.Action) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return browser.ErrDriverClosed
	}
	runCtx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()
	return d.runActions(runCtx, actions...)
}

func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	t, err := d.currentTab()
	if err != nil {
		return err
	}
	return d.runIn(ctx, t, actions...)
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
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
	t, err := d.currentTab()
	if err != nil {
		return nil, err
	}
	return d.query(ctx, t, loc)
}

// query returns every node matching loc without waiting for one to appear.
func (d *Driver) query(ctx context.Context, t *tab, loc browser.Locator, opts ...chromedp.QueryOption) ([]browser.Element, error) {
	var nodes []*cdp.Node
	opts = append([]chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}, opts...)
	if err := d.runIn(ctx, t, chromedp.Nodes(loc.CSS(), &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("finding %s: %w", loc, err)
	}
	elems := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		elems = append(elems, &element{tab: t, d: d, node: n})
	}
	return elems, nil
}

// WindowHandles lists page targets. Targets seen before keep their position; new
// ones are appended, so index 1 is always the first tab opened after the initial one.
func (d *Driver) WindowHandles(ctx context.Context) ([]string, error) {
	if _, err := d.currentTab(); err != nil {
		return nil, err
	}
	listCtx, cancel := CombineContext(d.browserCtx, ctx)
	defer cancel()
	infos, err := chromedp.Targets(listCtx)
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	live := make(map[target.ID]bool, len(infos))
	for _, info := range infos {
		if info.Type == "page" {
			live[info.TargetID] = true
		}
	}
	kept := d.tabs[:0]
	known := make(map[target.ID]bool, len(d.tabs))
	for _, t := range d.tabs {
		if live[t.id] {
			kept = append(kept, t)
			known[t.id] = true
		}
	}
	for _, info := range infos {
		if live[info.TargetID] && !known[info.TargetID] {
			kept = append(kept, &tab{id: info.TargetID})
			known[info.TargetID] = true
		}
	}
	d.tabs = kept

	handles := make([]string, 0, len(d.tabs))
	for _, t := range d.tabs {
		handles = append(handles, string(t.id))
	}
	return handles, nil
}

func (d *Driver) SwitchToWindow(ctx context.Context, handle string) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return browser.ErrDriverClosed
	}
	var found *tab
	for _, t := range d.tabs {
		if string(t.id) == handle {
			found = t
			break
		}
	}
	if found == nil {
		d.mu.Unlock()
		return fmt.Errorf("switching to %q: %w", handle, browser.ErrNoSuchWindow)
	}
	attach := found.ctx == nil
	if attach {
		found.ctx, found.cancel = chromedp.NewContext(d.browserCtx, chromedp.WithTargetID(found.id))
	}
	d.mu.Unlock()

	// The first Run on a target context attaches to it and binds the target's
	// event loop to the context it was given, so it must not be a short-lived one.
	if attach {
		if err := chromedp.Run(found.ctx); err != nil {
			return fmt.Errorf("attaching to window %q: %w", handle, err)
		}
	}
	if err := d.runIn(ctx, found, page.BringToFront()); err != nil {
		return fmt.Errorf("attaching to window %q: %w", handle, err)
	}

	d.mu.Lock()
	d.current = found
	d.mu.Unlock()
	d.logger.Debug("Switched window.", zap.String("handle", handle))
	return nil
}

// WaitForDocument waits for the body and the sentinel to be present in the current tab.
func (d *Driver) WaitForDocument(ctx context.Context, sentinel browser.Locator, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := d.run(waitCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.WaitReady(sentinel.CSS(), chromedp.ByQuery),
	)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("document with %s: timed out after %v: %w", sentinel, timeout, wait.ErrTimeout)
	}
	return fmt.Errorf("waiting for document with %s: %w", sentinel, err)
}

func (d *Driver) SetWindowSize(ctx context.Context, width, height int) error {
	if err := d.run(ctx, chromedp.EmulateViewport(int64(width), int64(height))); err != nil {
		return fmt.Errorf("resizing window to %dx%d: %w", width, height, err)
	}
	return nil
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return buf, nil
}

// Quit closes every tab and the browser. It waits at most shutdownTimeout for a
// graceful exit, then kills the process.
func (d *Driver) Quit(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	tabs := d.tabs
	d.mu.Unlock()

	for _, t := range tabs {
		if t.cancel != nil && t.ctx != d.browserCtx {
			t.cancel()
		}
	}

	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(d.browserCtx) }()

	timer := time.NewTimer(shutdownTimeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-done:
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	case <-timer.C:
		d.logger.Warn("Chrome did not exit in time; killing it.", zap.Duration("timeout", shutdownTimeout))
	case <-ctx.Done():
		err = ctx.Err()
	}
	d.browserCancel()
	d.allocCancel()
	if err != nil {
		return fmt.Errorf("closing chrome: %w", err)
	}
	return nil
}
