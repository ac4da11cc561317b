// internal/browser/cdpdriver/navigation.go
package cdpdriver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/johnjkle/traderev/internal/wait"
)

const (
	// navigationGrace is how long a click is watched for starting a page load in its tab.
	navigationGrace = 250 * time.Millisecond
	// navigationTimeout bounds the wait for a load a click started.
	navigationTimeout = 30 * time.Second
)

// navWatch follows the main frame of one tab across a click. WebDriver clicks
// block until a navigation they start has loaded; chromedp's do not, so the
// driver waits here instead.
type navWatch struct {
	mu      sync.Mutex
	frame   cdp.FrameID
	started chan struct{}
	done    chan struct{}

	startOnce sync.Once
	doneOnce  sync.Once
	stop      context.CancelFunc
}

func newNavWatch() *navWatch {
	return &navWatch{
		started: make(chan struct{}),
		done:    make(chan struct{}),
		stop:    func() {},
	}
}

// watchNavigation starts listening on t. Tabs without a chromedp target, as in
// unit tests, get a watch that never sees a navigation.
func watchNavigation(t *tab) *navWatch {
	w := newNavWatch()
	if chromedp.FromContext(t.ctx) == nil {
		return w
	}
	lctx, cancel := context.WithCancel(t.ctx)
	w.stop = cancel
	chromedp.ListenTarget(lctx, w.handle)
	return w
}

// mainFrame records the tab's top-level frame before the click runs.
func (w *navWatch) mainFrame() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return fmt.Errorf("reading frame tree: %w", err)
		}
		w.mu.Lock()
		w.frame = tree.Frame.ID
		w.mu.Unlock()
		return nil
	})
}

func (w *navWatch) isMain(id cdp.FrameID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frame != "" && w.frame == id
}

func (w *navWatch) handle(ev any) {
	switch ev := ev.(type) {
	case *page.EventFrameRequestedNavigation:
		if ev.Disposition == page.ClientNavigationDispositionCurrentTab && w.isMain(ev.FrameID) {
			w.startOnce.Do(func() { close(w.started) })
		}
	case *page.EventFrameStartedLoading:
		if w.isMain(ev.FrameID) {
			w.startOnce.Do(func() { close(w.started) })
		}
	case *page.EventFrameStoppedLoading:
		if w.isMain(ev.FrameID) {
			w.doneOnce.Do(func() { close(w.done) })
		}
	case *page.EventNavigatedWithinDocument:
		if w.isMain(ev.FrameID) {
			w.doneOnce.Do(func() { close(w.done) })
		}
	}
}

// wait returns once no navigation started within grace, or once the started one
// has finished loading.
func (w *navWatch) wait(ctx context.Context, grace, timeout time.Duration) error {
	graceTimer := time.NewTimer(grace)
	defer graceTimer.Stop()
	select {
	case <-w.started:
	case <-w.done:
		return nil
	case <-graceTimer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	loadTimer := time.NewTimer(timeout)
	defer loadTimer.Stop()
	select {
	case <-w.done:
		return nil
	case <-loadTimer.C:
		return fmt.Errorf("page load after click: timed out after %v: %w", timeout, wait.ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
