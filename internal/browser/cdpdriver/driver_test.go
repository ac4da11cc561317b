// internal/browser/cdpdriver/driver_test.go
package cdpdriver

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/johnjkle/traderev/internal/browser"
	"github.com/johnjkle/traderev/internal/sites/sitetest"
	"github.com/johnjkle/traderev/internal/wait"
)

// -- Unit tests with an injected action runner --

type ctxKey string

func fakeDriver(t *testing.T, run func(ctx context.Context, actions ...chromedp.Action) error) *Driver {
	tabCtx := context.WithValue(context.Background(), ctxKey("tab"), "first")
	first := &tab{id: "first", ctx: tabCtx}
	return &Driver{
		logger:     zaptest.NewLogger(t),
		browserCtx: tabCtx,
		runActions: run,
		tabs:       []*tab{first},
		current:    first,
	}
}

func TestRunActionsUsesTabContext(t *testing.T) {
	var seen any
	d := fakeDriver(t, func(ctx context.Context, actions ...chromedp.Action) error {
		seen = ctx.Value(ctxKey("tab"))
		assert.Len(t, actions, 1)
		return nil
	})

	require.NoError(t, d.Navigate(context.Background(), "http://example.test/"))
	assert.Equal(t, "first", seen)
}

func TestRunActionsHonorsCallerCancellation(t *testing.T) {
	d := fakeDriver(t, func(ctx context.Context, actions ...chromedp.Action) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Navigate(ctx, "http://example.test/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "navigating to http://example.test/")
}

func TestNavigateWrapsErrors(t *testing.T) {
	boom := errors.New("net::ERR_NAME_NOT_RESOLVED")
	d := fakeDriver(t, func(ctx context.Context, actions ...chromedp.Action) error { return boom })

	err := d.Navigate(context.Background(), "http://nowhere.test/")
	assert.ErrorIs(t, err, boom)
}

func TestClosedDriver(t *testing.T) {
	d := fakeDriver(t, func(ctx context.Context, actions ...chromedp.Action) error {
		t.Fatal("no actions may run after Quit")
		return nil
	})
	d.closed = true

	assert.ErrorIs(t, d.Navigate(context.Background(), "http://example.test/"), browser.ErrDriverClosed)
	_, err := d.FindElements(context.Background(), browser.ByID("main"))
	assert.ErrorIs(t, err, browser.ErrDriverClosed)
	_, err = d.WindowHandles(context.Background())
	assert.ErrorIs(t, err, browser.ErrDriverClosed)
	assert.ErrorIs(t, d.SwitchToWindow(context.Background(), "first"), browser.ErrDriverClosed)
	assert.NoError(t, d.Quit(context.Background()), "a second Quit is a no-op")
}

func TestSwitchToUnknownWindow(t *testing.T) {
	d := fakeDriver(t, func(ctx context.Context, actions ...chromedp.Action) error { return nil })

	err := d.SwitchToWindow(context.Background(), "missing")
	assert.ErrorIs(t, err, browser.ErrNoSuchWindow)
}

// -- Integration tests against a real Chrome --

func findChrome(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if p := os.Getenv("TRADEREV_CHROME"); p != "" {
		return p
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("chrome not found; set TRADEREV_CHROME to run browser tests")
	return ""
}

func startDriver(t *testing.T) browser.Driver {
	t.Helper()
	cfg := baseBrowserConfig()
	cfg.ExecPath = findChrome(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	drv, err := New(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, drv.Quit(context.Background()))
	})
	return drv
}

func TestDriverAgainstFixtureSite(t *testing.T) {
	drv := startDriver(t)
	site := sitetest.New()
	t.Cleanup(site.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	require.NoError(t, drv.SetWindowSize(ctx, 1366, 768))
	require.NoError(t, drv.Navigate(ctx, site.Homepage()))

	link, err := drv.FindElement(ctx, browser.AttrEquals("", "href", site.CareersHref()))
	require.NoError(t, err)
	require.NoError(t, link.Click(ctx))

	handles, err := browser.WaitForWindowCount(ctx, drv, 2, 10*time.Second, 100*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, drv.SwitchToWindow(ctx, handles[1]))
	require.NoError(t, drv.WaitForDocument(ctx, browser.ByID("masthead"), 5*time.Second))

	for _, loc := range []browser.Locator{browser.ByID("masthead"), browser.ByID("main"), browser.ByClassName("site-footer")} {
		el, err := drv.FindElement(ctx, loc)
		require.NoError(t, err, loc.String())
		shown, err := el.IsDisplayed(ctx)
		require.NoError(t, err)
		assert.True(t, shown, loc.String())
	}

	_, err = drv.FindElement(ctx, browser.ByID("does-not-exist"))
	assert.ErrorIs(t, err, browser.ErrNoSuchElement)

	png, err := drv.Screenshot(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}

func TestDriverJobBoardElements(t *testing.T) {
	drv := startDriver(t)
	site := sitetest.New()
	t.Cleanup(site.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	require.NoError(t, drv.Navigate(ctx, site.JobBoard()))

	control, err := drv.FindElement(ctx, browser.AttrContains("", "aria-label", "Filter by Location"))
	require.NoError(t, err)
	popup, err := control.FindElement(ctx, browser.ByClassName("filter-popup"))
	require.NoError(t, err)

	shown, err := popup.IsDisplayed(ctx)
	require.NoError(t, err)
	assert.False(t, shown, "popup starts closed")

	require.NoError(t, control.Click(ctx))
	require.NoError(t, browser.WaitUntilDisplayed(ctx, popup, "location popup", 5*time.Second, 50*time.Millisecond))

	postings, err := drv.FindElements(ctx, browser.ByClassName("posting"))
	require.NoError(t, err)
	require.Len(t, postings, len(sitetest.DefaultPostings))

	loc, err := postings[0].FindElement(ctx, browser.ByCSS("span[class*=sort-by-location]"))
	require.NoError(t, err)
	text, err := loc.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TORONTO, ONTARIO, CANADA", text, "innerText reflects text-transform")

	_, err = drv.FindElement(ctx, browser.ByClassName("posting"))
	assert.ErrorIs(t, err, browser.ErrAmbiguousElement)
}

func TestWaitForDocumentTimeout(t *testing.T) {
	drv := startDriver(t)
	site := sitetest.New()
	t.Cleanup(site.Close)

	ctx := context.Background()
	require.NoError(t, drv.Navigate(ctx, site.Homepage()))
	err := drv.WaitForDocument(ctx, browser.ByID("masthead"), 300*time.Millisecond)
	assert.ErrorIs(t, err, wait.ErrTimeout)
}

func TestClickWaitsForNavigationItStarts(t *testing.T) {
	drv := startDriver(t)
	site := sitetest.New(sitetest.WithServerFiltering(500 * time.Millisecond))
	t.Cleanup(site.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	require.NoError(t, drv.Navigate(ctx, site.JobBoard()))

	control, err := drv.FindElement(ctx, browser.AttrContains("", "aria-label", "Filter by Location"))
	require.NoError(t, err)
	require.NoError(t, control.Click(ctx))
	popup, err := control.FindElement(ctx, browser.ByClassName("filter-popup"))
	require.NoError(t, err)
	require.NoError(t, browser.WaitUntilDisplayed(ctx, popup, "location popup", 5*time.Second, 50*time.Millisecond))

	option, err := popup.FindElement(ctx, browser.AttrEquals("a", "data-value", "Toronto, Ontario, Canada"))
	require.NoError(t, err)
	require.NoError(t, option.Click(ctx))

	// No extra wait: the click returns once the filtered board has loaded.
	postings, err := drv.FindElements(ctx, browser.ByClassName("posting"))
	require.NoError(t, err)
	assert.Len(t, postings, 3)
}
