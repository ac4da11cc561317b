// internal/browser/pwdriver/driver_test.go
package pwdriver

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/johnjkle/traderev/internal/browser"
	"github.com/johnjkle/traderev/internal/config"
	"github.com/johnjkle/traderev/internal/sites/sitetest"
)

func TestEngineFor(t *testing.T) {
	cases := map[string]string{
		config.BrowserChrome:   "chromium",
		config.BrowserChromium: "chromium",
		config.BrowserFirefox:  "firefox",
		config.BrowserWebKit:   "webkit",
	}
	for name, want := range cases {
		got, err := engineFor(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := engineFor("opera")
	assert.Error(t, err)
}

func TestTimeoutMillis(t *testing.T) {
	assert.Nil(t, timeoutMillis(context.Background()), "no deadline leaves the playwright default")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ms := timeoutMillis(ctx)
	require.NotNil(t, ms)
	assert.InDelta(t, 2000, *ms, 200)

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	assert.Equal(t, 1.0, *timeoutMillis(expired), "an expired deadline still yields a positive timeout")
}

func TestNewRejectsUnknownBrowser(t *testing.T) {
	_, err := New(context.Background(), config.BrowserConfig{Name: "opera"}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "cannot drive")
}

// TestFirefoxTabSwitch needs the playwright driver and browsers installed
// (go run github.com/playwright-community/playwright-go/cmd/playwright install).
func TestFirefoxTabSwitch(t *testing.T) {
	if testing.Short() || os.Getenv("TRADEREV_PLAYWRIGHT") == "" {
		t.Skip("set TRADEREV_PLAYWRIGHT=1 to run playwright browser tests")
	}
	site := sitetest.New()
	t.Cleanup(site.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := config.BrowserConfig{
		Backend:  config.BackendPlaywright,
		Name:     config.BrowserFirefox,
		Headless: true,
		Viewport: config.ViewportConfig{Width: 1366, Height: 768},
	}
	drv, err := New(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, drv.Quit(context.Background())) })

	require.NoError(t, drv.Navigate(ctx, site.Homepage()))
	link, err := drv.FindElement(ctx, browser.AttrEquals("", "href", site.CareersHref()))
	require.NoError(t, err)
	require.NoError(t, link.Click(ctx))

	handles, err := browser.WaitForWindowCount(ctx, drv, 2, 10*time.Second, 100*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, drv.SwitchToWindow(ctx, handles[1]))
	require.NoError(t, drv.WaitForDocument(ctx, browser.ByID("masthead"), 5*time.Second))

	footer, err := drv.FindElement(ctx, browser.ByClassName("site-footer"))
	require.NoError(t, err)
	shown, err := footer.IsDisplayed(ctx)
	require.NoError(t, err)
	assert.True(t, shown)
}
