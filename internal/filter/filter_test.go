package filter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/johnjkle/traderev/internal/browser"
	"github.com/johnjkle/traderev/internal/browser/browsertest"
	"github.com/johnjkle/traderev/internal/config"
	"github.com/johnjkle/traderev/internal/wait"
)

const boardURL = "https://jobs.example/traderev"

// board builds a job board page with one filter control whose popup opens on click.
func board(t *testing.T, category Category, options ...string) (*browsertest.Driver, *browsertest.Node, []*browsertest.Node) {
	t.Helper()
	popup := &browsertest.Node{Hidden: true}
	control := &browsertest.Node{
		Children: map[string][]*browsertest.Node{".filter-popup": {popup}},
		OnClick:  func(*browsertest.Driver) { popup.SetHidden(false) },
	}
	links := make([]*browsertest.Node, 0, len(options))
	for _, o := range options {
		links = append(links, &browsertest.Node{Text: o})
	}
	page := browsertest.Page{
		Control(category).CSS(): {control},
		Options(category).CSS(): links,
	}
	drv := browsertest.New(map[string]browsertest.Page{boardURL: page})
	require.NoError(t, drv.Navigate(context.Background(), boardURL))
	return drv, control, links
}

func fast() Option { return WithTimeouts(200*time.Millisecond, 5*time.Millisecond) }

func TestSelectors(t *testing.T) {
	assert.Equal(t, "[aria-label*='Filter by Location']", Control(Location).CSS())
	assert.Equal(t, "[aria-label*='Filter by Work Type'] a", Options(WorkType).CSS())
}

func TestTitle(t *testing.T) {
	cases := map[string]string{
		"TORONTO, ONTARIO, CANADA": "Toronto, Ontario, Canada",
		"engineering – platform":   "Engineering – Platform",
		"":                         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Title(in), in)
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	t.Run("clicks the matching option after the popup opens", func(t *testing.T) {
		drv, control, links := board(t, Location, "All", "Montreal, Quebec, Canada", "Toronto, Ontario, Canada")

		err := Apply(ctx, drv, Location, "Toronto, Ontario, Canada", fast())
		require.NoError(t, err)

		assert.Equal(t, 1, control.Clicks())
		assert.Equal(t, 0, links[0].Clicks())
		assert.Equal(t, 0, links[1].Clicks())
		assert.Equal(t, 1, links[2].Clicks())
	})

	t.Run("matches case-insensitively by default", func(t *testing.T) {
		drv, _, links := board(t, Team, "  ENGINEERING ", "Sales")

		require.NoError(t, Apply(ctx, drv, Team, "Engineering", fast()))
		assert.Equal(t, 1, links[0].Clicks())
	})

	t.Run("exact mode compares raw text", func(t *testing.T) {
		drv, _, links := board(t, Team, "ENGINEERING", "Sales")

		require.NoError(t, Apply(ctx, drv, Team, "Engineering", fast(), MatchExact()))
		assert.Equal(t, 0, links[0].Clicks())
	})

	t.Run("first match wins", func(t *testing.T) {
		drv, _, links := board(t, Team, "Engineering", "engineering")

		require.NoError(t, Apply(ctx, drv, Team, "Engineering", fast()))
		assert.Equal(t, 1, links[0].Clicks())
		assert.Equal(t, 0, links[1].Clicks())
	})

	t.Run("no match is a logged no-op", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		drv, _, links := board(t, Location, "Montreal, Quebec, Canada")

		err := Apply(ctx, drv, Location, "Toronto, Ontario, Canada", fast(), WithLogger(zap.New(core)))
		require.NoError(t, err)
		assert.Equal(t, 0, links[0].Clicks())
		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Contains(t, entry.Message, "not found")
		assert.Equal(t, "Location", entry.ContextMap()["category"])
	})

	t.Run("strict mode reports a missing option", func(t *testing.T) {
		drv, _, _ := board(t, Location, "Montreal, Quebec, Canada")

		err := Apply(ctx, drv, Location, "Toronto, Ontario, Canada", fast(), Strict())
		assert.ErrorIs(t, err, ErrOptionNotFound)
	})

	t.Run("missing control", func(t *testing.T) {
		drv, _, _ := board(t, Location, "Toronto, Ontario, Canada")

		err := Apply(ctx, drv, Team, "Engineering", fast())
		assert.ErrorIs(t, err, browser.ErrNoSuchElement)
	})

	t.Run("popup never opens", func(t *testing.T) {
		drv, control, links := board(t, Location, "Toronto, Ontario, Canada")
		control.OnClick = nil

		err := Apply(ctx, drv, Location, "Toronto, Ontario, Canada", fast())
		assert.ErrorIs(t, err, wait.ErrTimeout)
		assert.Equal(t, 0, links[0].Clicks())
	})

	t.Run("waits for a popup that opens late", func(t *testing.T) {
		drv, control, links := board(t, Location, "Toronto, Ontario, Canada")
		popup := control.Children[".filter-popup"][0]
		control.OnClick = func(*browsertest.Driver) {
			go func() {
				time.Sleep(20 * time.Millisecond)
				popup.SetHidden(false)
			}()
		}

		require.NoError(t, Apply(ctx, drv, Location, "Toronto, Ontario, Canada", fast()))
		assert.Equal(t, 1, links[0].Clicks())
	})

	t.Run("click failure is returned", func(t *testing.T) {
		drv, _, links := board(t, Location, "Toronto, Ontario, Canada")
		links[0].ClickErr = browsertest.ErrScripted

		err := Apply(ctx, drv, Location, "Toronto, Ontario, Canada", fast())
		assert.True(t, errors.Is(err, browsertest.ErrScripted))
	})

	t.Run("canceled context", func(t *testing.T) {
		drv, _, _ := board(t, Location, "Toronto, Ontario, Canada")
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		err := Apply(canceled, drv, Location, "Toronto, Ontario, Canada", fast())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFromConfig(t *testing.T) {
	drv, _, links := board(t, Team, "ENGINEERING")
	opts := FromConfig(
		config.FilterConfig{Strict: true, Match: config.MatchExact},
		config.TimeoutConfig{FilterPopup: 100 * time.Millisecond, PollInterval: 5 * time.Millisecond},
	)

	err := Apply(context.Background(), drv, Team, "Engineering", opts...)
	assert.ErrorIs(t, err, ErrOptionNotFound)
	assert.Equal(t, 0, links[0].Clicks())
}
