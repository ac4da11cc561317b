// Package scenario holds the UI scenarios the suite runs against the careers
// site and the job board.
package scenario

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/johnjkle/traderev/internal/browser"
	"github.com/johnjkle/traderev/internal/config"
	"github.com/johnjkle/traderev/internal/filter"
	"github.com/johnjkle/traderev/internal/session"
)

// AssertionError reports an expectation about the rendered page that did not hold.
type AssertionError struct {
	Msg string
}

func (e *AssertionError) Error() string { return "assertion failed: " + e.Msg }

func assertf(format string, args ...any) error {
	return &AssertionError{Msg: fmt.Sprintf(format, args...)}
}

// Env is everything a scenario needs. The session is owned by the caller.
type Env struct {
	Session  *session.Session
	Sites    config.SitesConfig
	Timeouts config.TimeoutConfig
	Filter   config.FilterConfig
	Logger   *zap.Logger
}

func (e Env) driver() browser.Driver { return e.Session.Driver() }

func (e Env) filterOptions() []filter.Option {
	return append(filter.FromConfig(e.Filter, e.Timeouts), filter.WithLogger(e.Logger))
}

// Result carries what a passing scenario observed.
type Result struct {
	// PostingCount is set by scenarios that count postings.
	PostingCount *int
	Message      string
}

// Scenario is one named UI check.
type Scenario struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env Env) (Result, error)
}

var registry = map[string]Scenario{}

func register(s Scenario) {
	if _, dup := registry[s.Name]; dup {
		panic("scenario registered twice: " + s.Name)
	}
	registry[s.Name] = s
}

// All returns every scenario sorted by name.
func All() []Scenario {
	out := make([]Scenario, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a scenario by name.
func Lookup(name string) (Scenario, bool) {
	s, ok := registry[name]
	return s, ok
}

// Select resolves names to scenarios in the given order. No names selects all.
func Select(names ...string) ([]Scenario, error) {
	if len(names) == 0 {
		return All(), nil
	}
	out := make([]Scenario, 0, len(names))
	var unknown []string
	for _, n := range names {
		s, ok := Lookup(n)
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		out = append(out, s)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown scenario(s): %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

// navigate loads url bounded by the navigation timeout.
func navigate(ctx context.Context, env Env, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, env.Timeouts.Navigation)
	defer cancel()
	env.Logger.Debug("Navigating.", zap.String("url", url))
	return env.driver().Navigate(navCtx, url)
}

// assertDisplayed finds the single element at loc and requires it to be visible.
func assertDisplayed(ctx context.Context, drv browser.Driver, what string, loc browser.Locator) error {
	el, err := drv.FindElement(ctx, loc)
	if err != nil {
		return fmt.Errorf("finding %s: %w", what, err)
	}
	shown, err := el.IsDisplayed(ctx)
	if err != nil {
		return fmt.Errorf("checking %s: %w", what, err)
	}
	if !shown {
		return assertf("%s (%s) is not displayed", what, loc)
	}
	return nil
}

// openInNewWindow clicks loc, waits for the window count to reach want and
// switches to the newest window.
func openInNewWindow(ctx context.Context, env Env, loc browser.Locator, want int, sentinel browser.Locator) error {
	drv := env.driver()
	link, err := drv.FindElement(ctx, loc)
	if err != nil {
		return fmt.Errorf("finding link: %w", err)
	}
	if err := link.Click(ctx); err != nil {
		return fmt.Errorf("clicking %s: %w", loc, err)
	}
	handles, err := browser.WaitForWindowCount(ctx, drv, want, env.Timeouts.Window, env.Timeouts.PollInterval)
	if err != nil {
		return err
	}
	if err := drv.SwitchToWindow(ctx, handles[want-1]); err != nil {
		return err
	}
	return drv.WaitForDocument(ctx, sentinel, env.Timeouts.Document)
}
