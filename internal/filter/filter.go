// Package filter drives the dropdown filters on the job board.
package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/johnjkle/traderev/internal/browser"
	"github.com/johnjkle/traderev/internal/config"
	"github.com/johnjkle/traderev/internal/wait"
)

// Category is the visible name of a filter control, e.g. "Location".
type Category string

const (
	Location Category = "Location"
	Team     Category = "Team"
	WorkType Category = "Work Type"
)

// ErrOptionNotFound is returned in strict mode when no option text matches.
var ErrOptionNotFound = errors.New("filter option not found")

const (
	DefaultPopupTimeout = 10 * time.Second
	popupClass          = "filter-popup"
)

// Control locates the filter control for c by its aria-label.
func Control(c Category) browser.Locator {
	return browser.AttrContains("", "aria-label", "Filter by "+string(c))
}

// Options locates every option link inside the controls for c.
func Options(c Category) browser.Locator {
	return browser.Descendant(Control(c), browser.ByCSS("a"))
}

type settings struct {
	strict   bool
	match    string
	timeout  time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// Option configures Apply.
type Option func(*settings)

// Strict makes Apply fail with ErrOptionNotFound instead of doing nothing.
func Strict() Option { return func(s *settings) { s.strict = true } }

// MatchExact compares raw option text instead of title-cased text.
func MatchExact() Option { return func(s *settings) { s.match = config.MatchExact } }

// WithTimeouts bounds the wait for the option popup.
func WithTimeouts(popup, interval time.Duration) Option {
	return func(s *settings) {
		if popup > 0 {
			s.timeout = popup
		}
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// FromConfig translates the filter and timeout config into options.
func FromConfig(f config.FilterConfig, t config.TimeoutConfig) []Option {
	opts := []Option{WithTimeouts(t.FilterPopup, t.PollInterval)}
	if f.Strict {
		opts = append(opts, Strict())
	}
	if f.Match == config.MatchExact {
		opts = append(opts, MatchExact())
	}
	return opts
}

// Title title-cases s the way option and posting text is compared.
func Title(s string) string {
	return cases.Title(language.Und).String(s)
}

func (s *settings) normalize(text string) string {
	text = strings.TrimSpace(text)
	if s.match == config.MatchExact {
		return text
	}
	return Title(text)
}

// Apply opens the filter control for category, waits for its popup and clicks the
// first option whose text matches option. When nothing matches it logs a warning
// and returns nil unless Strict is set.
func Apply(ctx context.Context, drv browser.Driver, category Category, option string, opts ...Option) error {
	s := settings{
		match:    config.MatchTitle,
		timeout:  DefaultPopupTimeout,
		interval: wait.DefaultInterval,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	log := s.logger.With(zap.String("category", string(category)), zap.String("option", option))

	control, err := drv.FindElement(ctx, Control(category))
	if err != nil {
		return fmt.Errorf("finding %s filter: %w", category, err)
	}
	if err := control.Click(ctx); err != nil {
		return fmt.Errorf("opening %s filter: %w", category, err)
	}

	what := fmt.Sprintf("%s filter popup", category)
	err = wait.Until(ctx, what, s.timeout, s.interval, func(ctx context.Context) (bool, error) {
		popup, err := control.FindElement(ctx, browser.ByClassName(popupClass))
		if errors.Is(err, browser.ErrNoSuchElement) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return popup.IsDisplayed(ctx)
	})
	if err != nil {
		return err
	}

	candidates, err := drv.FindElements(ctx, Options(category))
	if err != nil {
		return fmt.Errorf("listing %s options: %w", category, err)
	}
	want := s.normalize(option)
	for i, c := range candidates {
		text, err := c.Text(ctx)
		if err != nil {
			return fmt.Errorf("reading %s option %d: %w", category, i, err)
		}
		if s.normalize(text) != want {
			continue
		}
		if err := c.Click(ctx); err != nil {
			return fmt.Errorf("selecting %s option %q: %w", category, option, err)
		}
		log.Debug("Filter applied.", zap.Int("index", i))
		return nil
	}

	if s.strict {
		return fmt.Errorf("%s filter has no option %q among %d: %w", category, option, len(candidates), ErrOptionNotFound)
	}
	log.Warn("Filter option not found; nothing selected.", zap.Int("candidates", len(candidates)))
	return nil
}
