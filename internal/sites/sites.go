// Package sites holds the selectors the scenarios use on the corporate site, the
// careers site and the job board.
package sites

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/johnjkle/traderev/internal/browser"
)

// Careers site.
var (
	Masthead     = browser.ByID("masthead")
	MainContent  = browser.ByID("main")
	SiteFooter   = browser.ByClassName("site-footer")
	CanadianJobs = browser.AttrEquals("a", "title", "Canadian Jobs")
)

// Job board.
var (
	BoardHeader     = browser.AttrEquals("div", "class", "main-header page-full-width section-wrapper")
	BoardFooter     = browser.AttrEquals("div", "class", "main-footer page-full-width")
	Posting         = browser.ByClassName("posting")
	PostingLocation = browser.AttrContains("span", "class", "sort-by-location")
	PostingTeam     = browser.AttrContains("span", "class", "sort-by-team")
)

// CareersLink locates the homepage link to the careers site by its exact href.
func CareersLink(href string) browser.Locator {
	return browser.AttrEquals("", "href", href)
}

// JobPosting holds a posting's fields as rendered. The board restyles their case,
// so callers compare title-cased values. Team is empty for postings the board
// shows without a team label.
type JobPosting struct {
	Location string
	Team     string
}

// ReadPostings returns the location and team of every posting currently shown, in
// document order. Every posting must carry a location.
func ReadPostings(ctx context.Context, drv browser.Driver) ([]JobPosting, error) {
	els, err := drv.FindElements(ctx, Posting)
	if err != nil {
		return nil, fmt.Errorf("listing postings: %w", err)
	}
	out := make([]JobPosting, 0, len(els))
	for i, el := range els {
		loc, err := field(ctx, el, PostingLocation)
		if err != nil {
			return nil, fmt.Errorf("posting %d: %w", i, err)
		}
		team, err := field(ctx, el, PostingTeam)
		if errors.Is(err, browser.ErrNoSuchElement) {
			team, err = "", nil
		}
		if err != nil {
			return nil, fmt.Errorf("posting %d: %w", i, err)
		}
		out = append(out, JobPosting{Location: loc, Team: team})
	}
	return out, nil
}

func field(ctx context.Context, el browser.Element, loc browser.Locator) (string, error) {
	f, err := el.FindElement(ctx, loc)
	if err != nil {
		return "", err
	}
	text, err := f.Text(ctx)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", loc, err)
	}
	return strings.TrimSpace(text), nil
}
