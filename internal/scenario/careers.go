package scenario

import (
	"context"
	"fmt"

	"github.com/johnjkle/traderev/internal/browser"
	"github.com/johnjkle/traderev/internal/sites"
)

const CareersPageDisplayedProperly = "test_careers_page_displayed_properly"

func init() {
	register(Scenario{
		Name:        CareersPageDisplayedProperly,
		Description: "Careers link on the homepage opens the careers site in a new tab; its Canadian Jobs link opens the job board.",
		Run:         careersPageDisplayedProperly,
	})
}

type visibleCheck struct {
	what string
	loc  browser.Locator
}

var (
	careersChecks = []visibleCheck{
		{"careers header", sites.Masthead},
		{"careers main banner", sites.MainContent},
		{"careers footer", sites.SiteFooter},
	}
	boardChecks = []visibleCheck{
		{"job board header", sites.BoardHeader},
		{"job board footer", sites.BoardFooter},
	}
)

func careersPageDisplayedProperly(ctx context.Context, env Env) (Result, error) {
	drv := env.driver()
	if err := navigate(ctx, env, env.Sites.Homepage); err != nil {
		return Result{}, err
	}

	if err := openInNewWindow(ctx, env, sites.CareersLink(env.Sites.CareersHref), 2, sites.Masthead); err != nil {
		return Result{}, fmt.Errorf("opening careers site: %w", err)
	}
	for _, c := range careersChecks {
		if err := assertDisplayed(ctx, drv, c.what, c.loc); err != nil {
			return Result{}, err
		}
	}

	if !env.Sites.FollowCanadianJobs {
		return Result{}, nil
	}

	if err := openInNewWindow(ctx, env, sites.CanadianJobs, 3, sites.BoardHeader); err != nil {
		return Result{}, fmt.Errorf("opening job board: %w", err)
	}
	for _, c := range boardChecks {
		if err := assertDisplayed(ctx, drv, c.what, c.loc); err != nil {
			return Result{}, err
		}
	}
	postings, err := drv.FindElements(ctx, sites.Posting)
	if err != nil {
		return Result{}, err
	}
	if len(postings) == 0 {
		return Result{}, assertf("job board shows no postings")
	}
	n := len(postings)
	return Result{PostingCount: &n}, nil
}
