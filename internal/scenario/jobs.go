package scenario

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/johnjkle/traderev/internal/filter"
	"github.com/johnjkle/traderev/internal/sites"
)

const (
	LocationFilter         = "test_location_filter"
	LocationAndTeamFilters = "test_location_and_team_filters"

	wantLocation = "Toronto, Ontario, Canada"
	wantTeam     = "Engineering"
)

func init() {
	register(Scenario{
		Name:        LocationFilter,
		Description: "Filtering the job board by location leaves only postings in that location.",
		Run:         locationFilter,
	})
	register(Scenario{
		Name:        LocationAndTeamFilters,
		Description: "Filtering by location and then team leaves only postings matching both.",
		Run:         locationAndTeamFilters,
	})
}

// boardReady is present once the board has rendered its filters.
var boardReady = filter.Control(filter.Location)

// openBoard loads the job board and waits until its filters are rendered.
func openBoard(ctx context.Context, env Env) error {
	if err := navigate(ctx, env, env.Sites.JobBoard); err != nil {
		return err
	}
	return env.driver().WaitForDocument(ctx, boardReady, env.Timeouts.Document)
}

// applyFilter picks option and waits for the board to render again, since
// picking an option reloads the board with the filter applied.
func applyFilter(ctx context.Context, env Env, category filter.Category, option string) error {
	if err := filter.Apply(ctx, env.driver(), category, option, env.filterOptions()...); err != nil {
		return err
	}
	if err := env.driver().WaitForDocument(ctx, boardReady, env.Timeouts.Document); err != nil {
		return fmt.Errorf("board after filtering by %s: %w", category, err)
	}
	return nil
}

func readFiltered(ctx context.Context, env Env) ([]sites.JobPosting, error) {
	postings, err := sites.ReadPostings(ctx, env.driver())
	if err != nil {
		return nil, err
	}
	if len(postings) == 0 {
		env.Logger.Warn("No postings left after filtering; nothing to check.")
	}
	return postings, nil
}

func checkLocation(i int, p sites.JobPosting) error {
	if got := filter.Title(p.Location); got != wantLocation {
		return assertf("posting %d location is %q, want %q", i, got, wantLocation)
	}
	return nil
}

func locationFilter(ctx context.Context, env Env) (Result, error) {
	if err := openBoard(ctx, env); err != nil {
		return Result{}, err
	}
	if err := applyFilter(ctx, env, filter.Location, wantLocation); err != nil {
		return Result{}, err
	}

	postings, err := readFiltered(ctx, env)
	if err != nil {
		return Result{}, err
	}
	for i, p := range postings {
		if err := checkLocation(i, p); err != nil {
			return Result{}, err
		}
	}
	n := len(postings)
	return Result{PostingCount: &n}, nil
}

func locationAndTeamFilters(ctx context.Context, env Env) (Result, error) {
	if err := openBoard(ctx, env); err != nil {
		return Result{}, err
	}
	if err := applyFilter(ctx, env, filter.Location, wantLocation); err != nil {
		return Result{}, err
	}
	if err := applyFilter(ctx, env, filter.Team, wantTeam); err != nil {
		return Result{}, err
	}

	postings, err := readFiltered(ctx, env)
	if err != nil {
		return Result{}, err
	}
	for i, p := range postings {
		if err := checkLocation(i, p); err != nil {
			return Result{}, err
		}
		if p.Team == "" {
			return Result{}, assertf("posting %d has no team label, want prefix %q", i, wantTeam)
		}
		if got := filter.Title(p.Team); !strings.HasPrefix(got, wantTeam) {
			return Result{}, assertf("posting %d team is %q, want prefix %q", i, got, wantTeam)
		}
	}

	n := len(postings)
	msg := PostingCountMessage(n)
	env.Logger.Info(msg, zap.Int("postings", n))
	return Result{PostingCount: &n, Message: msg}, nil
}

// PostingCountMessage phrases how many postings matched.
func PostingCountMessage(n int) string {
	if n == 1 {
		return "There is 1 job posting available at this time."
	}
	return fmt.Sprintf("There are %d job postings available at this time.", n)
}
