package sites

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnjkle/traderev/internal/browser"
	"github.com/johnjkle/traderev/internal/browser/browsertest"
)

func posting(location, team string) *browsertest.Node {
	return &browsertest.Node{Children: map[string][]*browsertest.Node{
		PostingLocation.CSS(): {{Text: location}},
		PostingTeam.CSS():     {{Text: team}},
	}}
}

func TestSelectors(t *testing.T) {
	assert.Equal(t, "[id='masthead']", Masthead.CSS())
	assert.Equal(t, ".site-footer", SiteFooter.CSS())
	assert.Equal(t, "a[title='Canadian Jobs']", CanadianJobs.CSS())
	assert.Equal(t, "div[class='main-header page-full-width section-wrapper']", BoardHeader.CSS())
	assert.Equal(t, "span[class*='sort-by-location']", PostingLocation.CSS())
	assert.Equal(t, "[href='https://work.traderev.com/']", CareersLink("https://work.traderev.com/").CSS())
}

func TestReadPostings(t *testing.T) {
	ctx := context.Background()
	const url = "https://jobs.example/traderev"

	t.Run("reads every posting in order", func(t *testing.T) {
		drv := browsertest.New(map[string]browsertest.Page{url: {
			Posting.CSS(): {
				posting(" TORONTO, ONTARIO, CANADA ", "Engineering – Platform"),
				posting("MONTREAL, QUEBEC, CANADA", "Sales"),
			},
		}})
		require.NoError(t, drv.Navigate(ctx, url))

		got, err := ReadPostings(ctx, drv)
		require.NoError(t, err)

		want := []JobPosting{
			{Location: "TORONTO, ONTARIO, CANADA", Team: "Engineering – Platform"},
			{Location: "MONTREAL, QUEBEC, CANADA", Team: "Sales"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ReadPostings mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("no postings", func(t *testing.T) {
		drv := browsertest.New(map[string]browsertest.Page{url: {}})
		require.NoError(t, drv.Navigate(ctx, url))

		got, err := ReadPostings(ctx, drv)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("posting without a team", func(t *testing.T) {
		unlabeled := posting("Toronto, Ontario, Canada", "")
		delete(unlabeled.Children, PostingTeam.CSS())
		drv := browsertest.New(map[string]browsertest.Page{url: {Posting.CSS(): {unlabeled}}})
		require.NoError(t, drv.Navigate(ctx, url))

		got, err := ReadPostings(ctx, drv)
		require.NoError(t, err)
		assert.Equal(t, []JobPosting{{Location: "Toronto, Ontario, Canada"}}, got)
	})

	t.Run("posting without a location", func(t *testing.T) {
		broken := posting("", "Engineering")
		delete(broken.Children, PostingLocation.CSS())
		drv := browsertest.New(map[string]browsertest.Page{url: {Posting.CSS(): {broken}}})
		require.NoError(t, drv.Navigate(ctx, url))

		_, err := ReadPostings(ctx, drv)
		assert.ErrorIs(t, err, browser.ErrNoSuchElement)
		assert.Contains(t, err.Error(), "posting 0")
	})
}
