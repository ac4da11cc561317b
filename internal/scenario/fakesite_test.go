package scenario

import (
	"strings"
	"sync"
	"time"

	"github.com/johnjkle/traderev/internal/browser/browsertest"
	"github.com/johnjkle/traderev/internal/filter"
	"github.com/johnjkle/traderev/internal/sites"
)

const (
	homeURL    = "https://www.traderev.test/en-ca/"
	careersURL = "https://work.traderev.test/"
	boardURL   = "https://jobs.traderev.test/traderev"
)

type fakePosting struct {
	location string
	team     string
}

// fakeSite scripts the three pages. Filtering works like the real board: picking
// an option re-renders the postings matching every active filter.
type fakeSite struct {
	drv      *browsertest.Driver
	postings []fakePosting

	mu       sync.Mutex
	active   map[filter.Category]string
	controls map[filter.Category][]*browsertest.Node
	// reloadDelay, when set, makes picking an option load the board again: the
	// new document starts empty and renders after the delay.
	reloadDelay time.Duration

	careersLink  *browsertest.Node
	canadianJobs *browsertest.Node
	footer       *browsertest.Node
}

func newFakeSite(postings ...fakePosting) *fakeSite {
	fs := &fakeSite{
		postings: postings,
		active:   map[filter.Category]string{},
		controls: map[filter.Category][]*browsertest.Node{},
	}

	fs.careersLink = &browsertest.Node{OnClick: func(d *browsertest.Driver) { d.OpenWindow(careersURL) }}
	fs.canadianJobs = &browsertest.Node{OnClick: func(d *browsertest.Driver) { d.OpenWindow(boardURL) }}
	fs.footer = &browsertest.Node{}

	home := browsertest.Page{
		sites.CareersLink(careersURL).CSS(): {fs.careersLink},
	}
	careers := browsertest.Page{
		sites.Masthead.CSS():     {{}},
		sites.MainContent.CSS():  {{}},
		sites.SiteFooter.CSS():   {fs.footer},
		sites.CanadianJobs.CSS(): {fs.canadianJobs},
	}
	board := browsertest.Page{
		sites.BoardHeader.CSS(): {{}},
		sites.BoardFooter.CSS(): {{}},
	}
	fs.drv = browsertest.New(map[string]browsertest.Page{
		homeURL:    home,
		careersURL: careers,
		boardURL:   board,
	})

	fs.addFilter(board, filter.Location, func(p fakePosting) string { return p.location })
	fs.addFilter(board, filter.Team, func(p fakePosting) string { return p.team })
	board[sites.Posting.CSS()] = fs.render()
	return fs
}

func (fs *fakeSite) addFilter(page browsertest.Page, c filter.Category, value func(fakePosting) string) {
	popup := &browsertest.Node{Hidden: true}
	control := []*browsertest.Node{{
		Children: map[string][]*browsertest.Node{".filter-popup": {popup}},
		OnClick:  func(*browsertest.Driver) { popup.SetHidden(false) },
	}}
	page[filter.Control(c).CSS()] = control
	fs.controls[c] = control

	seen := map[string]bool{}
	var options []*browsertest.Node
	for _, p := range fs.postings {
		v := value(p)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		options = append(options, &browsertest.Node{
			Text: v,
			OnClick: func(d *browsertest.Driver) {
				popup.SetHidden(true)
				fs.pick(d, c, v)
			},
		})
	}
	page[filter.Options(c).CSS()] = options
}

func (fs *fakeSite) pick(d *browsertest.Driver, c filter.Category, v string) {
	fs.mu.Lock()
	fs.active[c] = v
	fs.mu.Unlock()
	if fs.reloadDelay <= 0 {
		d.SetNodes(sites.Posting.CSS(), fs.render()...)
		return
	}

	d.SetNodes(sites.Posting.CSS())
	for cat := range fs.controls {
		d.SetNodes(filter.Control(cat).CSS())
	}
	go func() {
		time.Sleep(fs.reloadDelay)
		d.SetNodes(sites.Posting.CSS(), fs.render()...)
		for cat, nodes := range fs.controls {
			d.SetNodes(filter.Control(cat).CSS(), nodes...)
		}
	}()
}

func (fs *fakeSite) render() []*browsertest.Node {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []*browsertest.Node
	for _, p := range fs.postings {
		if loc, ok := fs.active[filter.Location]; ok && p.location != loc {
			continue
		}
		if team, ok := fs.active[filter.Team]; ok && p.team != team {
			continue
		}
		children := map[string][]*browsertest.Node{
			// The real board renders locations upper-case.
			sites.PostingLocation.CSS(): {{Text: strings.ToUpper(p.location)}},
		}
		if p.team != "" {
			children[sites.PostingTeam.CSS()] = []*browsertest.Node{{Text: p.team}}
		}
		out = append(out, &browsertest.Node{Children: children})
	}
	return out
}

var defaultPostings = []fakePosting{
	{"Toronto, Ontario, Canada", "Engineering – Platform"},
	{"Toronto, Ontario, Canada", "Engineering"},
	{"Toronto, Ontario, Canada", "Sales"},
	{"Montreal, Quebec, Canada", "Engineering"},
}
