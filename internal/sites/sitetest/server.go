// Package sitetest serves a local stand-in for the corporate site, the careers site
// and the job board, with the same ids, classes and aria-labels the scenarios rely on.
package sitetest

import (
	"embed"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"time"

	"github.com/johnjkle/traderev/internal/config"
)

//go:embed pages/*.html
var pagesFS embed.FS

var pages = template.Must(template.ParseFS(pagesFS, "pages/*.html"))

// Posting is one job listing on the fixture board.
type Posting struct {
	Title      string
	Location   string
	Team       string
	Commitment string
}

// DefaultPostings mixes locations and teams so that every filter narrows the list.
var DefaultPostings = []Posting{
	{"Senior Software Engineer", "Toronto, Ontario, Canada", "Engineering – Platform", "Full-Time"},
	{"QA Automation Engineer", "Toronto, Ontario, Canada", "Engineering", "Full-Time"},
	{"Account Manager", "Toronto, Ontario, Canada", "Sales", "Full-Time"},
	{"Data Engineer", "Montreal, Quebec, Canada", "Engineering", "Contract"},
	{"Dealer Success Rep", "Chicago, Illinois, United States", "Sales", "Full-Time"},
}

type options struct {
	postings         []Posting
	careersInSameTab bool
	hideFooter       bool
	serverFiltering  bool
	filterDelay      time.Duration
}

// Option tweaks the fixture site.
type Option func(*options)

// WithPostings replaces the job board's postings.
func WithPostings(p ...Posting) Option {
	return func(o *options) { o.postings = p }
}

// WithCareersInSameTab makes the careers link open in the current tab.
func WithCareersInSameTab() Option {
	return func(o *options) { o.careersInSameTab = true }
}

// WithHiddenFooter renders the careers footer with display:none.
func WithHiddenFooter() Option {
	return func(o *options) { o.hideFooter = true }
}

// WithServerFiltering turns filter options into real links: picking one loads
// the board again with the filter in the query string, and the server answers
// filtered requests after delay.
func WithServerFiltering(delay time.Duration) Option {
	return func(o *options) {
		o.serverFiltering = true
		o.filterDelay = delay
	}
}

// Server is a running fixture site.
type Server struct {
	*httptest.Server
	opts options
}

// New starts the fixture site. Callers must Close it.
func New(opts ...Option) *Server {
	o := options{postings: DefaultPostings}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Server{opts: o}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /en-ca/", s.render("home.html", func() any {
		return map[string]any{
			"CareersHref":      s.CareersHref(),
			"CareersInSameTab": s.opts.careersInSameTab,
		}
	}))
	mux.HandleFunc("GET /work/", s.render("careers.html", func() any {
		return map[string]any{
			"JobBoardHref": s.JobBoard(),
			"HideFooter":   s.opts.hideFooter,
		}
	}))
	mux.HandleFunc("GET /traderev", s.board)
	s.Server = httptest.NewServer(mux)
	return s
}

func (s *Server) Homepage() string    { return s.URL + "/en-ca/" }
func (s *Server) CareersHref() string { return s.URL + "/work/" }
func (s *Server) JobBoard() string    { return s.URL + "/traderev" }

// Sites returns a sites config pointing at this server.
func (s *Server) Sites() config.SitesConfig {
	return config.SitesConfig{
		Homepage:           s.Homepage(),
		CareersHref:        s.CareersHref(),
		JobBoard:           s.JobBoard(),
		FollowCanadianJobs: true,
	}
}

func (s *Server) render(name string, data func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		write(w, name, data())
	}
}

func write(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) board(w http.ResponseWriter, r *http.Request) {
	var query url.Values
	if s.opts.serverFiltering {
		query = r.URL.Query()
		if len(query) > 0 && s.opts.filterDelay > 0 {
			select {
			case <-time.After(s.opts.filterDelay):
			case <-r.Context().Done():
				return
			}
		}
	}
	write(w, "jobs.html", boardData(s.opts.postings, query, s.opts.serverFiltering))
}

type filterOption struct {
	Label string
	Value string
	Href  string
}

type filterData struct {
	Category string
	Key      string
	Active   string
	Options  []filterOption
}

var filterFields = []struct {
	category string
	key      string
	value    func(Posting) string
}{
	{"Location", "location", func(p Posting) string { return p.Location }},
	{"Team", "team", func(p Posting) string { return p.Team }},
	{"Work Type", "commitment", func(p Posting) string { return p.Commitment }},
}

// boardData renders every posting for client-side filtering. With server
// filtering, only postings matching query are rendered and option links carry
// the query forward.
func boardData(postings []Posting, query url.Values, serverFiltering bool) map[string]any {
	shown := postings
	if serverFiltering {
		shown = nil
		for _, p := range postings {
			if matches(p, query) {
				shown = append(shown, p)
			}
		}
	}

	filters := make([]filterData, 0, len(filterFields))
	for _, f := range filterFields {
		fd := filterData{Category: f.category, Key: f.key, Active: "All"}
		if v := query.Get(f.key); v != "" {
			fd.Active = v
		}
		fd.Options = append(fd.Options, filterOption{Label: "All", Href: filterHref(serverFiltering, query, f.key, "")})
		for _, v := range distinct(postings, f.value) {
			fd.Options = append(fd.Options, filterOption{Label: v, Value: v, Href: filterHref(serverFiltering, query, f.key, v)})
		}
		filters = append(filters, fd)
	}
	return map[string]any{
		"Postings":        shown,
		"Filters":         filters,
		"ServerFiltering": serverFiltering,
	}
}

func matches(p Posting, query url.Values) bool {
	for _, f := range filterFields {
		if v := query.Get(f.key); v != "" && f.value(p) != v {
			return false
		}
	}
	return true
}

func distinct(postings []Posting, value func(Posting) string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range postings {
		v := value(p)
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func filterHref(serverFiltering bool, query url.Values, key, value string) string {
	if !serverFiltering {
		return "#"
	}
	next := url.Values{}
	for k, vs := range query {
		next[k] = append([]string(nil), vs...)
	}
	if value == "" {
		next.Del(key)
	} else {
		next.Set(key, value)
	}
	if len(next) == 0 {
		return "?"
	}
	return "?" + next.Encode()
}
