// internal/reporting/report.go
package reporting

import (
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of one scenario.
type Status string

const (
	StatusPass Status = "pass"
	// StatusFail means an assertion did not hold.
	StatusFail Status = "fail"
	// StatusError means the scenario could not run to its assertions: the browser
	// did not start, an element was missing or a wait timed out.
	StatusError Status = "error"
)

// ScenarioResult records one scenario run.
type ScenarioResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration_ns"`
	Message  string        `json:"message,omitempty"`
	// PostingCount is the number of postings left after filtering, when the
	// scenario counts them.
	PostingCount *int   `json:"posting_count,omitempty"`
	Screenshot   string `json:"screenshot,omitempty"`
}

// RunReport is the outcome of one invocation of the suite.
type RunReport struct {
	ID        string           `json:"id"`
	Backend   string           `json:"backend"`
	StartedAt time.Time        `json:"started_at"`
	Finished  time.Time        `json:"finished_at"`
	Results   []ScenarioResult `json:"results"`
}

// NewRunReport starts a report for the given backend.
func NewRunReport(backend string, now time.Time) *RunReport {
	return &RunReport{
		ID:        uuid.NewString(),
		Backend:   backend,
		StartedAt: now,
		Results:   []ScenarioResult{},
	}
}

// Summary counts results by status.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Errors int `json:"errors"`
}

func (r *RunReport) Summary() Summary {
	s := Summary{Total: len(r.Results)}
	for _, res := range r.Results {
		switch res.Status {
		case StatusPass:
			s.Passed++
		case StatusFail:
			s.Failed++
		case StatusError:
			s.Errors++
		}
	}
	return s
}

// OK reports whether every scenario passed.
func (r *RunReport) OK() bool {
	s := r.Summary()
	return s.Failed == 0 && s.Errors == 0
}
