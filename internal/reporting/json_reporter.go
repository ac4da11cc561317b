// internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReporter writes the run report as one indented JSON document.
type JSONReporter struct {
	writer io.WriteCloser
}

func NewJSONReporter(w io.WriteCloser) *JSONReporter {
	return &JSONReporter{writer: w}
}

type jsonReport struct {
	*RunReport
	Summary Summary `json:"summary"`
}

func (r *JSONReporter) Write(report *RunReport) error {
	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonReport{RunReport: report, Summary: report.Summary()}); err != nil {
		return fmt.Errorf("encoding json report: %w", err)
	}
	return nil
}

func (r *JSONReporter) Close() error {
	return r.writer.Close()
}
