// internal/reporting/junit_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const junitSuiteName = "traderev"

// JUnitReporter writes the run report as a JUnit XML testsuite, one testcase per
// scenario, for CI systems that ingest JUnit.
type JUnitReporter struct {
	writer io.WriteCloser
}

func NewJUnitReporter(w io.WriteCloser) *JUnitReporter {
	return &JUnitReporter{writer: w}
}

func seconds(r ScenarioResult) string {
	return strconv.FormatFloat(r.Duration.Seconds(), 'f', 3, 64)
}

// Document builds the XML tree for report.
func (r *JUnitReporter) Document(report *RunReport) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	sum := report.Summary()
	suites := doc.CreateElement("testsuites")
	suite := suites.CreateElement("testsuite")
	suite.CreateAttr("name", junitSuiteName)
	suite.CreateAttr("id", report.ID)
	suite.CreateAttr("tests", strconv.Itoa(sum.Total))
	suite.CreateAttr("failures", strconv.Itoa(sum.Failed))
	suite.CreateAttr("errors", strconv.Itoa(sum.Errors))
	suite.CreateAttr("timestamp", report.StartedAt.UTC().Format("2006-01-02T15:04:05"))
	suite.CreateAttr("time", strconv.FormatFloat(report.Finished.Sub(report.StartedAt).Seconds(), 'f', 3, 64))

	props := suite.CreateElement("properties")
	prop := props.CreateElement("property")
	prop.CreateAttr("name", "backend")
	prop.CreateAttr("value", report.Backend)

	for _, res := range report.Results {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("classname", junitSuiteName)
		tc.CreateAttr("name", res.Name)
		tc.CreateAttr("time", seconds(res))

		switch res.Status {
		case StatusFail:
			f := tc.CreateElement("failure")
			f.CreateAttr("message", res.Message)
			f.CreateAttr("type", "AssertionError")
			f.SetText(res.Message)
		case StatusError:
			e := tc.CreateElement("error")
			e.CreateAttr("message", res.Message)
			e.SetText(res.Message)
		}

		var out []string
		if res.PostingCount != nil {
			out = append(out, "postings: "+strconv.Itoa(*res.PostingCount))
		}
		if res.Screenshot != "" {
			out = append(out, "[[ATTACHMENT|"+res.Screenshot+"]]")
		}
		if len(out) > 0 {
			tc.CreateElement("system-out").SetText(strings.Join(out, "\n"))
		}
	}
	doc.Indent(2)
	return doc
}

func (r *JUnitReporter) Write(report *RunReport) error {
	if _, err := r.Document(report).WriteTo(r.writer); err != nil {
		return fmt.Errorf("writing junit report: %w", err)
	}
	return nil
}

func (r *JUnitReporter) Close() error {
	return r.writer.Close()
}
