// internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Reporter writes a finished run report to an output.
type Reporter interface {
	Write(report *RunReport) error
	// Close flushes and releases the underlying output (e.g., file handles).
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// IsStdout reports whether outputPath names standard output.
func IsStdout(outputPath string) bool {
	return outputPath == "" || outputPath == "-" || outputPath == "stdout"
}

// New creates a reporter for format writing to outputPath.
func New(format, outputPath string) (Reporter, error) {
	return NewWithStdout(format, outputPath, os.Stdout)
}

// NewWithStdout is New with stdout replaced, for callers that capture output.
func NewWithStdout(format, outputPath string, stdout io.Writer) (Reporter, error) {
	format = strings.ToLower(format)
	if format != "json" && format != "junit" {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if IsStdout(outputPath) {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	if format == "junit" {
		return NewJUnitReporter(writer), nil
	}
	return NewJSONReporter(writer), nil
}
