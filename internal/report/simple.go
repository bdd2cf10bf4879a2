package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonit-dev/pixelperfect/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display after a manual sync run.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether runs that processed nothing are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show runs with no processed records.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the runs in human-readable format.
func (w *SimpleWriter) Write(runs []*model.SyncRun) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, runs)

	for _, run := range runs {
		if run.Processed == 0 && run.Errors == 0 && !w.showEmpty {
			continue
		}
		w.writeRun(&sb, run)
	}

	w.writeFooter(&sb, runs)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, runs []*model.SyncRun) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      SUBSCRIPTION SYNC REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Jobs Run:  %d\n", len(runs)))
	if len(runs) > 0 && !runs[0].StartedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Started:   %s\n", runs[0].StartedAt.Format("2006-01-02 15:04:05 MST")))
	}
	sb.WriteString("\n")
}

// writeRun writes one run's section.
func (w *SimpleWriter) writeRun(sb *strings.Builder, run *model.SyncRun) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(strings.ToUpper(run.Job.String()))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, c := range countersFor(run) {
		sb.WriteString(fmt.Sprintf("  %-14s %d\n", c.label+":", c.value))
	}

	if run.Succeeded() {
		sb.WriteString("\n  Status:        OK\n")
	} else {
		sb.WriteString(fmt.Sprintf("\n  Status:        %d record(s) failed\n", run.Errors))
	}

	if w.verbose {
		sb.WriteString(fmt.Sprintf("  Run ID:        %s\n", run.ID))
		sb.WriteString(fmt.Sprintf("  Duration:      %s\n", run.Duration()))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer with the overall verdict.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, runs []*model.SyncRun) {
	var errors int
	for _, run := range runs {
		errors += run.Errors
	}

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	if errors == 0 {
		sb.WriteString("All jobs completed without record failures\n")
	} else {
		sb.WriteString(fmt.Sprintf("%d record(s) failed across all jobs\n", errors))
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
