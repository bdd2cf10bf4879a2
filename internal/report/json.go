package report

import (
	"io"
	"time"

	json "github.com/goccy/go-json"

	"github.com/jonit-dev/pixelperfect/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = ""
		w.indentString = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter:   newBaseWriter(output),
		indent:       false,
		indentPrefix: "",
		indentString: "",
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the runs wrapped with summary metadata in JSON format.
func (w *JSONWriter) Write(runs []*model.SyncRun) (int, error) {
	return w.writeJSON(NewJSONReport(runs))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport wraps the runs with summary metadata.
//
// Design decision: We wrap the runs rather than extending SyncRun because
// this allows us to add output-specific fields without polluting the core
// data structure.
type JSONReport struct {
	// GeneratedAt is when the report was assembled.
	GeneratedAt time.Time `json:"generated_at"`

	// Runs are the job results in execution order.
	Runs []*model.SyncRun `json:"runs"`

	// TotalProcessed sums processed records across all runs.
	TotalProcessed int `json:"total_processed"`

	// TotalErrors sums record failures across all runs.
	TotalErrors int `json:"total_errors"`

	// Success is true when no run recorded a record failure.
	Success bool `json:"success"`
}

// NewJSONReport creates a JSONReport wrapper with summary totals.
func NewJSONReport(runs []*model.SyncRun) *JSONReport {
	r := &JSONReport{
		GeneratedAt: time.Now().UTC(),
		Runs:        runs,
		Success:     true,
	}
	for _, run := range runs {
		r.TotalProcessed += run.Processed
		r.TotalErrors += run.Errors
		if !run.Succeeded() {
			r.Success = false
		}
	}
	return r
}
