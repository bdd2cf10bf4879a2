package report

import (
	"io"

	"github.com/jonit-dev/pixelperfect/internal/model"
)

// Writer defines the interface for sync run output.
// Implementations write run results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the runs to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(runs []*model.SyncRun) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the runs to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(runs []*model.SyncRun) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(runs)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// countersFor returns the labeled counters relevant to a run's job.
// check-expirations and reconcile report fixes; recover-webhooks reports
// recoveries and the unrecoverable tally.
func countersFor(run *model.SyncRun) []counter {
	counters := []counter{{"processed", run.Processed}}
	switch run.Job {
	case model.JobRecoverWebhooks:
		counters = append(counters,
			counter{"recovered", run.Recovered},
			counter{"unrecoverable", run.Unrecoverable})
	default:
		counters = append(counters, counter{"fixed", run.Fixed})
	}
	return append(counters, counter{"errors", run.Errors})
}

// counter is one labeled run counter.
type counter struct {
	label string
	value int
}
