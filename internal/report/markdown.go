package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/jonit-dev/pixelperfect/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for pasting run summaries into issues and docs.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the runs in Markdown format.
func (w *MarkdownWriter) Write(runs []*model.SyncRun) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, runs)

	for _, run := range runs {
		w.writeRun(md, run)
	}

	w.writeAlert(md, runs)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with the overview table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, runs []*model.SyncRun) {
	md.H1("Subscription Sync Report")
	md.PlainText("")

	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			run.Job.String(),
			strconv.Itoa(run.Processed),
			strconv.Itoa(run.Errors),
			w.statusText(run),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Job", "Processed", "Errors", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// statusText returns the status cell for a run.
func (w *MarkdownWriter) statusText(run *model.SyncRun) string {
	if run.Succeeded() {
		return "✅ OK"
	}
	return "❌ " + strconv.Itoa(run.Errors) + " failed"
}

// writeRun writes one run's detail section.
func (w *MarkdownWriter) writeRun(md *markdown.Markdown, run *model.SyncRun) {
	md.H2(run.Job.String())
	md.PlainText("")

	counters := countersFor(run)
	rows := make([][]string, 0, len(counters)+2)
	for _, c := range counters {
		rows = append(rows, []string{c.label, strconv.Itoa(c.value)})
	}
	rows = append(rows,
		[]string{"run id", "`" + run.ID + "`"},
		[]string{"duration", run.Duration().String()})

	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if run.Processed > 0 {
		w.writePieChart(md, run)
	}
}

// writePieChart writes a mermaid pie chart of the run's outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, run *model.SyncRun) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle(run.Job.String()+" outcomes"),
		piechart.WithShowData(true),
	)

	changed := run.Fixed + run.Recovered
	untouched := run.Processed - changed - run.Unrecoverable - run.Errors

	if untouched > 0 {
		chart.LabelAndIntValue("Unchanged", uint64(untouched))
	}
	if changed > 0 {
		chart.LabelAndIntValue("Repaired", uint64(changed))
	}
	if run.Unrecoverable > 0 {
		chart.LabelAndIntValue("Unrecoverable", uint64(run.Unrecoverable))
	}
	if run.Errors > 0 {
		chart.LabelAndIntValue("Failed", uint64(run.Errors))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the overall outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, runs []*model.SyncRun) {
	var errors, unrecoverable int
	for _, run := range runs {
		errors += run.Errors
		unrecoverable += run.Unrecoverable
	}

	switch {
	case unrecoverable > 0:
		md.Cautionf(
			"%d webhook event(s) exhausted their retry budget and need manual review.",
			unrecoverable,
		)
	case errors > 0:
		md.Warningf(
			"%d record(s) failed to sync. They will be retried on the next run.",
			errors,
		)
	default:
		md.Tip("All records synced cleanly.")
	}
	md.PlainText("")
}
