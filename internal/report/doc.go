// Package report renders sync run results for the sync CLI command.
//
// Three formats are supported: simple text for terminals, JSON for tool
// integration, and Markdown for run summaries pasted into issues or docs.
package report
