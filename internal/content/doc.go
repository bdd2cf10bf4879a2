// Package content loads and serves the programmatic-SEO data files.
//
// Each content category (tools, comparisons, guides) has one JSON data file
// named <category>.json in the content directory, conforming to the
// {category, pages, meta} envelope. The Store parses every file once at
// startup, indexes pages by slug, and answers lookups from memory.
//
// Design decision: Content is read-only at request time. Writes happen only
// when the pSEO generation pipeline regenerates a data file on disk; the
// optional Watcher picks the change up via fsnotify and swaps in a freshly
// parsed snapshot. A parse failure keeps the previous good snapshot so a
// half-written file never takes pages offline.
package content
