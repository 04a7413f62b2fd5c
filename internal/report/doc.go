// Package report collects broken links and renders the final report.
//
// This package contains:
//   - Aggregator: Concurrency-safe collection of per-document results
//   - JSONWriter: The machine-readable {"doc": [["url", "reason"]]} report
//   - MarkdownWriter: A Markdown summary for sharing in reviews and CI
//   - SimpleWriter: Human-readable text output for terminal display
//   - FileSink: Persists a run result to a file in the configured format
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
