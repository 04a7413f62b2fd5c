// Package model defines the data structures shared by the link checker.
//
// This package contains the following main types:
//   - Document: One input file scanned for links
//   - LinkReference: A normalized URL together with the document it came from
//   - Outcome: The result of checking one URL
//   - BrokenLink: A URL that failed its check, with the reason
//   - Report: Broken links grouped by document
//   - RunSummary: Counters and timestamps describing one run
//
// Models live in their own package so that extract, checker, pipeline and
// report can share them without import cycles.
package model
