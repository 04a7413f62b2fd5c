// Package pipeline orchestrates a link-check run.
//
// Each document is one unit of work that passes through a Pipeline of steps:
// extraction, exclusion filtering and checking. A BatchProcessor runs the
// units on an errgroup limited to the configured worker count, and a Runner
// ties discovery, the batch, the aggregator and the report sink together:
//
//	Discovering -> Checking -> Reporting -> Done
//
// A unit that fails or panics is logged and contributes no broken links; the
// run goes on and the report is still written.
package pipeline
