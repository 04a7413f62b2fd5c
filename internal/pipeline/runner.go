package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/linkcheck/internal/checker"
	"github.com/nao1215/linkcheck/internal/extract"
	"github.com/nao1215/linkcheck/internal/link"
	"github.com/nao1215/linkcheck/internal/model"
	"github.com/nao1215/linkcheck/internal/report"
)

// ErrNoSink is returned by Run when the runner has nowhere to hand the report.
var ErrNoSink = errors.New("no report sink configured")

// State is the phase of a run.
type State int32

const (
	// StateIdle means Run has not been called.
	StateIdle State = iota
	// StateDiscovering means the document list is being resolved.
	StateDiscovering
	// StateChecking means document units are running.
	StateChecking
	// StateReporting means the report is being handed to the sink.
	StateReporting
	// StateDone means the run finished, successfully or not.
	StateDone
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateChecking:
		return "checking"
	case StateReporting:
		return "reporting"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// DocumentSource lists the documents of a run.
type DocumentSource interface {
	Documents(ctx context.Context) ([]model.Document, error)
}

// Sink receives the final run result exactly once.
// report.FileSink and every report.Writer satisfy it.
type Sink = report.Writer

// Settings are the run parameters consumed by the runner.
type Settings struct {
	// Root is recorded in the run summary.
	Root string

	// MaxWorkers is the number of documents processed in parallel.
	MaxWorkers int

	// Delay is the pause between two probes of one document.
	Delay time.Duration

	// Timeout bounds each HTTP attempt.
	Timeout time.Duration

	// Blacklist lists domains treated as reachable without a probe.
	Blacklist link.Blacklist

	// Exclusions lists URLs that are never checked.
	Exclusions *link.ExclusionSet
}

// Runner executes a complete link-check run.
type Runner struct {
	source   DocumentSource
	settings Settings
	sink     Sink

	client    *http.Client
	cache     *checker.Cache
	extractor *extract.Extractor
	logger    *slog.Logger

	newID func() string
	now   func() time.Time

	state atomic.Int32
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSink sets where the final result is written.
func WithSink(sink Sink) RunnerOption {
	return func(r *Runner) {
		r.sink = sink
	}
}

// WithHTTPClient sets the probe client, typically built by
// checker.NewHTTPClient with the configured proxy and retry policy.
func WithHTTPClient(client *http.Client) RunnerOption {
	return func(r *Runner) {
		r.client = client
	}
}

// WithCache shares an outcome cache across runs.
func WithCache(cache *checker.Cache) RunnerOption {
	return func(r *Runner) {
		r.cache = cache
	}
}

// WithExtractor sets the link extractor.
func WithExtractor(e *extract.Extractor) RunnerOption {
	return func(r *Runner) {
		r.extractor = e
	}
}

// WithRunnerLogger sets the logger for the run.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner for the documents of source.
func NewRunner(source DocumentSource, settings Settings, opts ...RunnerOption) *Runner {
	r := &Runner{
		source:   source,
		settings: settings,
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.extractor == nil {
		r.extractor = extract.New(extract.WithLogger(r.logger))
	}
	if r.cache == nil {
		r.cache = checker.NewCache(checker.DefaultCacheSize)
	}
	return r
}

// State returns the current phase of the run.
func (r *Runner) State() State {
	return State(r.state.Load())
}

func (r *Runner) setState(s State) {
	r.state.Store(int32(s))
	r.logger.Debug("run state changed", "state", s)
}

// Run discovers the documents, checks them and writes the report to the
// sink. The report is written even when the run is cancelled part way; in
// that case the result is returned together with the context error.
func (r *Runner) Run(ctx context.Context) (*model.RunResult, error) {
	if r.sink == nil {
		return nil, ErrNoSink
	}
	defer r.setState(StateDone)

	summary := model.RunSummary{
		RunID:     r.newID(),
		Root:      r.settings.Root,
		StartedAt: r.now(),
	}

	r.setState(StateDiscovering)
	docs, err := r.source.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover documents: %w", err)
	}
	summary.Documents = len(docs)
	r.logger.Info("discovered documents", "count", len(docs), "root", r.settings.Root)

	r.setState(StateChecking)
	agg := report.NewAggregator()
	var mu sync.Mutex
	factory := r.pipelineFactory()
	bp := NewBatchProcessor(factory, WithConcurrency(r.settings.MaxWorkers), WithBatchLogger(r.logger))
	r.logger.Debug("checking documents",
		"workers", bp.Concurrency(),
		"steps", factory().StepNames(),
	)
	cacheBefore := r.cache.Stats()
	runErr := bp.ProcessBatchWithCallback(ctx, docs, func(res *model.DocumentResult, _ int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			summary.FailedDocuments++
			return
		}
		summary.LinksFound += len(res.Links)
		summary.Excluded += res.Excluded
		summary.Blacklisted += res.Blacklisted
		summary.LinksChecked += res.Checked
		agg.Add(res.Document, res.Broken)
	})

	// Units that were already running when ctx ended fail on their own and
	// leave the batch error nil.
	if runErr == nil {
		runErr = ctx.Err()
	}

	cacheAfter := r.cache.Stats()
	summary.CacheHits = cacheAfter.Hits - cacheBefore.Hits
	summary.CacheMisses = cacheAfter.Misses - cacheBefore.Misses

	r.setState(StateReporting)
	result := &model.RunResult{Report: agg.Report()}
	summary.Broken = result.Report.Count()
	summary.FinishedAt = r.now()
	result.Summary = summary

	if _, err := r.sink.Write(result); err != nil {
		return result, fmt.Errorf("failed to write report: %w", err)
	}
	r.logger.Info("run finished",
		"documents", summary.Documents,
		"links", summary.LinksFound,
		"broken", summary.Broken,
		"elapsed", summary.Duration(),
	)

	if runErr != nil {
		return result, fmt.Errorf("run interrupted: %w", runErr)
	}
	return result, nil
}

// pipelineFactory returns a constructor for the per-document pipeline. All
// pipelines share one checker and therefore one cache.
func (r *Runner) pipelineFactory() func() *Pipeline {
	c := checker.New(
		checker.WithHTTPClient(r.client),
		checker.WithTimeout(r.settings.Timeout),
		checker.WithBlacklist(r.settings.Blacklist),
		checker.WithCache(r.cache),
		checker.WithLogger(r.logger),
	)

	extractStep := NewExtractStep(r.extractor)
	excludeStep := NewExcludeStep(r.settings.Exclusions)
	checkStep := NewCheckStep(c, WithDelay(r.settings.Delay), WithCheckLogger(r.logger))

	return func() *Pipeline {
		p := New(WithLogger(r.logger))
		p.AddSteps(extractStep, excludeStep, checkStep)
		return p
	}
}
