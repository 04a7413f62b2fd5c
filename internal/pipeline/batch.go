package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/linkcheck/internal/model"
)

// DefaultConcurrency is the number of documents processed in parallel when
// no concurrency is configured.
const DefaultConcurrency = 5

// BatchProcessor runs one pipeline per document with bounded concurrency.
type BatchProcessor struct {
	// pipelineFactory builds a fresh pipeline for every document.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of documents in flight.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the worker limit. Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a processor using pipelineFactory for each unit.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// Concurrency returns the worker limit.
func (bp *BatchProcessor) Concurrency() int {
	return bp.concurrency
}

// ProcessBatchWithCallback processes all documents and calls callback once
// per finished unit, from the worker goroutine. Units never fail the batch:
// errors and panics are reported through the callback's err argument.
// The returned error is non-nil only when ctx was cancelled before every
// unit started.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	docs []model.Document,
	callback func(result *model.DocumentResult, index int, err error),
) error {
	bp.logger.Info("starting batch processing",
		"total_documents", len(docs),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, doc := range docs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Debug("processing document",
				"document", doc,
				"index", i+1,
				"total", len(docs),
			)

			result := model.NewDocumentResult(doc)
			err := bp.runUnit(ctx, result)
			if err != nil {
				bp.logger.Warn("document failed",
					"document", doc,
					"error", err,
				)
			}

			callback(result, i, err)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_documents", len(docs),
		"elapsed", time.Since(startTime),
	)

	return err
}

// runUnit executes one pipeline and turns a panic into an error.
func (bp *BatchProcessor) runUnit(ctx context.Context, result *model.DocumentResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			bp.logger.Error("document unit panicked",
				"document", result.Document,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("panic while processing %s: %v", result.Document, r)
		}
	}()
	return bp.pipelineFactory().Execute(ctx, result)
}
