package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/linkcheck/internal/model"
)

func documents(n int) []model.Document {
	docs := make([]model.Document, n)
	for i := range docs {
		docs[i] = model.Document(fmt.Sprintf("/docs/%02d.adoc", i))
	}
	return docs
}

func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })
		if bp.Concurrency() != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, bp.Concurrency())
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		if got := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(3)).Concurrency(); got != 3 {
			t.Errorf("expected concurrency 3, got %d", got)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		if got := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(0)).Concurrency(); got != DefaultConcurrency {
			t.Errorf("expected default concurrency, got %d", got)
		}
	})
}

// processAll runs docs through bp and returns the results in input order.
func processAll(ctx context.Context, bp *BatchProcessor, docs []model.Document) ([]*model.DocumentResult, error) {
	results := make([]*model.DocumentResult, len(docs))
	err := bp.ProcessBatchWithCallback(ctx, docs, func(result *model.DocumentResult, index int, _ error) {
		results[index] = result
	})
	return results, err
}

func TestBatchProcessorProcessAll(t *testing.T) {
	t.Parallel()

	t.Run("processes all documents in input order", func(t *testing.T) {
		t.Parallel()

		factory := func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "mark", doFunc: func(_ context.Context, r *model.DocumentResult) error {
				r.Links = []string{"https://example.test/" + string(r.Document)}
				return nil
			}})
			return p
		}

		docs := documents(8)
		results, err := processAll(context.Background(), NewBatchProcessor(factory, WithConcurrency(3)), docs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, r := range results {
			if r == nil || r.Document != docs[i] || len(r.Links) != 1 {
				t.Errorf("result %d: unexpected %+v", i, r)
			}
		}
	})

	t.Run("respects the worker limit", func(t *testing.T) {
		t.Parallel()

		var inFlight, peak atomic.Int64
		factory := func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "slow", doFunc: func(_ context.Context, _ *model.DocumentResult) error {
				n := inFlight.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				inFlight.Add(-1)
				return nil
			}})
			return p
		}

		if _, err := processAll(context.Background(), NewBatchProcessor(factory, WithConcurrency(2)), documents(10)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("expected at most 2 units in flight, saw %d", peak.Load())
		}
	})

	t.Run("isolates failing and panicking units", func(t *testing.T) {
		t.Parallel()

		factory := func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "flaky", doFunc: func(_ context.Context, r *model.DocumentResult) error {
				switch r.Document {
				case "/docs/01.adoc":
					return errors.New("unit failed")
				case "/docs/02.adoc":
					panic("boom")
				}
				r.Broken = []model.BrokenLink{{URL: "https://x.test", Reason: "HTTP 404"}}
				return nil
			}})
			return p
		}

		var mu sync.Mutex
		failed := map[int]error{}
		done := 0
		err := NewBatchProcessor(factory).ProcessBatchWithCallback(context.Background(), documents(4),
			func(_ *model.DocumentResult, index int, err error) {
				mu.Lock()
				defer mu.Unlock()
				done++
				if err != nil {
					failed[index] = err
				}
			})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if done != 4 {
			t.Errorf("expected 4 callbacks, got %d", done)
		}
		if len(failed) != 2 || failed[1] == nil || failed[2] == nil {
			t.Errorf("expected units 1 and 2 to fail, got %v", failed)
		}
	})

	t.Run("returns error when cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := atomic.Int64{}
		err := NewBatchProcessor(func() *Pipeline { return New() }).ProcessBatchWithCallback(ctx, documents(3),
			func(*model.DocumentResult, int, error) { called.Add(1) })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if called.Load() != 0 {
			t.Errorf("expected no units to run, got %d", called.Load())
		}
	})
}
