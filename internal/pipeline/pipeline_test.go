package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/linkcheck/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, result *model.DocumentResult) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, result *model.DocumentResult) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, result)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if len(p.StepNames()) != 0 {
			t.Errorf("expected 0 steps, got %v", p.StepNames())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		p := New()
		p.AddSteps(
			&mockStep{name: "step-1", doFunc: func(_ context.Context, _ *model.DocumentResult) error {
				order = append(order, "step-1")
				return nil
			}},
			&mockStep{name: "step-2", doFunc: func(_ context.Context, _ *model.DocumentResult) error {
				order = append(order, "step-2")
				return nil
			}},
		)

		if err := p.Execute(context.Background(), model.NewDocumentResult("/a.adoc")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Join(order, ",") != "step-1,step-2" {
			t.Errorf("wrong execution order: %v", order)
		}
		if got := strings.Join(p.StepNames(), ","); got != "step-1,step-2" {
			t.Errorf("unexpected step names %q", got)
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("step failed")
		second := &mockStep{name: "should-not-run"}
		p := New()
		p.AddStep(&mockStep{name: "failing", doFunc: func(_ context.Context, _ *model.DocumentResult) error {
			return expectedErr
		}})
		p.AddStep(second)

		err := p.Execute(context.Background(), model.NewDocumentResult("/a.adoc"))
		if !errors.Is(err, expectedErr) {
			t.Errorf("expected %v, got %v", expectedErr, err)
		}
		if second.callCount != 0 {
			t.Error("second step should not have been called")
		}
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		t.Parallel()

		step := &mockStep{name: "never"}
		p := New()
		p.AddStep(step)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := p.Execute(ctx, model.NewDocumentResult("/a.adoc")); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("step should not run after cancellation")
		}
	})
}
