package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/linkcheck/internal/checker"
	"github.com/nao1215/linkcheck/internal/extract"
	"github.com/nao1215/linkcheck/internal/link"
	"github.com/nao1215/linkcheck/internal/model"
)

// ExtractStep reads the document and stores its canonical links.
type ExtractStep struct {
	extractor *extract.Extractor
}

// NewExtractStep creates an ExtractStep. A nil extractor uses the default.
func NewExtractStep(extractor *extract.Extractor) *ExtractStep {
	if extractor == nil {
		extractor = extract.New()
	}
	return &ExtractStep{extractor: extractor}
}

// Name returns the step identifier.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do extracts the links of result.Document. Read failures leave the
// document without links.
func (s *ExtractStep) Do(_ context.Context, result *model.DocumentResult) error {
	result.Links = s.extractor.File(result.Document.Path())
	result.Pending = result.Links
	return nil
}

// ExcludeStep drops links listed in the exclusion set.
type ExcludeStep struct {
	exclusions *link.ExclusionSet
}

// NewExcludeStep creates an ExcludeStep. A nil set excludes nothing.
func NewExcludeStep(exclusions *link.ExclusionSet) *ExcludeStep {
	return &ExcludeStep{exclusions: exclusions}
}

// Name returns the step identifier.
func (s *ExcludeStep) Name() string {
	return "exclude"
}

// Do filters result.Pending against the exclusion set.
func (s *ExcludeStep) Do(_ context.Context, result *model.DocumentResult) error {
	pending := make([]string, 0, len(result.Pending))
	for _, u := range result.Pending {
		if s.exclusions.Contains(u) {
			result.Excluded++
			continue
		}
		pending = append(pending, u)
	}
	result.Pending = pending
	return nil
}

// CheckStep checks the pending links one after another, waiting Delay
// between network requests.
type CheckStep struct {
	checker *checker.Checker
	delay   time.Duration
	logger  *slog.Logger
}

// CheckStepOption configures a CheckStep.
type CheckStepOption func(*CheckStep)

// WithDelay sets the pause between two probes of one document.
func WithDelay(d time.Duration) CheckStepOption {
	return func(s *CheckStep) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithCheckLogger sets the logger for the step.
func WithCheckLogger(logger *slog.Logger) CheckStepOption {
	return func(s *CheckStep) {
		s.logger = logger
	}
}

// NewCheckStep creates a CheckStep using c.
func NewCheckStep(c *checker.Checker, opts ...CheckStepOption) *CheckStep {
	s := &CheckStep{
		checker: c,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step identifier.
func (s *CheckStep) Name() string {
	return "check"
}

// Do checks result.Pending and records broken links. Blacklisted links are
// counted and skip the delay. The delay runs from the end of one request to
// the start of the next, so a slow host is never hit back to back.
// A check cut short by cancellation fails the unit instead of being recorded
// as broken.
func (s *CheckStep) Do(ctx context.Context, result *model.DocumentResult) error {
	blacklist := s.checker.Blacklist()

	// pace is nil until the first check has finished.
	var pace *rate.Limiter
	for _, u := range result.Pending {
		result.Checked++
		if blacklist.Match(u) {
			result.Blacklisted++
			continue
		}

		if pace != nil {
			if err := pace.Wait(ctx); err != nil {
				return fmt.Errorf("waiting to check %s: %w", u, err)
			}
		}

		outcome := s.checker.Check(ctx, u)
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("check of %s interrupted: %w", u, err)
		}
		pace = s.pause()

		if outcome.Kind == model.OutcomeBroken {
			result.Broken = append(result.Broken, model.BrokenLink{URL: u, Reason: outcome.Reason})
		}
	}

	if len(result.Broken) > 0 {
		s.logger.Info("document has broken links",
			"document", result.Document,
			"broken", len(result.Broken),
		)
	}
	return nil
}

// pause returns a limiter whose next token is one delay away.
func (s *CheckStep) pause() *rate.Limiter {
	limit := rate.Inf
	if s.delay > 0 {
		limit = rate.Every(s.delay)
	}
	l := rate.NewLimiter(limit, 1)
	l.Allow()
	return l
}
