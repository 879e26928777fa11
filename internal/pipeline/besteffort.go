package pipeline

import (
	"context"
	"fmt"

	"github.com/jonathan/recipe-importer/internal/observability"
)

// BestEffort wraps an action so that any failure is logged and absorbed: the
// pipeline continues with the input data unchanged. Use it for auxiliary
// steps (status broadcasts, follow-up scheduling) whose failure must not
// block the primary deliverable. This is failure isolation between steps;
// Retry is transient-failure recovery of one step. The two compose:
// BestEffort(Retry(a)) retries first, then absorbs.
func BestEffort(inner Action, log *observability.Logger) Action {
	return &bestEffortAction{inner: inner, log: log}
}

type bestEffortAction struct {
	inner Action
	log   *observability.Logger
}

func (b *bestEffortAction) Name() string {
	return fmt.Sprintf("best_effort(%s)", b.inner.Name())
}

func (b *bestEffortAction) Retryable() bool { return b.inner.Retryable() }
func (b *bestEffortAction) Priority() int   { return b.inner.Priority() }
func (b *bestEffortAction) Unwrap() Action  { return b.inner }

// ValidateInput always passes; the inner action's validation runs inside
// Execute so its failure is absorbed like any other.
func (b *bestEffortAction) ValidateInput(any) error { return nil }

func (b *bestEffortAction) Execute(ctx context.Context, input any) (any, error) {
	if err := b.inner.ValidateInput(input); err != nil {
		b.log.Errorf("best-effort action %s skipped for job %s: input validation: %v",
			DisplayName(b.inner), jobIDFrom(ctx), err)
		return input, nil
	}
	out, err := b.inner.Execute(ctx, input)
	if err != nil {
		b.log.Errorf("best-effort action %s failed for job %s: %v; continuing",
			DisplayName(b.inner), jobIDFrom(ctx), err)
		return input, nil
	}
	return out, nil
}
