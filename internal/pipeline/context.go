package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActionContext is the immutable per-job metadata passed, read-only, to every
// action in a pipeline. It is created once per job invocation and never
// mutated mid-pipeline.
type ActionContext struct {
	JobID      uuid.UUID
	Queue      string
	Operation  string
	Worker     string
	Attempt    int
	RetryCount int
	StartedAt  time.Time

	ImportID uuid.UUID
	NoteID   *uuid.UUID
}

type actionContextKey struct{}

// WithActionContext returns a context carrying actx. The executor attaches it
// before running a pipeline so wrappers can log job metadata.
func WithActionContext(ctx context.Context, actx *ActionContext) context.Context {
	return context.WithValue(ctx, actionContextKey{}, actx)
}

// ActionContextFrom extracts the ActionContext, if any.
func ActionContextFrom(ctx context.Context) (*ActionContext, bool) {
	actx, ok := ctx.Value(actionContextKey{}).(*ActionContext)
	return actx, ok
}

// jobIDFrom returns the job id for log lines, or "unknown" when the pipeline
// runs outside a worker (tests, CLI one-shots).
func jobIDFrom(ctx context.Context) string {
	if actx, ok := ActionContextFrom(ctx); ok {
		return actx.JobID.String()
	}
	return "unknown"
}
