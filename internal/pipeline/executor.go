package pipeline

import (
	"context"
	"strings"

	"github.com/jonathan/recipe-importer/internal/observability"
)

// Executor runs an ordered action list sequentially, threading the evolving
// data value from each action to the next. Execution is fail-fast: the first
// failed result aborts the remaining actions and its error is returned to the
// worker, which surfaces it to the queue's own retry layer. Priority on an
// action is metadata only; the executor never reorders or parallelizes.
type Executor struct {
	log *observability.Logger
}

// NewExecutor returns an executor logging through log.
func NewExecutor(log *observability.Logger) *Executor {
	return &Executor{log: log}
}

// Run executes actions in order starting from input and returns the final
// data value. actx is attached to ctx, read-only, for the duration of the
// run. Consecutive actions have strict happens-before ordering: action i+1
// never starts before action i completes.
func (e *Executor) Run(ctx context.Context, actx *ActionContext, actions []Action, input any) (any, error) {
	ctx = WithActionContext(ctx, actx)
	op := strings.ToUpper(actx.Operation)

	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = DisplayName(a)
	}
	e.log.Infof("[%s] executing %d actions for job %s: %s",
		op, len(actions), actx.JobID, strings.Join(names, ", "))

	data := input
	for _, a := range actions {
		res := ExecuteTimed(ctx, a, data)
		if !res.OK {
			e.log.Errorf("[%s] ❌ %s failed after %dms for job %s: %v",
				op, DisplayName(a), res.Duration.Milliseconds(), actx.JobID, res.Err)
			return nil, res.Err
		}
		e.log.Infof("[%s] ✅ %s (%dms)", op, DisplayName(a), res.Duration.Milliseconds())
		data = res.Output
	}
	return data, nil
}
