package pipeline

import (
	"context"
	"fmt"
	"time"
)

// Result is the outcome of one timed action execution.
type Result struct {
	OK       bool
	Output   any
	Err      error
	Duration time.Duration
}

// ExecuteTimed is the uniform boundary the executor relies on: it runs
// ValidateInput then Execute, measures wall-clock duration, and converts
// errors and panics into a failed Result instead of letting them escape.
// For wrapped actions the measured duration covers the whole wrapper chain,
// so a retry wrapper's backoff sleeps are included in the reported time.
func ExecuteTimed(ctx context.Context, a Action, input any) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Err:      fmt.Errorf("action %s panicked: %v", DisplayName(a), r),
				Duration: time.Since(start),
			}
		}
	}()

	if err := a.ValidateInput(input); err != nil {
		return Result{
			Err:      fmt.Errorf("action %s: input validation: %w", DisplayName(a), err),
			Duration: time.Since(start),
		}
	}

	out, err := a.Execute(ctx, input)
	d := time.Since(start)
	if err != nil {
		return Result{Err: err, Duration: d}
	}
	return Result{OK: true, Output: out, Duration: d}
}
