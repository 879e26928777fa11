package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jonathan/recipe-importer/internal/observability"
)

// RetryConfig bounds the retry wrapper. It is attached at wrap time and never
// mutated.
type RetryConfig struct {
	MaxRetries int           // retries after the initial attempt
	Backoff    time.Duration // delay before the first retry
	Multiplier float64       // backoff growth factor per retry
	MaxBackoff time.Duration // cap on any single delay
}

// DefaultRetryConfig matches the defaults used across all job pipelines.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		Backoff:    time.Second,
		Multiplier: 2,
		MaxBackoff: 10 * time.Second,
	}
}

// delayFor computes the sleep before retry n (1-indexed): the first retry
// uses exponent 0, each later one multiplies, capped at MaxBackoff.
func (c RetryConfig) delayFor(retry int) time.Duration {
	d := time.Duration(float64(c.Backoff) * math.Pow(c.Multiplier, float64(retry-1)))
	if c.MaxBackoff > 0 && d > c.MaxBackoff {
		d = c.MaxBackoff
	}
	return d
}

// Retry wraps an action with bounded, sequential retry. The wrapped action's
// Execute is re-run on failure up to cfg.MaxRetries times (MaxRetries+1
// attempts total), sleeping between attempts with exponential backoff. On
// exhaustion the last error is returned unchanged so callers can classify the
// original failure. Input validation happens once, outside the retry loop:
// validation failures are never retried.
func Retry(inner Action, cfg RetryConfig, log *observability.Logger) Action {
	return &retryAction{inner: inner, cfg: cfg, log: log, sleep: sleepCtx}
}

type retryAction struct {
	inner Action
	cfg   RetryConfig
	log   *observability.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

func (r *retryAction) Name() string {
	return fmt.Sprintf("retry(%s)", r.inner.Name())
}

func (r *retryAction) Retryable() bool { return true }
func (r *retryAction) Priority() int   { return r.inner.Priority() }
func (r *retryAction) Unwrap() Action  { return r.inner }

func (r *retryAction) ValidateInput(input any) error {
	return r.inner.ValidateInput(input)
}

func (r *retryAction) Execute(ctx context.Context, input any) (any, error) {
	total := r.cfg.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= total; attempt++ {
		out, err := r.inner.Execute(ctx, input)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == total {
			break
		}
		delay := r.cfg.delayFor(attempt)
		r.log.Warnf("action %s failed for job %s (attempt %d/%d): %v; retrying in %s",
			DisplayName(r.inner), jobIDFrom(ctx), attempt, total, err, delay)
		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// sleepCtx sleeps for d unless ctx is canceled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
