package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recipe-importer/internal/observability"
)

// failNTimes returns an action that fails the first n executions with err and
// then succeeds with out, plus a pointer to its invocation counter.
func failNTimes(n int, err error, out any) (Action, *int) {
	calls := new(int)
	a := New(Spec[any, any]{
		Name: "flaky",
		Run: func(_ context.Context, _ any) (any, error) {
			*calls++
			if *calls <= n {
				return nil, err
			}
			return out, nil
		},
	})
	return a, calls
}

// recordSleeps swaps the wrapper's sleeper for one that records delays
// without actually sleeping.
func recordSleeps(t *testing.T, a Action) *[]time.Duration {
	t.Helper()
	r, ok := a.(*retryAction)
	require.True(t, ok)
	delays := new([]time.Duration)
	r.sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return delays
}

func testLogger() (*observability.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return observability.NewLogger(&buf, observability.LevelDebug), &buf
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	log, buf := testLogger()
	inner, calls := failNTimes(2, errors.New("x"), map[string]bool{"ok": true})

	wrapped := Retry(inner, RetryConfig{
		MaxRetries: 3,
		Backoff:    10 * time.Millisecond,
		Multiplier: 2,
		MaxBackoff: 100 * time.Millisecond,
	}, log)
	delays := recordSleeps(t, wrapped)

	out, err := wrapped.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"ok": true}, out)
	assert.Equal(t, 3, *calls, "two failures plus the success")
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *delays)
	assert.Contains(t, buf.String(), "attempt 1/4")
	assert.Contains(t, buf.String(), "attempt 2/4")
}

func TestRetry_BackoffIsCapped(t *testing.T) {
	log, _ := testLogger()
	inner, _ := failNTimes(5, errors.New("x"), nil)

	wrapped := Retry(inner, RetryConfig{
		MaxRetries: 5,
		Backoff:    40 * time.Millisecond,
		Multiplier: 2,
		MaxBackoff: 100 * time.Millisecond,
	}, log)
	delays := recordSleeps(t, wrapped)

	_, err := wrapped.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{
		40 * time.Millisecond,
		80 * time.Millisecond,
		100 * time.Millisecond, // capped
		100 * time.Millisecond,
		100 * time.Millisecond,
	}, *delays)
}

func TestRetry_ExhaustionReturnsLastErrorUnchanged(t *testing.T) {
	log, _ := testLogger()
	down := errors.New("down")
	inner, calls := failNTimes(99, down, nil)

	wrapped := Retry(inner, RetryConfig{MaxRetries: 1, Backoff: time.Millisecond, Multiplier: 2}, log)
	recordSleeps(t, wrapped)

	_, err := wrapped.Execute(context.Background(), nil)
	require.Error(t, err)
	assert.Same(t, down, err, "the final error must not be wrapped or boxed")
	assert.Equal(t, "down", err.Error())
	assert.Equal(t, 2, *calls, "one initial try plus one retry")
}

func TestRetry_ValidationIsNeverRetried(t *testing.T) {
	log, _ := testLogger()
	executed := 0
	inner := New(Spec[string, string]{
		Name:     "guarded",
		Validate: func(string) error { return errors.New("bad input") },
		Run: func(_ context.Context, in string) (string, error) {
			executed++
			return in, nil
		},
	})

	wrapped := Retry(inner, DefaultRetryConfig(), log)

	res := ExecuteTimed(context.Background(), wrapped, "anything")
	assert.False(t, res.OK)
	assert.ErrorContains(t, res.Err, "bad input")
	assert.Zero(t, executed)
}

func TestRetry_SleepObservesCancellation(t *testing.T) {
	log, _ := testLogger()
	inner, _ := failNTimes(99, errors.New("x"), nil)
	wrapped := Retry(inner, RetryConfig{MaxRetries: 3, Backoff: time.Minute, Multiplier: 2}, log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := wrapped.Execute(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryConfig_Defaults(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.Backoff)
	assert.Equal(t, float64(2), cfg.Multiplier)
	assert.Equal(t, 10*time.Second, cfg.MaxBackoff)

	assert.Equal(t, time.Second, cfg.delayFor(1))
	assert.Equal(t, 2*time.Second, cfg.delayFor(2))
	assert.Equal(t, 4*time.Second, cfg.delayFor(3))
	assert.Equal(t, 8*time.Second, cfg.delayFor(4))
	assert.Equal(t, 10*time.Second, cfg.delayFor(5))
}
