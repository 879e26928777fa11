package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBestEffort_AbsorbsFailureAndPassesInputThrough(t *testing.T) {
	log, buf := testLogger()
	inner := New(Spec[map[string]int, map[string]int]{
		Name: "broadcast_status",
		Run: func(_ context.Context, _ map[string]int) (map[string]int, error) {
			return nil, errors.New("broadcast failed")
		},
	})

	wrapped := BestEffort(inner, log)
	input := map[string]int{"a": 1}

	out, err := wrapped.Execute(context.Background(), input)
	require.NoError(t, err, "best-effort failures must not escape")
	assert.Equal(t, input, out, "pipeline continues with prior data unchanged")
	assert.Contains(t, buf.String(), "broadcast_status")
	assert.Contains(t, buf.String(), "broadcast failed")
}

func TestBestEffort_PassesThroughSuccess(t *testing.T) {
	log, _ := testLogger()
	inner := New(Spec[int, int]{
		Name: "incr",
		Run:  func(_ context.Context, in int) (int, error) { return in + 1, nil },
	})

	out, err := BestEffort(inner, log).Execute(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, out)
}

func TestBestEffort_AbsorbsValidationFailure(t *testing.T) {
	log, buf := testLogger()
	executed := false
	inner := New(Spec[int, int]{
		Name:     "guarded",
		Validate: func(int) error { return errors.New("nope") },
		Run: func(_ context.Context, in int) (int, error) {
			executed = true
			return in, nil
		},
	})

	wrapped := BestEffort(inner, log)
	res := ExecuteTimed(context.Background(), wrapped, 7)
	assert.True(t, res.OK)
	assert.Equal(t, 7, res.Output)
	assert.False(t, executed)
	assert.Contains(t, buf.String(), "input validation")
}

func TestBestEffort_ComposesWithRetry(t *testing.T) {
	log, _ := testLogger()
	inner, calls := failNTimes(99, errors.New("queue unavailable"), nil)

	retried := Retry(inner, RetryConfig{MaxRetries: 2, Backoff: 1, Multiplier: 2}, log)
	recordSleeps(t, retried)
	wrapped := BestEffort(retried, log)

	out, err := wrapped.Execute(context.Background(), "payload")
	require.NoError(t, err)
	assert.Equal(t, "payload", out)
	assert.Equal(t, 3, *calls, "retries happen before the failure is absorbed")
}
