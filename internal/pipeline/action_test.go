package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Content string
}

type cleaned struct {
	doc
	Cleaned string
}

func TestTypedAction_ExecutesWithTypedInput(t *testing.T) {
	a := New(Spec[doc, cleaned]{
		Name: "clean",
		Run: func(_ context.Context, in doc) (cleaned, error) {
			return cleaned{doc: in, Cleaned: "<" + in.Content + ">"}, nil
		},
	})

	out, err := a.Execute(context.Background(), doc{Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, cleaned{doc: doc{Content: "x"}, Cleaned: "<x>"}, out)
}

func TestTypedAction_TypeMismatchIsDescriptive(t *testing.T) {
	a := New(Spec[doc, cleaned]{
		Name: "clean",
		Run: func(_ context.Context, in doc) (cleaned, error) {
			return cleaned{}, nil
		},
	})

	err := a.ValidateInput(42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clean")
	assert.Contains(t, err.Error(), "expected input")

	_, err = a.Execute(context.Background(), "wrong")
	require.Error(t, err)
}

func TestTypedAction_ValidateBlocksExecute(t *testing.T) {
	executed := false
	a := New(Spec[doc, doc]{
		Name: "guarded",
		Validate: func(in doc) error {
			if in.Content == "" {
				return errors.New("content is required")
			}
			return nil
		},
		Run: func(_ context.Context, in doc) (doc, error) {
			executed = true
			return in, nil
		},
	})

	res := ExecuteTimed(context.Background(), a, doc{})
	assert.False(t, res.OK)
	assert.ErrorContains(t, res.Err, "content is required")
	assert.False(t, executed, "Execute must never run when validation fails")

	res = ExecuteTimed(context.Background(), a, doc{Content: "ok"})
	assert.True(t, res.OK)
	assert.True(t, executed)
}

func TestConfigured_OverridesMetadataOnly(t *testing.T) {
	a := New(Spec[doc, doc]{
		Name:      "base",
		Retryable: false,
		Priority:  1,
		Run:       func(_ context.Context, in doc) (doc, error) { return in, nil },
	})

	c := Configured(a, Config{Retryable: true, Priority: 9})

	assert.True(t, c.Retryable())
	assert.Equal(t, 9, c.Priority())
	assert.Equal(t, "base", c.Name())

	// Original untouched.
	assert.False(t, a.Retryable())
	assert.Equal(t, 1, a.Priority())

	out, err := c.Execute(context.Background(), doc{Content: "v"})
	require.NoError(t, err)
	assert.Equal(t, doc{Content: "v"}, out)
}

func TestDisplayName_UnwrapsWrapperChain(t *testing.T) {
	a := New(Spec[doc, doc]{
		Name: "validate-note",
		Run:  func(_ context.Context, in doc) (doc, error) { return in, nil },
	})

	wrapped := BestEffort(Retry(Configured(a, Config{Retryable: true}), DefaultRetryConfig(), nil), nil)

	assert.Equal(t, "validate-note", DisplayName(wrapped))
	assert.Contains(t, wrapped.Name(), "best_effort(")
	assert.Contains(t, wrapped.Name(), "retry(")
}

func TestExecuteTimed_ConvertsPanicToFailure(t *testing.T) {
	a := New(Spec[doc, doc]{
		Name: "boom",
		Run: func(_ context.Context, _ doc) (doc, error) {
			panic("unexpected state")
		},
	})

	res := ExecuteTimed(context.Background(), a, doc{})
	assert.False(t, res.OK)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "boom")
	assert.Contains(t, res.Err.Error(), "panicked")
}

func TestExecuteTimed_MeasuresDuration(t *testing.T) {
	a := New(Spec[doc, doc]{
		Name: "ok",
		Run:  func(_ context.Context, in doc) (doc, error) { return in, nil },
	})

	res := ExecuteTimed(context.Background(), a, doc{})
	assert.True(t, res.OK)
	assert.GreaterOrEqual(t, res.Duration, time.Duration(0))
}
