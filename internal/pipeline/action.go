// Package pipeline implements the action execution core shared by every
// background job type. A pipeline is an ordered list of named actions built
// fresh per job; the executor runs them sequentially, threading one evolving
// data value from each action to the next. Cross-cutting concerns (timing,
// retry, failure isolation) are layered on as wrappers that hold a reference
// to the action they decorate.
package pipeline

import (
	"context"
	"fmt"
)

// Action is a single named unit of work in a pipeline. Implementations are
// constructed fresh per job execution and must not keep state across jobs.
// Execute must be safe to re-run with the same input: the retry wrapper and
// the queue both deliver at-least-once.
type Action interface {
	// Name identifies the action. Wrappers return a composite name; use
	// DisplayName to get the innermost one for logs.
	Name() string

	// Retryable reports whether the action is intended to be wrapped with
	// retry. It is advisory; builders decide the actual wrapping.
	Retryable() bool

	// Priority is reserved metadata. The executor never reorders by it.
	Priority() int

	// ValidateInput checks the input before Execute. It must be pure and
	// side-effect free; a non-nil error aborts the action without running
	// Execute.
	ValidateInput(input any) error

	// Execute performs the work and returns the data passed to the next
	// action. It may do I/O and must honor ctx cancellation on blocking
	// operations.
	Execute(ctx context.Context, input any) (any, error)
}

// Wrapper is implemented by actions that decorate another action.
type Wrapper interface {
	Unwrap() Action
}

// DisplayName returns the innermost action name, unwrapping any decorator
// chain. It is cosmetic only and never affects dispatch.
func DisplayName(a Action) string {
	for {
		w, ok := a.(Wrapper)
		if !ok {
			return a.Name()
		}
		a = w.Unwrap()
	}
}

// Spec describes a typed action. In is the shape the action consumes, Out the
// shape it produces; New adapts the pair to the untyped Action contract with
// a checked assertion at the boundary, so a mis-ordered pipeline fails with a
// descriptive type error instead of corrupting downstream state.
type Spec[In, Out any] struct {
	Name      string
	Retryable bool
	Priority  int

	// Validate, if set, is called by ValidateInput after the type check.
	Validate func(in In) error

	// Run performs the work.
	Run func(ctx context.Context, in In) (Out, error)
}

// New builds an Action from a typed Spec.
func New[In, Out any](s Spec[In, Out]) Action {
	return &typedAction[In, Out]{spec: s}
}

type typedAction[In, Out any] struct {
	spec Spec[In, Out]
}

func (a *typedAction[In, Out]) Name() string    { return a.spec.Name }
func (a *typedAction[In, Out]) Retryable() bool { return a.spec.Retryable }
func (a *typedAction[In, Out]) Priority() int   { return a.spec.Priority }

func (a *typedAction[In, Out]) ValidateInput(input any) error {
	in, err := a.assert(input)
	if err != nil {
		return err
	}
	if a.spec.Validate != nil {
		return a.spec.Validate(in)
	}
	return nil
}

func (a *typedAction[In, Out]) Execute(ctx context.Context, input any) (any, error) {
	in, err := a.assert(input)
	if err != nil {
		return nil, err
	}
	return a.spec.Run(ctx, in)
}

func (a *typedAction[In, Out]) assert(input any) (In, error) {
	in, ok := input.(In)
	if !ok {
		var zero In
		return zero, fmt.Errorf("action %s: expected input %T, got %T", a.spec.Name, zero, input)
	}
	return in, nil
}

// Config carries the overridable metadata of an action.
type Config struct {
	Retryable bool
	Priority  int
}

// Configured returns a new action with the given metadata, leaving the
// original untouched. The same action can be configured differently in
// different pipelines.
func Configured(a Action, cfg Config) Action {
	return &configuredAction{inner: a, cfg: cfg}
}

type configuredAction struct {
	inner Action
	cfg   Config
}

func (c *configuredAction) Name() string    { return c.inner.Name() }
func (c *configuredAction) Retryable() bool { return c.cfg.Retryable }
func (c *configuredAction) Priority() int   { return c.cfg.Priority }
func (c *configuredAction) Unwrap() Action  { return c.inner }

func (c *configuredAction) ValidateInput(input any) error {
	return c.inner.ValidateInput(input)
}

func (c *configuredAction) Execute(ctx context.Context, input any) (any, error) {
	return c.inner.Execute(ctx, input)
}
