package pipeline

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps action names to constructors for one job type. Each worker
// owns its own registry so one pipeline's names cannot collide with
// another's. D is the dependency bundle handed to constructors. Safe for
// concurrent use.
type Registry[D any] struct {
	mu    sync.RWMutex
	ctors map[string]func(D) Action
}

// NewRegistry returns an empty registry.
func NewRegistry[D any]() *Registry[D] {
	return &Registry[D]{ctors: make(map[string]func(D) Action)}
}

// Register stores a constructor under name. Re-registering the same name
// replaces the constructor without error, so registration functions may run
// more than once.
func (r *Registry[D]) Register(name string, ctor func(D) Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctors == nil {
		r.ctors = make(map[string]func(D) Action)
	}
	r.ctors[name] = ctor
}

// Create constructs the named action with the given dependencies.
func (r *Registry[D]) Create(name string, deps D) (Action, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("pipeline: action %q is not registered (have: %v)", name, r.Names())
	}
	return ctor(deps), nil
}

// IsRegistered reports whether name has a constructor.
func (r *Registry[D]) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[name]
	return ok
}

// Names returns the registered action names, sorted.
func (r *Registry[D]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for n := range r.ctors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
