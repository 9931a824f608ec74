package federation

import (
	"context"
	"sync"
)

// Registry holds the merged schema for the process lifetime. It is
// written at most once and never invalidated in production; Reset
// exists so tests can rebuild deterministically.
type Registry struct {
	mu     sync.Mutex
	merged *Merged
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry { return &Registry{} }

// Get returns the memoized merged schema, building it with build on
// first use. Concurrent callers block until the single build finishes.
func (r *Registry) Get(ctx context.Context, build func(context.Context) (*Merged, error)) (*Merged, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.merged != nil {
		return r.merged, nil
	}
	merged, err := build(ctx)
	if err != nil {
		return nil, err
	}
	r.merged = merged
	return merged, nil
}

// Loaded reports whether a merged schema is memoized.
func (r *Registry) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.merged != nil
}

// Reset clears the memoized schema.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.merged = nil
	r.mu.Unlock()
}
