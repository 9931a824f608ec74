// Package entity implements the lazily resolved domain objects served
// by the gateway. An entity is constructed with just enough identity to
// fetch its backend payload later; the first access to a plain data
// field triggers exactly one fetch and one conversion, and every later
// access serves from the cached result. Traversal fields construct
// further entities sharing the same request-scoped loaders.
package entity

import (
	"context"
	"errors"
	"sync"
)

// ErrBackendDataNull marks a backend fetch that yielded no payload,
// either not found or a fetch failure collapsed to null upstream.
var ErrBackendDataNull = errors.New("backend data is null")

type lazyState int

const (
	lazyUnloaded lazyState = iota
	lazyLoaded
	lazyFailed
)

// lazyData caches one load+convert cycle. Loaded and Failed are both
// terminal; a failed load is never retried on the same instance.
type lazyData struct {
	mu        sync.Mutex
	state     lazyState
	raw       map[string]any
	converted map[string]any
	err       error
}

// resolve returns the raw and converted payloads, performing the load
// and conversion on first call. A nil payload from load resolves to
// ErrBackendDataNull.
func (l *lazyData) resolve(
	ctx context.Context,
	load func(context.Context) map[string]any,
	convert func(map[string]any) map[string]any,
) (raw, converted map[string]any, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case lazyLoaded:
		return l.raw, l.converted, nil
	case lazyFailed:
		return nil, nil, l.err
	}
	data := load(ctx)
	if data == nil {
		l.state = lazyFailed
		l.err = ErrBackendDataNull
		return nil, nil, l.err
	}
	l.raw = data
	l.converted = convert(data)
	l.state = lazyLoaded
	return l.raw, l.converted, nil
}
