// Package reqid attaches a request-scoped identifier to contexts so that
// events emitted during one request can be correlated.
package reqid

import (
	"context"
	"math/rand"
)

type key struct{}

// NewContext returns a child context carrying a fresh request id.
func NewContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, key{}, rand.Int63())
}

// FromContext returns the request id, or 0 when none is set.
func FromContext(ctx context.Context) int64 {
	if v, ok := ctx.Value(key{}).(int64); ok {
		return v
	}
	return 0
}
