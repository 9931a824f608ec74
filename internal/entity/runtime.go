package entity

import (
	"context"
	"fmt"
	"sync"

	"github.com/storegraph/storegraph/internal/executor"
	"github.com/storegraph/storegraph/internal/schema"
)

// Entity is a domain object the runtime can resolve fields on.
type Entity interface {
	TypeName() string
	ResolveField(ctx context.Context, name string, args map[string]any) (any, error)
}

// RootResolver resolves one root field of the merged schema.
type RootResolver func(ctx context.Context, args map[string]any) (any, error)

// Runtime adapts entities, record maps and root resolvers to the
// executor. Root tasks hit the resolver map; entity sources dispatch
// through ResolveField; plain maps resolve by key lookup, invoking
// thunks where present.
type Runtime struct {
	roots map[string]RootResolver
}

// NewRuntime creates a Runtime over the given root resolver map.
func NewRuntime(roots map[string]RootResolver) *Runtime {
	return &Runtime{roots: roots}
}

func (r *Runtime) resolve(ctx context.Context, field string, source any, args map[string]any) (any, error) {
	if source == nil {
		resolver, ok := r.roots[field]
		if !ok {
			return nil, fmt.Errorf("no resolver bound for root field %q", field)
		}
		return resolver(ctx, args)
	}
	switch src := source.(type) {
	case Entity:
		return src.ResolveField(ctx, field, args)
	case map[string]any:
		if t, ok := src[field].(Thunk); ok {
			return t(ctx)
		}
		return src[field], nil
	}
	return nil, fmt.Errorf("cannot resolve field %q on source of type %T", field, source)
}

// ResolveSync implements executor.Runtime.
func (r *Runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	return r.resolve(ctx, field, source, args)
}

// BatchResolveAsync implements executor.Runtime. Tasks of one depth run
// concurrently; the shared loaders coalesce equal keys into single
// fetches regardless of which task reached them first.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task executor.AsyncResolveTask) {
			defer wg.Done()
			value, err := r.resolve(ctx, task.Field, task.Source, task.Args)
			results[i] = executor.AsyncResolveResult{Value: value, Error: err}
		}(i, task)
	}
	wg.Wait()
	return results
}

// ResolveType implements executor.Runtime.
func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	switch v := value.(type) {
	case Entity:
		return v.TypeName(), nil
	case map[string]any:
		if name, ok := v["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot resolve concrete type of %T for %s", value, abstractType)
}

// SerializeLeafValue implements executor.Runtime. Backend values are
// already JSON-safe; string leaves additionally stringify numeric ids
// because the schema declares a few numerals as String.
func (r *Runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if typeName == "String" || typeName == "ID" {
		if _, ok := value.(string); !ok {
			return fmt.Sprint(value), nil
		}
	}
	return value, nil
}

// MarkAsync flags every field of the schema's object and interface
// types as asynchronous, so the executor routes them all through
// BatchResolveAsync and one depth shares its loader fetches.
// Introspection meta fields added later stay synchronous.
func MarkAsync(s *schema.Schema) {
	for _, t := range s.Types {
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			continue
		}
		for _, f := range t.Fields {
			f.Async = true
		}
	}
}
