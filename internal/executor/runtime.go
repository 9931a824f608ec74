package executor

import (
	"context"
)

// Runtime is the host integration surface for field resolution, batching,
// abstract type resolution, and leaf serialization.
//
// Execution is breadth first. At each depth the Executor drains all
// synchronous fields via ResolveSync, then calls BatchResolveAsync ONCE
// with every async task collected at that depth. The next depth does not
// begin until those results are completed.
//
//   - ResolveSync is never invoked for fields marked async, and
//     BatchResolveAsync only runs when at least one async field exists at
//     the current depth.
//   - Errors from any method become located GraphQL errors. For a Non-Null
//     field type the Executor propagates the null to the nearest nullable
//     ancestor per the GraphQL spec.
//   - Implementations must be safe for concurrent use and must not mutate
//     source or args values.
//
// objectType is the GraphQL type name (e.g. "Cart"), field the field name
// on that type. For root fields, objectType is the root type name and
// source is nil.
type Runtime interface {
	// ResolveSync resolves a synchronous field value immediately.
	// Return (nil, nil) to produce a GraphQL null for nullable fields.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves one execution depth of async field tasks.
	//
	// Requirements:
	//   - len(results) == len(tasks).
	//   - results[i] corresponds to tasks[i].
	//   - Errors are per element; one failure never fails the whole batch.
	//
	// Implementations may group tasks by (objectType, field) or by backend
	// affinity, and may fan out internally, as long as the positional
	// contract holds.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType returns the concrete object type name for a value of an
	// abstract (interface or union) type. The returned name must be a
	// possible type of abstractType in the schema.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue serializes a scalar or enum value to a JSON-safe
	// Go value. For enums, return the symbolic name as a string.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

// AsyncResolveTask is one pending async field resolution.
type AsyncResolveTask struct {
	// ObjectType is the parent GraphQL object type name for the field.
	ObjectType string
	// Field is the GraphQL field name to resolve.
	Field string
	// Source is the parent object value (nil for root fields).
	Source any
	// Args are the field arguments, coerced to Go values per the schema.
	Args map[string]any
}

// AsyncResolveResult is the outcome for one task of a batch.
type AsyncResolveResult struct {
	// Value is the resolved raw value prior to completion, or nil on error.
	Value any
	// Error is a failure specific to this element; other elements in the
	// same batch are unaffected.
	Error error
}
