// Package executor implements breadth-first GraphQL execution over a
// schema.Schema and a host Runtime.
//
// Execution proceeds depth by depth. At each depth, synchronous fields
// are resolved immediately through Runtime.ResolveSync and their
// selection sets expanded inline. Fields marked async in the schema are
// queued; once a depth is fully expanded, the queued tasks are handed to
// Runtime.BatchResolveAsync in a single call. This gives the runtime one
// batching point per depth, which the entity layer uses to coalesce
// backend lookups across sibling fields (every cart item's product, for
// example, arrives in one batch).
//
// Error handling follows the GraphQL spec: each failed field produces a
// located error, Non-Null violations propagate null to the nearest
// nullable ancestor, and async tasks scheduled under an already
// nullified path are pruned before the next batch is dispatched. A
// failure in one batched task never affects its siblings.
package executor
