// Package dispatcher is the gateway entry point. It owns the merged
// schema lifecycle, binds root resolvers for every request and wraps
// execution results in the action envelope callers expect.
package dispatcher

import (
	"context"
	"fmt"

	log "github.com/jensneuse/abstractlogger"

	"github.com/storegraph/storegraph/internal/entity"
	"github.com/storegraph/storegraph/internal/eventbus"
	"github.com/storegraph/storegraph/internal/events"
	"github.com/storegraph/storegraph/internal/executor"
	"github.com/storegraph/storegraph/internal/federation"
	"github.com/storegraph/storegraph/internal/introspection"
	"github.com/storegraph/storegraph/internal/language"
)

// Dispatcher resolves GraphQL requests against the federated schema.
// The merged schema is built once on first use and reused until Reset.
type Dispatcher struct {
	backend   entity.Backend
	catalog   entity.Searcher
	federator *federation.Federator
	registry  *federation.Registry
	log       log.Logger
}

func New(backend entity.Backend, catalog entity.Searcher, federator *federation.Federator, logger log.Logger) *Dispatcher {
	return &Dispatcher{
		backend:   backend,
		catalog:   catalog,
		federator: federator,
		registry:  federation.NewRegistry(),
		log:       logger,
	}
}

// Reset drops the merged schema so the next request rebuilds it.
func (d *Dispatcher) Reset() { d.registry.Reset() }

// Resolve handles one request. params carries the GraphQL request plus
// the federation settings: "remoteSchemas" maps schema names to
// {action, order} and "use-aio-cache" enables the SDL cache with the
// given TTL in seconds. The return value is always an action envelope;
// failures are reported inside it, never as a Go error.
func (d *Dispatcher) Resolve(ctx context.Context, params map[string]any) (response map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("dispatcher: panic during resolve", log.Any("panic", r))
			response = errorResponse(500, "server error")
		}
	}()

	query, _ := params["query"].(string)
	if query == "" {
		return errorResponse(400, "Must provide a query")
	}

	merged, err := d.registry.Get(ctx, func(ctx context.Context) (*federation.Merged, error) {
		return d.buildMerged(ctx, params)
	})
	if err != nil {
		d.log.Error("dispatcher: building federated schema", log.Error(err))
		return errorResponse(500, "server error")
	}

	operationName, _ := params["operationName"].(string)
	variables, _ := params["variables"].(map[string]any)

	eventbus.Publish(ctx, events.GraphQLStart{OperationName: operationName, Query: query})

	doc, err := language.ParseQuery(query)
	if err != nil {
		eventbus.Publish(ctx, events.GraphQLFinish{ErrorCount: 1})
		return successResponse(map[string]any{
			"errors": []map[string]any{{"message": err.Error()}},
		})
	}

	session := entity.NewSession(d.backend, d.catalog, d.log)
	session.Context = map[string]any{"dummy": "Can be some authentication token"}

	roots := entity.RootResolvers(session)
	// Schema-only extension with no backing service.
	roots["shoppinglist"] = func(ctx context.Context, args map[string]any) (any, error) {
		return nil, nil
	}
	for field, fetcher := range merged.Delegates {
		roots[field] = federation.DelegateResolver(fetcher, field, doc, operationName, variables, session.Context)
	}

	wrapper := introspection.Wrap(entity.NewRuntime(roots), merged.Schema)
	result := executor.NewExecutor(wrapper.Runtime, wrapper.Schema).
		ExecuteRequest(ctx, doc, operationName, variables, nil)

	eventbus.Publish(ctx, events.GraphQLFinish{ErrorCount: len(result.Errors)})
	return successResponse(resultToMap(result))
}

func (d *Dispatcher) buildMerged(ctx context.Context, params map[string]any) (*federation.Merged, error) {
	local, err := LocalSchema()
	if err != nil {
		return nil, err
	}
	configs, err := remoteConfigs(params["remoteSchemas"])
	if err != nil {
		return nil, err
	}
	cacheTTL := -1
	if ttl, ok := asInt(params["use-aio-cache"]); ok {
		cacheTTL = ttl
	}
	merged, err := d.federator.Build(ctx, local, configs, cacheTTL)
	if err != nil {
		return nil, err
	}
	entity.MarkAsync(merged.Schema)
	return merged, nil
}

func remoteConfigs(raw any) (map[string]federation.RemoteConfig, error) {
	if raw == nil {
		return nil, nil
	}
	entries, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("dispatcher: remoteSchemas must be an object")
	}
	configs := make(map[string]federation.RemoteConfig, len(entries))
	for name, v := range entries {
		entry, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("dispatcher: remote schema %q must be an object", name)
		}
		action, _ := entry["action"].(string)
		if action == "" {
			return nil, fmt.Errorf("dispatcher: remote schema %q has no action", name)
		}
		order, ok := asInt(entry["order"])
		if !ok {
			return nil, fmt.Errorf("dispatcher: remote schema %q has no order", name)
		}
		configs[name] = federation.RemoteConfig{Action: action, Order: order}
	}
	return configs, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func resultToMap(result *executor.ExecutionResult) map[string]any {
	body := map[string]any{"data": result.Data}
	if len(result.Errors) > 0 {
		errs := make([]map[string]any, 0, len(result.Errors))
		for _, e := range result.Errors {
			m := map[string]any{"message": e.Message}
			if len(e.Path) > 0 {
				path := make([]any, len(e.Path))
				for i, p := range e.Path {
					path[i] = p
				}
				m["path"] = path
			}
			errs = append(errs, m)
		}
		body["errors"] = errs
	}
	return body
}

func successResponse(body map[string]any) map[string]any {
	return map[string]any{"statusCode": 200, "body": body}
}

func errorResponse(status int, message string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"statusCode": status,
			"body":       map[string]any{"error": message},
		},
	}
}
