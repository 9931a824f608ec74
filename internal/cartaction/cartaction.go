// Package cartaction is the remote cart resolver: a self-contained
// compute unit answering GraphQL requests for the cart subset of the
// commerce schema. The gateway merges its schema in by introspecting it
// through an Invoker, so the action also answers introspection queries.
package cartaction

import (
	"context"
	"fmt"

	log "github.com/jensneuse/abstractlogger"

	"github.com/storegraph/storegraph/internal/commerce"
	"github.com/storegraph/storegraph/internal/entity"
	"github.com/storegraph/storegraph/internal/executor"
	"github.com/storegraph/storegraph/internal/introspection"
	"github.com/storegraph/storegraph/internal/language"
	"github.com/storegraph/storegraph/internal/schema"
)

// NewCartID is returned by the createEmptyCart mutation. A real
// integration would POST to the commerce system here.
const NewCartID = "thisisthenewcartid"

// Action executes cart queries against the pruned commerce schema.
type Action struct {
	schema  *schema.Schema
	backend entity.Backend
	catalog entity.Searcher
	log     log.Logger
}

// New builds the action's schema: Query filtered to cart, Mutation to
// createEmptyCart.
func New(backend entity.Backend, catalog entity.Searcher, logger log.Logger) (*Action, error) {
	b, err := commerce.NewBuilder()
	if err != nil {
		return nil, err
	}
	sch, err := b.
		FilterQueryFields(map[string]bool{"cart": true}).
		FilterMutationFields(map[string]bool{"createEmptyCart": true}).
		Build(1000)
	if err != nil {
		return nil, fmt.Errorf("cartaction: building schema: %w", err)
	}
	entity.MarkAsync(sch)
	return &Action{schema: sch, backend: backend, catalog: catalog, log: logger}, nil
}

// Main is the action entry point; params follows the invocation shape
// {query, variables, operationName, context}. It returns the standard
// GraphQL result map so it satisfies remote.ActionFunc directly.
func (a *Action) Main(ctx context.Context, params map[string]any) (any, error) {
	query, _ := params["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("cartaction: missing query parameter")
	}
	doc, err := language.ParseQuery(query)
	if err != nil {
		return graphqlErrorResult(err), nil
	}
	variables, _ := params["variables"].(map[string]any)
	operationName, _ := params["operationName"].(string)
	gqlContext, _ := params["context"].(map[string]any)

	session := entity.NewSession(a.backend, a.catalog, a.log)
	session.Context = gqlContext

	roots := map[string]entity.RootResolver{
		"cart": func(ctx context.Context, args map[string]any) (any, error) {
			return entity.NewCart(fmt.Sprint(args["cart_id"]), session), nil
		},
		"createEmptyCart": func(ctx context.Context, args map[string]any) (any, error) {
			return NewCartID, nil
		},
	}

	wrapper := introspection.Wrap(entity.NewRuntime(roots), a.schema)
	result := executor.NewExecutor(wrapper.Runtime, wrapper.Schema).
		ExecuteRequest(ctx, doc, operationName, variables, nil)
	return resultToMap(result), nil
}

func resultToMap(result *executor.ExecutionResult) map[string]any {
	out := map[string]any{"data": result.Data}
	if len(result.Errors) > 0 {
		errs := make([]any, len(result.Errors))
		for i, e := range result.Errors {
			entry := map[string]any{"message": e.Message}
			if len(e.Path) > 0 {
				path := make([]any, len(e.Path))
				for j, p := range e.Path {
					path[j] = p
				}
				entry["path"] = path
			}
			errs[i] = entry
		}
		out["errors"] = errs
	}
	return out
}

func graphqlErrorResult(err error) map[string]any {
	return map[string]any{
		"data":   nil,
		"errors": []any{map[string]any{"message": err.Error()}},
	}
}
