package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/storegraph/storegraph/internal/eventbus"
	"github.com/storegraph/storegraph/internal/events"
	"github.com/storegraph/storegraph/internal/language"
)

// Request is one GraphQL call to forward to a remote action.
type Request struct {
	Query         *language.QueryDocument
	Variables     map[string]any
	OperationName string
	// Context carries request-scoped values through to the action.
	Context map[string]any
}

// ResolverFetcher sends GraphQL requests to one named action. The query
// document is printed to text before the call; the action answers with
// the standard GraphQL result shape, possibly wrapped in a
// {statusCode, body} envelope.
type ResolverFetcher struct {
	action  string
	invoker Invoker
}

// NewResolverFetcher binds a fetcher to an action name.
func NewResolverFetcher(action string, invoker Invoker) *ResolverFetcher {
	return &ResolverFetcher{action: action, invoker: invoker}
}

// Action returns the bound action name.
func (f *ResolverFetcher) Action() string { return f.action }

// Fetch executes req against the action and returns the GraphQL result
// map ({data, errors?}).
func (f *ResolverFetcher) Fetch(ctx context.Context, req Request) (map[string]any, error) {
	params := map[string]any{
		"query":         language.PrintQuery(req.Query),
		"variables":     req.Variables,
		"operationName": req.OperationName,
		"context":       req.Context,
	}
	eventbus.Publish(ctx, events.RemoteInvokeStart{Action: f.action})
	raw, err := f.invoker.Invoke(ctx, f.action, params)
	eventbus.Publish(ctx, events.RemoteInvokeFinish{Action: f.action, Err: err})
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("remote: decoding result of action %s: %w", f.action, err)
	}
	if body, ok := result["body"].(map[string]any); ok {
		return body, nil
	}
	return result, nil
}

// FetchText is Fetch for a query already in text form, used by the
// federation layer for introspection.
func (f *ResolverFetcher) FetchText(ctx context.Context, query string, variables map[string]any, operationName string) (map[string]any, error) {
	doc, err := language.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("remote: parsing query for action %s: %w", f.action, err)
	}
	return f.Fetch(ctx, Request{Query: doc, Variables: variables, OperationName: operationName})
}
