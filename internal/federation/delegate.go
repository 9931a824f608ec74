package federation

import (
	"context"
	"fmt"

	"github.com/storegraph/storegraph/internal/entity"
	"github.com/storegraph/storegraph/internal/language"
	"github.com/storegraph/storegraph/internal/remote"
)

// DelegateResolver returns a root resolver forwarding one root field of
// the request to the remote schema that owns it. The sub-query is cut
// from the request document at resolution time, so delegation only
// happens when the field is actually selected.
func DelegateResolver(
	fetcher *remote.ResolverFetcher,
	field string,
	doc *language.QueryDocument,
	operationName string,
	variables map[string]any,
	gqlContext map[string]any,
) entity.RootResolver {
	return func(ctx context.Context, args map[string]any) (any, error) {
		sub, err := remote.SubQuery(doc, operationName, field)
		if err != nil {
			return nil, err
		}
		result, err := fetcher.Fetch(ctx, remote.Request{
			Query:         sub,
			Variables:     variables,
			OperationName: operationName,
			Context:       gqlContext,
		})
		if err != nil {
			return nil, err
		}
		if errs, ok := result["errors"].([]any); ok && len(errs) > 0 {
			if m, ok := errs[0].(map[string]any); ok {
				return nil, fmt.Errorf("remote action %s: %v", fetcher.Action(), m["message"])
			}
			return nil, fmt.Errorf("remote action %s returned errors", fetcher.Action())
		}
		data, _ := result["data"].(map[string]any)
		if data == nil {
			return nil, nil
		}
		// The remote keys the response by the selection's alias when one
		// is present, not by the schema field name.
		key := field
		if len(sub.Operations) > 0 {
			for _, sel := range sub.Operations[0].SelectionSet {
				if f, ok := sel.(*language.Field); ok && f.Name == field && f.Alias != "" {
					key = f.Alias
					break
				}
			}
		}
		return data[key], nil
	}
}
