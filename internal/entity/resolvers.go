package entity

import "context"

// RootResolvers binds the locally implemented Query root fields onto a
// session. Remote root fields get their own delegating resolvers from
// the federation layer.
func RootResolvers(session *Session) map[string]RootResolver {
	return map[string]RootResolver{
		"products": func(ctx context.Context, args map[string]any) (any, error) {
			return NewProducts(args, session), nil
		},
		"category": func(ctx context.Context, args map[string]any) (any, error) {
			return NewCategoryTree(args["id"], session), nil
		},
		"categoryList": func(ctx context.Context, args map[string]any) (any, error) {
			var categoryID any = 1
			if filters, ok := args["filters"].(map[string]any); ok {
				if ids, ok := filters["ids"].(map[string]any); ok {
					categoryID = ids["eq"]
				} else if urlKey, ok := filters["url_key"].(map[string]any); ok {
					categoryID = urlKey["eq"]
				}
			}
			return []any{NewCategoryTree(categoryID, session)}, nil
		},
		"customAttributeMetadata": func(ctx context.Context, args map[string]any) (any, error) {
			// Not supported by this integration.
			return nil, nil
		},
	}
}
