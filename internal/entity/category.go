package entity

import (
	"context"
	"strconv"
)

// CategoryTree is the lazily resolved category entity. Its identity is
// the category id; the payload is fetched through the shared category
// loader on first plain-field access.
type CategoryTree struct {
	categoryID any
	session    *Session
	lazy       lazyData
}

// NewCategoryTree creates a category entity for id without fetching it.
func NewCategoryTree(id any, session *Session) *CategoryTree {
	return &CategoryTree{categoryID: id, session: session}
}

// TypeName implements Entity.
func (c *CategoryTree) TypeName() string { return "CategoryTree" }

func (c *CategoryTree) load(ctx context.Context) map[string]any {
	return asPayload(c.session.Categories.Load(ctx, c.categoryID))
}

// convertCategory maps a backend category payload into the API shape.
// Fields that need extra fetching are handled in ResolveField instead.
func convertCategory(data map[string]any) map[string]any {
	return map[string]any{
		"uid":           data["uid"],
		"url_key":       data["uid"],
		"url_path":      data["slug"],
		"name":          data["title"],
		"description":   data["description"],
		"product_count": 2,
	}
}

// ResolveField implements Entity. Traversal fields construct further
// entities on the shared session; everything else comes from the lazily
// converted payload.
func (c *CategoryTree) ResolveField(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "children":
		raw, _, err := c.lazy.resolve(ctx, c.load, convertCategory)
		if err != nil {
			return nil, err
		}
		ids := anySlice(raw["subcategories"])
		children := make([]any, len(ids))
		for i, id := range ids {
			children[i] = NewCategoryTree(id, c.session)
		}
		return children, nil

	case "children_count":
		// A string numeral, the schema declares it as String.
		raw, _, err := c.lazy.resolve(ctx, c.load, convertCategory)
		if err != nil {
			return nil, err
		}
		return strconv.Itoa(len(anySlice(raw["subcategories"]))), nil

	case "products":
		// Listing a category's products does not need the category's own
		// payload, so no load happens here.
		search := map[string]any{"categoryId": c.categoryID}
		if v, ok := args["pageSize"]; ok {
			search["pageSize"] = v
		}
		if v, ok := args["currentPage"]; ok {
			search["currentPage"] = v
		}
		return NewProducts(search, c.session), nil
	}

	_, converted, err := c.lazy.resolve(ctx, c.load, convertCategory)
	if err != nil {
		return nil, err
	}
	return converted[name], nil
}

func asPayload(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func anySlice(v any) []any {
	s, _ := v.([]any)
	return s
}
