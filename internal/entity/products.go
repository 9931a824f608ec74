package entity

import "context"

// Products is the lazily resolved search-result entity. Its identity is
// the whole search-parameter map, which the shared search loader
// serializes into a stable cache key.
type Products struct {
	search  map[string]any
	session *Session
	lazy    lazyData
}

// NewProducts creates a search-result entity without running the search.
func NewProducts(search map[string]any, session *Session) *Products {
	return &Products{search: search, session: session}
}

// TypeName implements Entity.
func (p *Products) TypeName() string { return "Products" }

func (p *Products) load(ctx context.Context) map[string]any {
	return asPayload(p.session.Searches.Load(ctx, p.search))
}

func convertProducts(data map[string]any) map[string]any {
	limit := asInt(data["limit"])
	currentPage := 0
	if limit > 0 {
		currentPage = asInt(data["offset"]) / limit
	}
	return map[string]any{
		"total_count": data["total"],
		"page_info": map[string]any{
			"current_page": currentPage,
			"page_size":    data["limit"],
		},
	}
}

// ResolveField implements Entity.
func (p *Products) ResolveField(ctx context.Context, name string, args map[string]any) (any, error) {
	if name == "items" {
		raw, _, err := p.lazy.resolve(ctx, p.load, convertProducts)
		if err != nil {
			return nil, err
		}
		rows := anySlice(raw["products"])
		items := make([]any, len(rows))
		for i, row := range rows {
			items[i] = NewProduct(asPayload(row), p.session)
		}
		return items, nil
	}

	_, converted, err := p.lazy.resolve(ctx, p.load, convertProducts)
	if err != nil {
		return nil, err
	}
	return converted[name], nil
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
