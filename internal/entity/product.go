package entity

import "context"

// Product is the product entity. Unlike the other entities its payload
// is known at construction time, so the lazy path only performs the
// conversion; no backend fetch happens.
type Product struct {
	payload map[string]any
	session *Session
	lazy    lazyData
}

// NewProduct creates a product entity over an already fetched payload.
func NewProduct(payload map[string]any, session *Session) *Product {
	return &Product{payload: payload, session: session}
}

// TypeName implements Entity. Every product resolves as a simple
// product; the backend has no configurable or bundle concepts.
func (p *Product) TypeName() string { return "SimpleProduct" }

func (p *Product) load(ctx context.Context) map[string]any {
	return p.payload
}

// convertProduct maps a backend product payload into the API shape.
// The backend has a single price and no discount concept, so the price
// range duplicates it into minimum/maximum regular and final prices
// with a zero discount.
func convertProduct(data map[string]any) map[string]any {
	price := asPayload(data["price"])
	money := map[string]any{
		"currency": price["currency"],
		"value":    price["amount"],
	}
	priceBound := map[string]any{
		"final_price":   money,
		"regular_price": money,
		"discount": map[string]any{
			"amount_off":  0,
			"percent_off": 0,
		},
	}
	image := map[string]any{
		"url":   data["image_url"],
		"label": data["title"],
	}
	return map[string]any{
		"uid":     data["sku"],
		"sku":     data["sku"],
		"url_key": data["sku"],
		"name":    data["title"],
		"description": map[string]any{
			"html": data["description"],
		},
		"price_range": map[string]any{
			"maximum_price": priceBound,
			"minimum_price": priceBound,
		},
		"small_image": image,
		"image":       image,
		"thumbnail":   image,
		"media_gallery": []any{
			map[string]any{
				"__typename": "ProductImage",
				"url":        data["image_url"],
				"disabled":   false,
				"position":   0,
			},
		},
	}
}

// ResolveField implements Entity.
func (p *Product) ResolveField(ctx context.Context, name string, args map[string]any) (any, error) {
	if name == "categories" {
		// The category ids sit on the construction payload, so this
		// traversal fetches nothing by itself.
		ids := anySlice(p.payload["categoryIds"])
		categories := make([]any, len(ids))
		for i, id := range ids {
			categories[i] = NewCategoryTree(id, p.session)
		}
		return categories, nil
	}

	_, converted, err := p.lazy.resolve(ctx, p.load, convertProduct)
	if err != nil {
		return nil, err
	}
	return converted[name], nil
}
