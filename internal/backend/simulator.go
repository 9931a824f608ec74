// Package backend talks to the commerce systems behind the gateway. The
// Simulator stands in for a real third-party commerce API and answers
// with deterministic payloads; Catalog serves product search out of the
// state store populated by the import pipeline.
package backend

import (
	"context"
	"fmt"
	"strconv"
)

// Simulator fabricates backend payloads the way a third-party commerce
// system would return them, pre-conversion.
type Simulator struct {
	// BaseURL shows up in generated descriptions so responses reveal
	// which backend instance produced them.
	BaseURL string
}

// CategoryByID returns the raw payload for one category. Categories
// with an id shorter than three digits carry two subcategory ids so a
// deep tree can be walked.
func (s *Simulator) CategoryByID(ctx context.Context, id int) (map[string]any, error) {
	var subcategories []any
	if len(strconv.Itoa(id)) < 3 {
		subcategories = []any{id*10 + 1, id*10 + 2}
	} else {
		subcategories = []any{}
	}
	return map[string]any{
		"id":            id,
		"uid":           strconv.Itoa(id),
		"slug":          categorySlug(id),
		"title":         fmt.Sprintf("Category #%d", id),
		"description":   fmt.Sprintf("Fetched category #%d from %s", id, s.BaseURL),
		"subcategories": subcategories,
	}, nil
}

// categorySlug builds a dummy url_path from a category id.
// Example for id 221: "2/22/221".
func categorySlug(id int) string {
	digits := strconv.Itoa(id)
	if id < 10 {
		return digits
	}
	out := ""
	previous := 0
	for i, d := range digits {
		previous = previous*10 + int(d-'0')
		if i > 0 {
			out += "/"
		}
		out += strconv.Itoa(previous)
	}
	return out
}

// ProductBySku returns the raw payload for one product.
func (s *Simulator) ProductBySku(ctx context.Context, sku string) (map[string]any, error) {
	return map[string]any{
		"sku":         sku,
		"title":       fmt.Sprintf("Product #%s", sku),
		"description": fmt.Sprintf("Fetched product #%s from %s", sku, s.BaseURL),
		"price": map[string]any{
			"currency": "USD",
			"amount":   12.34,
		},
		"categoryIds": []any{"cat1", "cat2"},
	}, nil
}

// CartByID returns the raw payload for one cart. Every cart holds the
// same two entries, which is enough for the integration to show how
// cart items resolve into products.
func (s *Simulator) CartByID(ctx context.Context, id string) (map[string]any, error) {
	return map[string]any{
		"id":    id,
		"email": "dummy@example.com",
		"entries": []any{
			map[string]any{
				"quantity":   1,
				"sku":        "product-1",
				"unitPrice":  12.34,
				"entryPrice": 24.68,
			},
			map[string]any{
				"quantity":   2,
				"sku":        "product-2",
				"unitPrice":  56.78,
				"entryPrice": 113.56,
			},
		},
		"totalPrice": map[string]any{
			"currency": "USD",
			"amount":   138.24,
		},
	}, nil
}
