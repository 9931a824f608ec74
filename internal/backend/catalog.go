package backend

import (
	"context"
	"fmt"
	"strings"

	log "github.com/jensneuse/abstractlogger"
	"github.com/tidwall/gjson"

	"github.com/storegraph/storegraph/internal/statestore"
)

// State store keys written by the import pipeline.
const (
	ProductKeyPrefix = "p-"
	IndexSearchKey   = "indexSearch"
	IndexUrlKeyKey   = "indexUrlKey"
	IndexCategoryKey = "indexCategory"
)

// Catalog answers product searches from records the import pipeline put
// into the state store.
type Catalog struct {
	store statestore.Store
	log   log.Logger
}

// NewCatalog creates a Catalog over the given store.
func NewCatalog(store statestore.Store, logger log.Logger) *Catalog {
	return &Catalog{store: store, log: logger}
}

// Search runs one product search. params follows the shape of the
// GraphQL "products" field arguments: "search" does a substring match
// on product names, "filter" supports sku, url_key and category_uid
// with eq/in operators, and "categoryId" scopes the search to one
// category. The result shape is {total, offset, limit, products}.
func (c *Catalog) Search(ctx context.Context, params map[string]any) (map[string]any, error) {
	pageSize := intParam(params, "pageSize", 20)
	currentPage := intParam(params, "currentPage", 1)

	var keys []string
	var err error
	switch {
	case stringParam(params, "search") != "":
		keys, err = c.searchByName(stringParam(params, "search"))
	case params["categoryId"] != nil:
		keys, err = c.lookupIndex(IndexCategoryKey, "category_uid", []string{fmt.Sprint(params["categoryId"])})
	case params["filter"] != nil:
		keys, err = c.filterKeys(params["filter"])
	default:
		keys = nil
	}
	if err != nil {
		return nil, err
	}

	products := make([]any, 0, len(keys))
	for _, key := range keys {
		raw, ok, err := c.store.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			c.log.Debug("catalog: indexed product record missing", log.String("key", key))
			continue
		}
		products = append(products, mapProductRecord(raw))
	}

	return map[string]any{
		"total":    len(products),
		"offset":   currentPage * pageSize,
		"limit":    pageSize,
		"products": products,
	}, nil
}

// searchByName scans the search index for names containing term.
func (c *Catalog) searchByName(term string) ([]string, error) {
	raw, ok, err := c.store.Get(IndexSearchKey)
	if err != nil || !ok {
		return nil, err
	}
	var keys []string
	gjson.ParseBytes(raw).ForEach(func(_, entry gjson.Result) bool {
		if strings.Contains(entry.Get("name").String(), term) {
			keys = append(keys, entry.Get("sku").String())
		}
		return true
	})
	return keys, nil
}

// filterKeys resolves a products filter into product record keys.
func (c *Catalog) filterKeys(filter any) ([]string, error) {
	f, ok := filter.(map[string]any)
	if !ok {
		return nil, nil
	}
	if values := filterValues(f["sku"]); values != nil {
		keys := make([]string, len(values))
		for i, sku := range values {
			keys[i] = ProductKeyPrefix + sku
		}
		return keys, nil
	}
	if values := filterValues(f["url_key"]); values != nil {
		return c.lookupIndex(IndexUrlKeyKey, "url_key", values)
	}
	if values := filterValues(f["category_uid"]); values != nil {
		return c.lookupIndex(IndexCategoryKey, "category_uid", values)
	}
	return nil, nil
}

// lookupIndex returns the record keys of index entries whose field
// matches one of values.
func (c *Catalog) lookupIndex(indexKey, field string, values []string) ([]string, error) {
	raw, ok, err := c.store.Get(indexKey)
	if err != nil || !ok {
		return nil, err
	}
	var keys []string
	gjson.ParseBytes(raw).ForEach(func(_, entry gjson.Result) bool {
		for _, v := range values {
			if entry.Get(field).String() == v {
				keys = append(keys, entry.Get("sku").String())
				break
			}
		}
		return true
	})
	return keys, nil
}

// filterValues flattens an eq/in filter operator into its value list.
func filterValues(op any) []string {
	m, ok := op.(map[string]any)
	if !ok {
		return nil
	}
	if eq, ok := m["eq"].(string); ok {
		return []string{eq}
	}
	if in, ok := m["in"].([]any); ok {
		values := make([]string, 0, len(in))
		for _, v := range in {
			values = append(values, fmt.Sprint(v))
		}
		return values
	}
	return nil
}

// mapProductRecord converts a stored import row into the backend
// product payload shape.
func mapProductRecord(raw []byte) map[string]any {
	rec := gjson.ParseBytes(raw)
	return map[string]any{
		"sku":               rec.Get("sku").String(),
		"title":             rec.Get("name").String(),
		"description":       rec.Get("description").String(),
		"short_description": rec.Get("short_description").String(),
		"price": map[string]any{
			"currency": "USD",
			"amount":   rec.Get("price").Float(),
		},
		"image_url":   rec.Get("image_url").String(),
		"categoryIds": []any{rec.Get("category_uid").String()},
	}
}

func intParam(params map[string]any, name string, fallback int) int {
	switch v := params[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func stringParam(params map[string]any, name string) string {
	if s, ok := params[name].(string); ok {
		return s
	}
	return ""
}
