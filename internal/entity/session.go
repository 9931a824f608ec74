package entity

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/jensneuse/abstractlogger"

	"github.com/storegraph/storegraph/internal/loader"
)

// Backend is the commerce backend surface the session fetches from.
// backend.Simulator satisfies it.
type Backend interface {
	CategoryByID(ctx context.Context, id int) (map[string]any, error)
	ProductBySku(ctx context.Context, sku string) (map[string]any, error)
	CartByID(ctx context.Context, id string) (map[string]any, error)
}

// Searcher runs product searches. backend.Catalog satisfies it.
type Searcher interface {
	Search(ctx context.Context, params map[string]any) (map[string]any, error)
}

// Session holds the loaders shared by every entity constructed during
// one request, so equal keys requested anywhere in the resolution tree
// dedupe into a single backend fetch. Sessions are request-scoped and
// never reused.
type Session struct {
	Categories *loader.Loader
	Searches   *loader.Loader
	Products   *loader.Loader
	Carts      *loader.Loader

	// Context carries request-scoped values (e.g. an auth token) through
	// to delegated remote resolution.
	Context map[string]any

	log log.Logger
}

// NewSession wires fresh loaders onto the backend services. The batch
// functions fetch one key at a time; a bulk-capable backend could fill
// a whole batch in one call as long as results stay positional.
func NewSession(sim Backend, catalog Searcher, logger log.Logger) *Session {
	s := &Session{log: logger}

	s.Categories = loader.New("category", func(ctx context.Context, keys []any) ([]any, error) {
		out := make([]any, len(keys))
		for i, key := range keys {
			id, err := categoryID(key)
			if err != nil {
				logger.Error("session: bad category id", log.Error(err))
				continue
			}
			data, err := sim.CategoryByID(ctx, id)
			if err != nil {
				logger.Error("session: category fetch failed",
					log.Int("id", id), log.Error(err))
				continue
			}
			out[i] = data
		}
		return out, nil
	}, logger)

	s.Searches = loader.New("products", func(ctx context.Context, keys []any) ([]any, error) {
		out := make([]any, len(keys))
		for i, key := range keys {
			params, ok := key.(map[string]any)
			if !ok {
				logger.Error("session: search key is not a parameter map")
				continue
			}
			data, err := catalog.Search(ctx, params)
			if err != nil {
				logger.Error("session: product search failed", log.Error(err))
				continue
			}
			out[i] = data
		}
		return out, nil
	}, logger)

	s.Products = loader.New("product", func(ctx context.Context, keys []any) ([]any, error) {
		out := make([]any, len(keys))
		for i, key := range keys {
			sku := fmt.Sprint(key)
			data, err := sim.ProductBySku(ctx, sku)
			if err != nil {
				logger.Error("session: product fetch failed",
					log.String("sku", sku), log.Error(err))
				continue
			}
			out[i] = data
		}
		return out, nil
	}, logger)

	s.Carts = loader.New("cart", func(ctx context.Context, keys []any) ([]any, error) {
		out := make([]any, len(keys))
		for i, key := range keys {
			id := fmt.Sprint(key)
			data, err := sim.CartByID(ctx, id)
			if err != nil {
				logger.Error("session: cart fetch failed",
					log.String("id", id), log.Error(err))
				continue
			}
			out[i] = data
		}
		return out, nil
	}, logger)

	return s
}

func categoryID(key any) (int, error) {
	switch v := key.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	}
	return 0, fmt.Errorf("unsupported category id type %T", key)
}
