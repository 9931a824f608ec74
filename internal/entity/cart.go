package entity

import "context"

// Thunk defers resolution of a single field value until the executor
// asks for it. The entity runtime invokes thunks found in record maps.
type Thunk func(ctx context.Context) (any, error)

// Cart is the lazily resolved cart entity, identified by cart id.
type Cart struct {
	cartID  string
	session *Session
	lazy    lazyData
}

// NewCart creates a cart entity for id without fetching it.
func NewCart(id string, session *Session) *Cart {
	return &Cart{cartID: id, session: session}
}

// TypeName implements Entity.
func (c *Cart) TypeName() string { return "Cart" }

func (c *Cart) load(ctx context.Context) map[string]any {
	return asPayload(c.session.Carts.Load(ctx, c.cartID))
}

func convertCart(data map[string]any) map[string]any {
	total := asPayload(data["totalPrice"])
	return map[string]any{
		"email": data["email"],
		"prices": map[string]any{
			"grand_total": map[string]any{
				"currency": total["currency"],
				"value":    total["amount"],
			},
		},
	}
}

// ResolveField implements Entity. Cart items are inline records; each
// item's product is a thunk that fetches the product by sku through the
// shared product loader only when the query asks for it.
func (c *Cart) ResolveField(ctx context.Context, name string, args map[string]any) (any, error) {
	if name == "items" {
		raw, _, err := c.lazy.resolve(ctx, c.load, convertCart)
		if err != nil {
			return nil, err
		}
		entries := anySlice(raw["entries"])
		items := make([]any, len(entries))
		for i, e := range entries {
			entry := asPayload(e)
			sku := entry["sku"]
			items[i] = map[string]any{
				"__typename": "SimpleCartItem",
				"id":         i,
				"quantity":   entry["quantity"],
				"product": Thunk(func(ctx context.Context) (any, error) {
					data := asPayload(c.session.Products.Load(ctx, sku))
					if data == nil {
						return nil, ErrBackendDataNull
					}
					return NewProduct(data, c.session), nil
				}),
			}
		}
		return items, nil
	}

	_, converted, err := c.lazy.resolve(ctx, c.load, convertCart)
	if err != nil {
		return nil, err
	}
	return converted[name], nil
}
