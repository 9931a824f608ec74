package schema

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRoundTrip(t *testing.T) {
	sdl := `
		schema { query: Query }

		"A root"
		type Query {
			products(pageSize: Int = 20, currentPage: Int = 1): [Product]
			search(term: String!): [Sellable]
			mode: Mode
		}

		interface Sellable { sku: String }

		type Product implements Sellable {
			"Stock keeping unit"
			sku: String
			name: String
		}

		enum Mode { LIVE PREVIEW }

		input Page { size: Int after: String }
	`
	sch, err := FromSDL("shop", sdl)
	require.NoError(t, err)

	rendered := Render(sch)
	back, err := FromSDL("shop", rendered)
	require.NoError(t, err)

	assert.Equal(t, namesOf(sch), namesOf(back))
	assert.Equal(t, sch.QueryType, back.QueryType)

	product := back.Types["Product"]
	require.NotNil(t, product)
	assert.Equal(t, "Stock keeping unit", product.FieldByName("sku").Description)
	assert.Equal(t, []string{"Sellable"}, product.Interfaces)

	field := back.GetQueryType().FieldByName("products")
	require.NotNil(t, field)
	require.Len(t, field.Arguments, 2)
	assert.Equal(t, 20, asRoundTripInt(field.Arguments[0].DefaultValue))

	// Rendering is deterministic.
	assert.Equal(t, rendered, Render(back))
}

func TestRenderSkipsBuiltins(t *testing.T) {
	sch, err := FromSDL("shop", `schema { query: Query } type Query { ok: Boolean }`)
	require.NoError(t, err)

	rendered := Render(sch)
	assert.NotContains(t, rendered, "scalar String")
	assert.NotContains(t, rendered, "scalar Boolean")
	assert.True(t, strings.Contains(rendered, "type Query"))
}

func namesOf(s *Schema) []string {
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func asRoundTripInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return -1
}
