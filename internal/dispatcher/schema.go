package dispatcher

import (
	"fmt"

	"github.com/storegraph/storegraph/internal/commerce"
	"github.com/storegraph/storegraph/internal/schema"
)

// LocalSortOrder makes the local schema win every type conflict against
// the configured remotes.
const LocalSortOrder = 10

const shoppinglistSDL = `
	extend type Query {
		"Fetches a shoppinglist by id"
		shoppinglist(id: String!): Shoppinglist
	}

	type Shoppinglist {
		"The shoppinglist id"
		id: String
		"The products in the shoppinglist"
		products: [ProductInterface]
	}
`

// LocalSchema prunes and extends the reference commerce schema into the
// subset this gateway implements: the Mutation root is dropped, the
// Query root keeps only the implemented fields, a Shoppinglist type is
// grafted on via SDL, and a few fields are added to ProductInterface
// and all its implementations.
func LocalSchema() (*schema.Schema, error) {
	b, err := commerce.NewBuilder()
	if err != nil {
		return nil, err
	}
	b.RemoveMutationType().
		FilterQueryFields(map[string]bool{
			"products":                true,
			"category":                true,
			"customAttributeMetadata": true,
			"categoryList":            true,
		}).
		Extend(shoppinglistSDL).
		AddFieldToType("ProductInterface", "rating",
			"The rating of the product", "String", false).
		AddFieldToType("ProductInterface", "accessories",
			"The accessories of the product", "ProductInterface", true).
		AddFieldToType("ProductInterface", "country_of_origin",
			"The code of the country where the product is manufactured", "CountryCodeEnum", false)

	sch, err := b.Build(LocalSortOrder)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: building local schema: %w", err)
	}
	return sch, nil
}
