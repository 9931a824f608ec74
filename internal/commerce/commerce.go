// Package commerce holds the reference commerce schema the gateway
// curates. The dispatcher prunes and extends it into the local schema;
// the cart action derives its own subset from the same source.
package commerce

import (
	_ "embed"

	"github.com/storegraph/storegraph/internal/schema"
)

//go:embed schema.graphql
var SDL string

// NewBuilder returns a fresh builder over the reference schema. Every
// call works on an independent copy, so builds never contaminate each
// other.
func NewBuilder() (*schema.Builder, error) {
	b, err := schema.NewBuilderFromSDL("commerce", SDL)
	if err != nil {
		return nil, err
	}
	return b, nil
}
