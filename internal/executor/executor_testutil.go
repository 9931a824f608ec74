package executor

import (
	"testing"

	language "github.com/storegraph/storegraph/internal/language"
	schema "github.com/storegraph/storegraph/internal/schema"
)

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

func newSchemaWithQueryType(query *schema.Type, additional ...*schema.Type) *schema.Schema {
	sch := &schema.Schema{
		Types:      make(map[string]*schema.Type),
		Directives: make(map[string]*schema.Directive),
	}
	if query != nil {
		sch.QueryType = query.Name
		sch.Types[query.Name] = query
	}
	for _, t := range additional {
		sch.Types[t.Name] = t
	}
	return sch
}

func newObjectType(name string, fields ...*schema.Field) *schema.Type {
	return &schema.Type{Name: name, Kind: schema.TypeKindObject, Fields: fields}
}

func newScalarType(name string) *schema.Type {
	return &schema.Type{Name: name, Kind: schema.TypeKindScalar}
}

func fieldList(fields ...*schema.Field) []*schema.Field {
	return fields
}
