package schema

import (
	"fmt"
	"sort"

	language "github.com/storegraph/storegraph/internal/language"
)

// Builder reduces and extends an introspected schema document and
// materializes it into an executable schema. All mutations apply to a
// private deep copy; the source document stays reusable across builds.
//
// Referencing a type or field that does not exist is a programmer error:
// schema composition happens at cold start, so the first failing
// operation makes the builder sticky-fail and Build returns that error.
type Builder struct {
	doc *Document
	err error
}

// NewBuilder copies the given introspection document into a fresh builder.
func NewBuilder(doc *Document) *Builder {
	return &Builder{doc: doc.Clone()}
}

// NewBuilderFromSDL parses SDL into an introspection document and wraps
// it in a builder. Convenient for schemas embedded as SDL rather than as
// introspection JSON.
func NewBuilderFromSDL(name, sdl string) (*Builder, error) {
	s, err := FromSDL(name, sdl)
	if err != nil {
		return nil, err
	}
	return &Builder{doc: DocumentFromSchema(s)}, nil
}

// Err returns the first composition error, if any.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(format string, args ...any) *Builder {
	if b.err == nil {
		b.err = fmt.Errorf(format, args...)
	}
	return b
}

// RemoveQueryType drops the Query root type and its fields wholesale.
func (b *Builder) RemoveQueryType() *Builder {
	if b.err != nil {
		return b
	}
	b.removeRootType(&b.doc.QueryType)
	return b
}

// RemoveMutationType drops the Mutation root type and its fields wholesale.
func (b *Builder) RemoveMutationType() *Builder {
	if b.err != nil {
		return b
	}
	b.removeRootType(&b.doc.MutationType)
	return b
}

func (b *Builder) removeRootType(ref **RootTypeRef) {
	if *ref == nil {
		return
	}
	name := (*ref).Name
	kept := b.doc.Types[:0]
	for _, t := range b.doc.Types {
		if t.Name != name {
			kept = append(kept, t)
		}
	}
	b.doc.Types = kept
	*ref = nil
}

// FilterQueryFields prunes the Query root type to exactly the named fields.
func (b *Builder) FilterQueryFields(keep map[string]bool) *Builder {
	return b.filterRootFields(b.doc.QueryType, "Query", keep)
}

// FilterMutationFields prunes the Mutation root type to exactly the named fields.
func (b *Builder) FilterMutationFields(keep map[string]bool) *Builder {
	return b.filterRootFields(b.doc.MutationType, "Mutation", keep)
}

func (b *Builder) filterRootFields(ref *RootTypeRef, kind string, keep map[string]bool) *Builder {
	if b.err != nil {
		return b
	}
	if ref == nil {
		return b.fail("schema has no %s root type to filter", kind)
	}
	t := b.doc.TypeByName(ref.Name)
	if t == nil {
		return b.fail("schema references missing %s root type %q", kind, ref.Name)
	}
	kept := t.Fields[:0]
	for _, f := range t.Fields {
		if keep[f.Name] {
			kept = append(kept, f)
		}
	}
	t.Fields = kept
	return b
}

// AddFieldToType appends a synthesized field to the named type and
// re-sorts the field list alphabetically. When the target is an
// interface, an independent copy of the field descriptor is also added
// to every type currently recorded as implementing it.
func (b *Builder) AddFieldToType(typeName, fieldName, description, fieldTypeName string, isList bool) *Builder {
	if b.err != nil {
		return b
	}
	target := b.doc.TypeByName(typeName)
	if target == nil {
		return b.fail("cannot add field %q: unknown type %q", fieldName, typeName)
	}
	if fieldTypeName != "" && !IsBuiltinScalar(fieldTypeName) && b.doc.TypeByName(fieldTypeName) == nil {
		return b.fail("cannot add field %q to %q: unknown field type %q", fieldName, typeName, fieldTypeName)
	}

	appendField(target, b.synthesizeField(fieldName, description, fieldTypeName, isList))
	if target.Kind == TypeKindInterface {
		for _, t := range b.doc.Types {
			if t.Kind != TypeKindObject && t.Kind != TypeKindInterface {
				continue
			}
			if !implementsInterface(t, typeName) {
				continue
			}
			// Independent copy: later edits to the interface's field must
			// not leak into implementors, and vice versa.
			appendField(t, b.synthesizeField(fieldName, description, fieldTypeName, isList))
		}
	}
	return b
}

func (b *Builder) synthesizeField(name, description, typeName string, isList bool) *FieldDescriptor {
	ref := b.namedDescriptorRef(typeName)
	if isList {
		ref = &TypeRefDescriptor{Kind: TypeRefKindList, OfType: ref}
	}
	return &FieldDescriptor{
		Name:        name,
		Description: description,
		Args:        []*InputValueDescriptor{},
		Type:        ref,
	}
}

func (b *Builder) namedDescriptorRef(typeName string) *TypeRefDescriptor {
	n := typeName
	kind := TypeRefKind(TypeKindScalar)
	if !IsBuiltinScalar(typeName) {
		if t := b.doc.TypeByName(typeName); t != nil {
			kind = TypeRefKind(t.Kind)
		}
	}
	return &TypeRefDescriptor{Kind: kind, Name: &n}
}

func appendField(t *TypeDescriptor, f *FieldDescriptor) {
	t.Fields = append(t.Fields, f)
	sort.Slice(t.Fields, func(i, j int) bool { return t.Fields[i].Name < t.Fields[j].Name })
}

func implementsInterface(t *TypeDescriptor, ifaceName string) bool {
	for _, ref := range t.Interfaces {
		if ref.Name != nil && *ref.Name == ifaceName {
			return true
		}
	}
	return false
}

// Extend applies an SDL extension document against the schema view and
// re-derives the introspection document, so SDL extension and direct
// document mutation converge on the same JSON shape.
func (b *Builder) Extend(sdl string) *Builder {
	if b.err != nil {
		return b
	}
	ext, err := language.ParseSchema("extension", sdl)
	if err != nil {
		return b.fail("parse schema extension: %v", err)
	}
	s, err := b.doc.Schema()
	if err != nil {
		return b.fail("extend schema: %v", err)
	}
	for _, def := range ext.Definitions {
		if _, exists := s.Types[def.Name]; exists {
			return b.fail("schema extension redefines type %q", def.Name)
		}
		t, err := convertDefinition(def)
		if err != nil {
			return b.fail("schema extension: %v", err)
		}
		s.Types[t.Name] = t
	}
	for _, extDef := range ext.Extensions {
		base := s.Types[extDef.Name]
		if base == nil {
			return b.fail("schema extension targets unknown type %q", extDef.Name)
		}
		if err := extendType(base, extDef); err != nil {
			return b.fail("schema extension: %v", err)
		}
	}
	recordPossibleTypes(s)
	b.doc = DocumentFromSchema(s)
	return b
}

// Build materializes the executable schema, tagged with sortOrder for
// merge conflict resolution (0 means the default 1000, lowest priority).
// A root type whose field list was filtered empty is dropped from the
// schema metadata entirely: GraphQL forbids root operation types with no
// fields.
func (b *Builder) Build(sortOrder int) (*Schema, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.dropEmptyRootType(&b.doc.QueryType)
	b.dropEmptyRootType(&b.doc.MutationType)

	s, err := b.doc.Schema()
	if err != nil {
		return nil, err
	}
	if sortOrder == 0 {
		sortOrder = 1000
	}
	s.SortOrder = sortOrder
	return s, nil
}

func (b *Builder) dropEmptyRootType(ref **RootTypeRef) {
	if *ref == nil {
		return
	}
	t := b.doc.TypeByName((*ref).Name)
	if t != nil && len(t.Fields) > 0 {
		return
	}
	b.removeRootType(ref)
}
