package schema

import (
	"fmt"
	"sort"
	"strconv"

	language "github.com/storegraph/storegraph/internal/language"
)

// FromSDL builds an executable schema from SDL text. All object and
// interface fields are marked async: in this gateway every field may end
// up at a backend fetch or a remote delegation, and the executor batches
// async fields per depth.
func FromSDL(name, source string) (*Schema, error) {
	doc, err := language.ParseSchema(name, source)
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}
	return fromDocument(doc)
}

func fromDocument(doc *language.SchemaDocument) (*Schema, error) {
	s := &Schema{
		Types:      map[string]*Type{},
		Directives: map[string]*Directive{},
		SortOrder:  1000,
	}
	addBuiltins(s)

	for _, def := range doc.Definitions {
		t, err := convertDefinition(def)
		if err != nil {
			return nil, err
		}
		s.Types[t.Name] = t
	}
	for _, ext := range doc.Extensions {
		base := s.Types[ext.Name]
		if base == nil {
			return nil, fmt.Errorf("cannot extend unknown type %q", ext.Name)
		}
		if err := extendType(base, ext); err != nil {
			return nil, err
		}
	}

	// Root operation types: explicit schema definition wins, otherwise the
	// conventional names apply when present.
	s.QueryType = "Query"
	s.MutationType = "Mutation"
	s.SubscriptionType = "Subscription"
	for _, sd := range doc.Schema {
		for _, op := range sd.OperationTypes {
			switch op.Operation {
			case language.Query:
				s.QueryType = op.Type
			case language.Mutation:
				s.MutationType = op.Type
			case language.Subscription:
				s.SubscriptionType = op.Type
			}
		}
	}
	if s.Types[s.MutationType] == nil {
		s.MutationType = ""
	}
	if s.Types[s.SubscriptionType] == nil {
		s.SubscriptionType = ""
	}

	recordPossibleTypes(s)
	return s, nil
}

func convertDefinition(def *language.Definition) (*Type, error) {
	t := &Type{Name: def.Name, Description: def.Description}
	switch def.Kind {
	case language.Object:
		t.Kind = TypeKindObject
	case language.Interface:
		t.Kind = TypeKindInterface
	case language.Union:
		t.Kind = TypeKindUnion
	case language.Scalar:
		t.Kind = TypeKindScalar
	case language.Enum:
		t.Kind = TypeKindEnum
	case language.InputObject:
		t.Kind = TypeKindInputObject
	default:
		return nil, fmt.Errorf("unsupported definition kind %s for type %q", def.Kind, def.Name)
	}

	t.Interfaces = append(t.Interfaces, def.Interfaces...)
	t.PossibleTypes = append(t.PossibleTypes, def.Types...)

	switch t.Kind {
	case TypeKindObject, TypeKindInterface:
		for _, fd := range def.Fields {
			t.Fields = append(t.Fields, convertFieldDefinition(fd))
		}
	case TypeKindInputObject:
		for _, fd := range def.Fields {
			t.InputFields = append(t.InputFields, convertInputValue(fd))
		}
	case TypeKindEnum:
		for _, ev := range def.EnumValues {
			t.EnumValues = append(t.EnumValues, &EnumValue{Name: ev.Name, Description: ev.Description})
		}
	}
	return t, nil
}

func extendType(base *Type, ext *language.Definition) error {
	for _, fd := range ext.Fields {
		if base.Kind == TypeKindInputObject {
			base.InputFields = append(base.InputFields, convertInputValue(fd))
			continue
		}
		if base.FieldByName(fd.Name) != nil {
			return fmt.Errorf("extension redeclares field %s.%s", base.Name, fd.Name)
		}
		base.Fields = append(base.Fields, convertFieldDefinition(fd))
	}
	base.Interfaces = append(base.Interfaces, ext.Interfaces...)
	base.PossibleTypes = append(base.PossibleTypes, ext.Types...)
	for _, ev := range ext.EnumValues {
		base.EnumValues = append(base.EnumValues, &EnumValue{Name: ev.Name, Description: ev.Description})
	}
	return nil
}

func convertFieldDefinition(fd *language.FieldDefinition) *Field {
	f := &Field{
		Name:        fd.Name,
		Description: fd.Description,
		Type:        convertTypeRef(fd.Type),
		Async:       true,
	}
	for _, arg := range fd.Arguments {
		f.Arguments = append(f.Arguments, &InputValue{
			Name:         arg.Name,
			Description:  arg.Description,
			Type:         convertTypeRef(arg.Type),
			DefaultValue: astValue(arg.DefaultValue),
		})
	}
	if d := fd.Directives.ForName("deprecated"); d != nil {
		f.IsDeprecated = true
		if a := d.Arguments.ForName("reason"); a != nil && a.Value != nil {
			f.DeprecationReason = a.Value.Raw
		}
	}
	return f
}

func convertInputValue(fd *language.FieldDefinition) *InputValue {
	return &InputValue{
		Name:         fd.Name,
		Description:  fd.Description,
		Type:         convertTypeRef(fd.Type),
		DefaultValue: astValue(fd.DefaultValue),
	}
}

func convertTypeRef(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return NonNullType(convertTypeRef(&language.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return NamedType(t.NamedType)
	}
	return ListType(convertTypeRef(t.Elem))
}

func astValue(v *language.Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case language.IntValue:
		iv, _ := strconv.Atoi(v.Raw)
		return iv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(v.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue, language.EnumValue:
		return v.Raw
	case language.BooleanValue:
		return v.Raw == "true"
	case language.ListValue:
		out := make([]any, len(v.Children))
		for i, c := range v.Children {
			out[i] = astValue(c.Value)
		}
		return out
	case language.ObjectValue:
		m := map[string]any{}
		for _, c := range v.Children {
			m[c.Name] = astValue(c.Value)
		}
		return m
	default:
		return nil
	}
}

// recordPossibleTypes re-derives interface possibleTypes from the object
// types that declare the interface. Union possibleTypes come from the
// union definition itself.
func recordPossibleTypes(s *Schema) {
	byInterface := map[string][]string{}
	for _, t := range s.Types {
		if t.Kind != TypeKindObject {
			continue
		}
		for _, iface := range t.Interfaces {
			byInterface[iface] = append(byInterface[iface], t.Name)
		}
	}
	for name, impls := range byInterface {
		iface := s.Types[name]
		if iface == nil || iface.Kind != TypeKindInterface {
			continue
		}
		sort.Strings(impls)
		iface.PossibleTypes = impls
	}
}
