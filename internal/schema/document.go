package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Document is the JSON shape of a standard introspection response
// (the value of data.__schema). It is the working form the Builder
// mutates, and the wire form remote schemas arrive in.
type Document struct {
	Description      string                 `json:"description,omitempty"`
	QueryType        *RootTypeRef           `json:"queryType,omitempty"`
	MutationType     *RootTypeRef           `json:"mutationType,omitempty"`
	SubscriptionType *RootTypeRef           `json:"subscriptionType,omitempty"`
	Types            []*TypeDescriptor      `json:"types"`
	Directives       []*DirectiveDescriptor `json:"directives,omitempty"`
}

type RootTypeRef struct {
	Name string `json:"name"`
}

type TypeDescriptor struct {
	Kind           TypeKind                `json:"kind"`
	Name           string                  `json:"name"`
	Description    string                  `json:"description,omitempty"`
	Fields         []*FieldDescriptor      `json:"fields,omitempty"`
	InputFields    []*InputValueDescriptor `json:"inputFields,omitempty"`
	Interfaces     []*TypeRefDescriptor    `json:"interfaces,omitempty"`
	EnumValues     []*EnumValueDescriptor  `json:"enumValues,omitempty"`
	PossibleTypes  []*TypeRefDescriptor    `json:"possibleTypes,omitempty"`
	SpecifiedByURL *string                 `json:"specifiedByURL,omitempty"`
}

type FieldDescriptor struct {
	Name              string                  `json:"name"`
	Description       string                  `json:"description,omitempty"`
	Args              []*InputValueDescriptor `json:"args"`
	Type              *TypeRefDescriptor      `json:"type"`
	IsDeprecated      bool                    `json:"isDeprecated"`
	DeprecationReason *string                 `json:"deprecationReason,omitempty"`
}

type InputValueDescriptor struct {
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	Type         *TypeRefDescriptor `json:"type"`
	DefaultValue *string            `json:"defaultValue,omitempty"`
}

type EnumValueDescriptor struct {
	Name              string  `json:"name"`
	Description       string  `json:"description,omitempty"`
	IsDeprecated      bool    `json:"isDeprecated"`
	DeprecationReason *string `json:"deprecationReason,omitempty"`
}

type TypeRefDescriptor struct {
	Kind   TypeRefKind        `json:"kind"`
	Name   *string            `json:"name,omitempty"`
	OfType *TypeRefDescriptor `json:"ofType,omitempty"`
}

type DirectiveDescriptor struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Locations   []string                `json:"locations"`
	Args        []*InputValueDescriptor `json:"args"`
}

// introspection responses arrive either bare, as {"__schema": ...} or as
// the full {"data": {"__schema": ...}} envelope.
type schemaEnvelope struct {
	Schema *Document `json:"__schema"`
}

type dataEnvelope struct {
	Data *schemaEnvelope `json:"data"`
}

// ParseDocument decodes an introspection document from JSON, accepting
// the data/__schema envelopes produced by GraphQL endpoints.
func ParseDocument(data []byte) (*Document, error) {
	var de dataEnvelope
	if err := json.Unmarshal(data, &de); err == nil && de.Data != nil && de.Data.Schema != nil {
		return de.Data.Schema, nil
	}
	var se schemaEnvelope
	if err := json.Unmarshal(data, &se); err == nil && se.Schema != nil {
		return se.Schema, nil
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse introspection document: %w", err)
	}
	if d.Types == nil {
		return nil, fmt.Errorf("parse introspection document: no types")
	}
	return &d, nil
}

// Clone deep-copies the document through a JSON round trip, mirroring the
// shared-source protection the builder needs: the caller's document stays
// reusable across builds.
func (d *Document) Clone() *Document {
	raw, err := json.Marshal(d)
	if err != nil {
		panic(fmt.Sprintf("clone introspection document: %v", err))
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("clone introspection document: %v", err))
	}
	return &out
}

// TypeByName returns the descriptor for the named type, or nil.
func (d *Document) TypeByName(name string) *TypeDescriptor {
	for _, t := range d.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// DocumentFromSchema serializes an executable schema into its
// introspection-document form.
func DocumentFromSchema(s *Schema) *Document {
	d := &Document{Description: s.Description}
	if s.QueryType != "" && s.Types[s.QueryType] != nil {
		d.QueryType = &RootTypeRef{Name: s.QueryType}
	}
	if s.MutationType != "" && s.Types[s.MutationType] != nil {
		d.MutationType = &RootTypeRef{Name: s.MutationType}
	}
	if s.SubscriptionType != "" && s.Types[s.SubscriptionType] != nil {
		d.SubscriptionType = &RootTypeRef{Name: s.SubscriptionType}
	}
	for _, name := range sortedTypeNames(s) {
		d.Types = append(d.Types, describeType(s, s.Types[name]))
	}
	for _, name := range sortedDirectiveNames(s) {
		dir := s.Directives[name]
		dd := &DirectiveDescriptor{
			Name:        dir.Name,
			Description: dir.Description,
			Locations:   append([]string(nil), dir.Locations...),
			Args:        describeInputValues(s, dir.Arguments),
		}
		d.Directives = append(d.Directives, dd)
	}
	return d
}

func describeType(s *Schema, t *Type) *TypeDescriptor {
	td := &TypeDescriptor{
		Kind:           t.Kind,
		Name:           t.Name,
		Description:    t.Description,
		SpecifiedByURL: t.SpecifiedByURL,
	}
	switch t.Kind {
	case TypeKindObject, TypeKindInterface:
		td.Fields = []*FieldDescriptor{}
		for _, f := range t.Fields {
			td.Fields = append(td.Fields, describeField(s, f))
		}
		for _, iface := range t.Interfaces {
			td.Interfaces = append(td.Interfaces, namedRefDescriptor(s, iface))
		}
		for _, pt := range t.PossibleTypes {
			td.PossibleTypes = append(td.PossibleTypes, namedRefDescriptor(s, pt))
		}
	case TypeKindUnion:
		for _, pt := range t.PossibleTypes {
			td.PossibleTypes = append(td.PossibleTypes, namedRefDescriptor(s, pt))
		}
	case TypeKindEnum:
		for _, ev := range t.EnumValues {
			evd := &EnumValueDescriptor{Name: ev.Name, Description: ev.Description, IsDeprecated: ev.IsDeprecated}
			if ev.IsDeprecated {
				reason := ev.DeprecationReason
				evd.DeprecationReason = &reason
			}
			td.EnumValues = append(td.EnumValues, evd)
		}
	case TypeKindInputObject:
		td.InputFields = describeInputValues(s, t.InputFields)
	}
	return td
}

func describeField(s *Schema, f *Field) *FieldDescriptor {
	fd := &FieldDescriptor{
		Name:         f.Name,
		Description:  f.Description,
		Args:         describeInputValues(s, f.Arguments),
		Type:         describeTypeRef(s, f.Type),
		IsDeprecated: f.IsDeprecated,
	}
	if f.IsDeprecated {
		reason := f.DeprecationReason
		fd.DeprecationReason = &reason
	}
	return fd
}

func describeInputValues(s *Schema, values []*InputValue) []*InputValueDescriptor {
	out := []*InputValueDescriptor{}
	for _, v := range values {
		ivd := &InputValueDescriptor{
			Name:        v.Name,
			Description: v.Description,
			Type:        describeTypeRef(s, v.Type),
		}
		if v.DefaultValue != nil {
			dv := renderDefaultValue(v.DefaultValue)
			ivd.DefaultValue = &dv
		}
		out = append(out, ivd)
	}
	return out
}

func renderDefaultValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

func describeTypeRef(s *Schema, t *TypeRef) *TypeRefDescriptor {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case TypeRefKindNonNull, TypeRefKindList:
		return &TypeRefDescriptor{Kind: t.Kind, OfType: describeTypeRef(s, t.OfType)}
	default:
		return namedRefDescriptor(s, t.Named)
	}
}

// namedRefDescriptor emits the concrete kind of the referenced type when
// it is known; LIST/NON_NULL wrappers keep their wrapper kinds.
func namedRefDescriptor(s *Schema, name string) *TypeRefDescriptor {
	n := name
	kind := TypeRefKind(TypeKindObject)
	if t := s.Types[name]; t != nil {
		kind = TypeRefKind(t.Kind)
	}
	return &TypeRefDescriptor{Kind: kind, Name: &n}
}

// Schema converts the document into an executable schema. Object and
// interface fields are marked async (see FromSDL).
func (d *Document) Schema() (*Schema, error) {
	s := &Schema{
		Description: d.Description,
		Types:       map[string]*Type{},
		Directives:  map[string]*Directive{},
		SortOrder:   1000,
	}
	addBuiltins(s)
	if d.QueryType != nil {
		s.QueryType = d.QueryType.Name
	}
	if d.MutationType != nil {
		s.MutationType = d.MutationType.Name
	}
	if d.SubscriptionType != nil {
		s.SubscriptionType = d.SubscriptionType.Name
	}
	for _, td := range d.Types {
		t, err := td.unmarshalType()
		if err != nil {
			return nil, err
		}
		s.Types[t.Name] = t
	}
	for _, dd := range d.Directives {
		s.Directives[dd.Name] = &Directive{
			Name:        dd.Name,
			Description: dd.Description,
			Locations:   append([]string(nil), dd.Locations...),
			Arguments:   unmarshalInputValues(dd.Args),
		}
	}
	if s.QueryType != "" && s.Types[s.QueryType] == nil {
		return nil, fmt.Errorf("introspection document references unknown query type %q", s.QueryType)
	}
	return s, nil
}

func (td *TypeDescriptor) unmarshalType() (*Type, error) {
	t := &Type{
		Name:           td.Name,
		Kind:           td.Kind,
		Description:    td.Description,
		SpecifiedByURL: td.SpecifiedByURL,
	}
	for _, fd := range td.Fields {
		f := &Field{
			Name:         fd.Name,
			Description:  fd.Description,
			Type:         fd.Type.unmarshalTypeRef(),
			Arguments:    unmarshalInputValues(fd.Args),
			Async:        true,
			IsDeprecated: fd.IsDeprecated,
		}
		if fd.DeprecationReason != nil {
			f.DeprecationReason = *fd.DeprecationReason
		}
		t.Fields = append(t.Fields, f)
	}
	t.InputFields = unmarshalInputValues(td.InputFields)
	for _, iv := range td.Interfaces {
		if iv.Name != nil {
			t.Interfaces = append(t.Interfaces, *iv.Name)
		}
	}
	for _, pt := range td.PossibleTypes {
		if pt.Name != nil {
			t.PossibleTypes = append(t.PossibleTypes, *pt.Name)
		}
	}
	for _, ev := range td.EnumValues {
		v := &EnumValue{Name: ev.Name, Description: ev.Description, IsDeprecated: ev.IsDeprecated}
		if ev.DeprecationReason != nil {
			v.DeprecationReason = *ev.DeprecationReason
		}
		t.EnumValues = append(t.EnumValues, v)
	}
	return t, nil
}

func unmarshalInputValues(descs []*InputValueDescriptor) []*InputValue {
	var out []*InputValue
	for _, d := range descs {
		iv := &InputValue{
			Name:        d.Name,
			Description: d.Description,
			Type:        d.Type.unmarshalTypeRef(),
		}
		if d.DefaultValue != nil {
			iv.DefaultValue = parseDefaultValue(*d.DefaultValue)
		}
		out = append(out, iv)
	}
	return out
}

// Introspection serializes default values as GraphQL literals. Only the
// scalar literals the commerce schemas use are decoded here.
func parseDefaultValue(raw string) any {
	if iv, err := strconv.Atoi(raw); err == nil {
		return iv
	}
	if fv, err := strconv.ParseFloat(raw, 64); err == nil {
		return fv
	}
	if raw == "true" || raw == "false" {
		return raw == "true"
	}
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return raw[1 : len(raw)-1]
	}
	return raw
}

func (trd *TypeRefDescriptor) unmarshalTypeRef() *TypeRef {
	if trd == nil {
		return nil
	}
	switch trd.Kind {
	case TypeRefKindNonNull:
		return NonNullType(trd.OfType.unmarshalTypeRef())
	case TypeRefKindList:
		return ListType(trd.OfType.unmarshalTypeRef())
	default:
		name := ""
		if trd.Name != nil {
			name = *trd.Name
		}
		return NamedType(name)
	}
}
