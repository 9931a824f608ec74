package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Render produces SDL from the Schema.
// Deterministic ordering: type/directive names sorted lexicographically.
// The SDL form is what the federation layer persists to the state store,
// so equal schemas must render to equal text.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder

	renderSchemaDefinition(&b, s)

	for _, name := range sortedTypeNames(s) {
		typ := s.Types[name]
		switch typ.Kind {
		case TypeKindScalar:
			renderScalar(&b, typ)
		case TypeKindEnum:
			renderEnum(&b, typ)
		case TypeKindInputObject:
			renderInputObject(&b, typ)
		case TypeKindObject:
			renderObject(&b, typ)
		case TypeKindInterface:
			renderInterface(&b, typ)
		case TypeKindUnion:
			renderUnion(&b, typ)
		}
	}

	for _, name := range sortedDirectiveNames(s) {
		renderDirective(&b, s.Directives[name])
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func sortedTypeNames(s *Schema) []string {
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		if IsBuiltinScalar(name) || strings.HasPrefix(name, "__") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedDirectiveNames(s *Schema) []string {
	names := make([]string, 0, len(s.Directives))
	for name := range s.Directives {
		if name == "include" || name == "skip" || name == "deprecated" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// renderSchemaDefinition emits an explicit schema block when any root
// type deviates from the conventional names, or when a root is absent.
func renderSchemaDefinition(b *strings.Builder, s *Schema) {
	conventional := (s.QueryType == "Query" || s.QueryType == "") &&
		(s.MutationType == "Mutation" || s.MutationType == "") &&
		(s.SubscriptionType == "Subscription" || s.SubscriptionType == "")
	if conventional {
		return
	}
	b.WriteString("schema {\n")
	if s.QueryType != "" {
		fmt.Fprintf(b, "  query: %s\n", s.QueryType)
	}
	if s.MutationType != "" {
		fmt.Fprintf(b, "  mutation: %s\n", s.MutationType)
	}
	if s.SubscriptionType != "" {
		fmt.Fprintf(b, "  subscription: %s\n", s.SubscriptionType)
	}
	b.WriteString("}\n\n")
}

// ----- render helpers -----

func renderDescription(b *strings.Builder, desc string, indent string) {
	if desc == "" {
		return
	}
	b.WriteString(indent)
	b.WriteString("\"\"\"\n")
	escaped := strings.ReplaceAll(desc, "\"", "\\\"")
	b.WriteString(indent)
	b.WriteString(escaped)
	b.WriteString("\n")
	b.WriteString(indent)
	b.WriteString("\"\"\"\n")
}

func renderScalar(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString("scalar ")
	b.WriteString(typ.Name)
	if typ.SpecifiedByURL != nil {
		fmt.Fprintf(b, " @specifiedBy(url: %q)", *typ.SpecifiedByURL)
	}
	b.WriteString("\n\n")
}

func renderEnum(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	fmt.Fprintf(b, "enum %s {\n", typ.Name)
	for _, val := range typ.EnumValues {
		renderDescription(b, val.Description, "  ")
		b.WriteString("  ")
		b.WriteString(val.Name)
		renderDeprecated(b, val.IsDeprecated, val.DeprecationReason)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderInputObject(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString("input ")
	b.WriteString(typ.Name)
	if typ.OneOf {
		b.WriteString(" @oneOf")
	}
	b.WriteString(" {\n")
	for _, iv := range typ.InputFields {
		renderDescription(b, iv.Description, "  ")
		fmt.Fprintf(b, "  %s: %s", iv.Name, renderTypeRef(iv.Type))
		renderDefault(b, iv.DefaultValue)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderObject(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString("type ")
	b.WriteString(typ.Name)
	renderImplements(b, typ.Interfaces)
	b.WriteString(" {\n")
	renderFields(b, typ.Fields)
	b.WriteString("}\n\n")
}

func renderInterface(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString("interface ")
	b.WriteString(typ.Name)
	renderImplements(b, typ.Interfaces)
	b.WriteString(" {\n")
	renderFields(b, typ.Fields)
	b.WriteString("}\n\n")
}

func renderUnion(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	names := append([]string(nil), typ.PossibleTypes...)
	sort.Strings(names)
	fmt.Fprintf(b, "union %s = %s\n\n", typ.Name, strings.Join(names, " | "))
}

func renderDirective(b *strings.Builder, d *Directive) {
	renderDescription(b, d.Description, "")
	fmt.Fprintf(b, "directive @%s", d.Name)
	renderArguments(b, d.Arguments)
	if d.IsRepeatable {
		b.WriteString(" repeatable")
	}
	locs := append([]string(nil), d.Locations...)
	sort.Strings(locs)
	fmt.Fprintf(b, " on %s\n\n", strings.Join(locs, " | "))
}

func renderImplements(b *strings.Builder, interfaces []string) {
	if len(interfaces) == 0 {
		return
	}
	names := append([]string(nil), interfaces...)
	sort.Strings(names)
	b.WriteString(" implements ")
	b.WriteString(strings.Join(names, " & "))
}

func renderFields(b *strings.Builder, fields []*Field) {
	for _, f := range fields {
		renderDescription(b, f.Description, "  ")
		b.WriteString("  ")
		b.WriteString(f.Name)
		renderArguments(b, f.Arguments)
		b.WriteString(": ")
		b.WriteString(renderTypeRef(f.Type))
		renderDeprecated(b, f.IsDeprecated, f.DeprecationReason)
		b.WriteString("\n")
	}
}

func renderArguments(b *strings.Builder, args []*InputValue) {
	if len(args) == 0 {
		return
	}
	b.WriteString("(")
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s: %s", a.Name, renderTypeRef(a.Type))
		renderDefault(b, a.DefaultValue)
	}
	b.WriteString(")")
}

func renderDefault(b *strings.Builder, v any) {
	if v == nil {
		return
	}
	switch val := v.(type) {
	case string:
		fmt.Fprintf(b, " = %q", val)
	case bool:
		fmt.Fprintf(b, " = %t", val)
	default:
		fmt.Fprintf(b, " = %v", val)
	}
}

func renderDeprecated(b *strings.Builder, deprecated bool, reason string) {
	if !deprecated {
		return
	}
	b.WriteString(" @deprecated")
	if reason != "" {
		fmt.Fprintf(b, "(reason: %q)", reason)
	}
}

func renderTypeRef(t *TypeRef) string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypeRefKindNonNull:
		return renderTypeRef(t.OfType) + "!"
	case TypeRefKindList:
		return "[" + renderTypeRef(t.OfType) + "]"
	default:
		return t.Named
	}
}
