package remote

import (
	"fmt"

	"github.com/storegraph/storegraph/internal/language"
)

// SubQuery extracts the parts of doc needed to delegate one root field:
// a new operation holding only the selections of that field, the
// variable definitions they use, and the fragments they spread.
func SubQuery(doc *language.QueryDocument, operationName, field string) (*language.QueryDocument, error) {
	op := doc.Operations.ForName(operationName)
	if op == nil {
		return nil, fmt.Errorf("remote: operation %q not found", operationName)
	}

	var selections language.SelectionSet
	for _, sel := range op.SelectionSet {
		if f, ok := sel.(*language.Field); ok && f.Name == field {
			selections = append(selections, copyField(f))
		}
	}
	if len(selections) == 0 {
		return nil, fmt.Errorf("remote: root field %q not selected in operation", field)
	}

	usedVars := map[string]bool{}
	usedFrags := map[string]bool{}
	sub := &language.QueryDocument{}
	collectUsage(doc, sub, selections, usedVars, usedFrags)

	subOp := &language.OperationDefinition{
		Operation:    op.Operation,
		Name:         op.Name,
		SelectionSet: selections,
	}
	for _, vd := range op.VariableDefinitions {
		if usedVars[vd.Variable] {
			subOp.VariableDefinitions = append(subOp.VariableDefinitions, vd)
		}
	}
	sub.Operations = append(sub.Operations, subOp)

	// The caller resolves abstract types in the returned data by their
	// __typename, so every composite selection must ask for it.
	injectTypename(selections)
	for _, frag := range sub.Fragments {
		injectTypename(frag.SelectionSet)
	}
	return sub, nil
}

// copySelectionSet clones fields and inline fragments so the delegated
// sub-query can be rewritten without touching the request document.
func copySelectionSet(set language.SelectionSet) language.SelectionSet {
	if set == nil {
		return nil
	}
	out := make(language.SelectionSet, len(set))
	for i, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			out[i] = copyField(s)
		case *language.InlineFragment:
			cp := *s
			cp.SelectionSet = copySelectionSet(s.SelectionSet)
			out[i] = &cp
		default:
			out[i] = sel
		}
	}
	return out
}

func copyField(f *language.Field) *language.Field {
	cp := *f
	cp.SelectionSet = copySelectionSet(f.SelectionSet)
	return &cp
}

// injectTypename adds __typename to every nested composite selection.
func injectTypename(set language.SelectionSet) {
	if len(set) == 0 {
		return
	}
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			if len(s.SelectionSet) == 0 {
				continue
			}
			if !hasTypename(s.SelectionSet) {
				s.SelectionSet = append(s.SelectionSet, &language.Field{
					Alias: "__typename",
					Name:  "__typename",
				})
			}
			injectTypename(s.SelectionSet)
		case *language.InlineFragment:
			injectTypename(s.SelectionSet)
		}
	}
}

func hasTypename(set language.SelectionSet) bool {
	for _, sel := range set {
		if f, ok := sel.(*language.Field); ok && f.Name == "__typename" {
			return true
		}
	}
	return false
}

// collectUsage walks a selection set recording variable references and
// pulling spread fragments into the sub-document.
func collectUsage(doc, sub *language.QueryDocument, set language.SelectionSet, vars, frags map[string]bool) {
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			for _, arg := range s.Arguments {
				collectValueVars(arg.Value, vars)
			}
			collectDirectiveVars(s.Directives, vars)
			collectUsage(doc, sub, s.SelectionSet, vars, frags)
		case *language.InlineFragment:
			collectDirectiveVars(s.Directives, vars)
			collectUsage(doc, sub, s.SelectionSet, vars, frags)
		case *language.FragmentSpread:
			collectDirectiveVars(s.Directives, vars)
			if frags[s.Name] {
				continue
			}
			frags[s.Name] = true
			if def := doc.Fragments.ForName(s.Name); def != nil {
				cp := *def
				cp.SelectionSet = copySelectionSet(def.SelectionSet)
				sub.Fragments = append(sub.Fragments, &cp)
				collectUsage(doc, sub, def.SelectionSet, vars, frags)
			}
		}
	}
}

func collectDirectiveVars(directives language.DirectiveList, vars map[string]bool) {
	for _, d := range directives {
		for _, arg := range d.Arguments {
			collectValueVars(arg.Value, vars)
		}
	}
}

func collectValueVars(v *language.Value, vars map[string]bool) {
	if v == nil {
		return
	}
	if v.Kind == language.Variable {
		vars[v.Raw] = true
	}
	for _, child := range v.Children {
		collectValueVars(child.Value, vars)
	}
}
