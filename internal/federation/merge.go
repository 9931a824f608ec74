// Package federation composes the gateway's executable schema out of
// the local schema and the introspected schemas of remote resolver
// actions, and keeps the composed result for the process lifetime.
package federation

import (
	"fmt"

	"github.com/storegraph/storegraph/internal/remote"
	"github.com/storegraph/storegraph/internal/schema"
)

// Source is one schema entering a merge. Fetcher is nil for the local
// schema and set for remote schemas, whose root fields delegate through
// it.
type Source struct {
	Schema  *schema.Schema
	Fetcher *remote.ResolverFetcher
}

// Merged is a composed schema plus the delegation table for root fields
// owned by remote schemas.
type Merged struct {
	Schema *schema.Schema
	// Delegates maps a root field name to the fetcher of the remote
	// schema that owns it. Locally resolved root fields are absent.
	Delegates map[string]*remote.ResolverFetcher
}

// Merge composes sources into one schema. Root-type fields are unioned
// across all sources; for any other type name defined by more than one
// source, the definition with the lower sortOrder wins and ties go to
// the earlier source in the list.
func Merge(sources []Source) (*Merged, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("federation: nothing to merge")
	}

	merged := &schema.Schema{
		Types:      map[string]*schema.Type{},
		Directives: map[string]*schema.Directive{},
	}
	delegates := map[string]*remote.ResolverFetcher{}

	// Winning source order per type, field and directive name.
	typeOrder := map[string]int{}
	fieldOrder := map[string]map[string]int{}

	rootNames := map[string]bool{}
	for _, src := range sources {
		for _, name := range []string{src.Schema.QueryType, src.Schema.MutationType, src.Schema.SubscriptionType} {
			if name != "" {
				rootNames[name] = true
			}
		}
	}

	mergeRoot := func(src Source, rootName string, target *string) {
		if rootName == "" {
			return
		}
		rootType := src.Schema.Types[rootName]
		if rootType == nil {
			return
		}
		if *target == "" {
			*target = rootName
			merged.Types[rootName] = &schema.Type{
				Name:        rootName,
				Kind:        schema.TypeKindObject,
				Description: rootType.Description,
			}
			fieldOrder[rootName] = map[string]int{}
		}
		targetType := merged.Types[*target]
		orders := fieldOrder[*target]
		for _, f := range rootType.Fields {
			if existing, ok := orders[f.Name]; ok {
				if src.Schema.SortOrder >= existing {
					continue
				}
				for i, old := range targetType.Fields {
					if old.Name == f.Name {
						targetType.Fields[i] = f
						break
					}
				}
			} else {
				targetType.Fields = append(targetType.Fields, f)
			}
			orders[f.Name] = src.Schema.SortOrder
			if src.Fetcher != nil {
				delegates[f.Name] = src.Fetcher
			} else {
				delete(delegates, f.Name)
			}
		}
	}

	for _, src := range sources {
		mergeRoot(src, src.Schema.QueryType, &merged.QueryType)
		mergeRoot(src, src.Schema.MutationType, &merged.MutationType)
		mergeRoot(src, src.Schema.SubscriptionType, &merged.SubscriptionType)

		for name, t := range src.Schema.Types {
			if rootNames[name] {
				continue
			}
			if existing, ok := typeOrder[name]; ok && src.Schema.SortOrder >= existing {
				continue
			}
			merged.Types[name] = t
			typeOrder[name] = src.Schema.SortOrder
		}

		for name, d := range src.Schema.Directives {
			if _, ok := merged.Directives[name]; !ok {
				merged.Directives[name] = d
			}
		}
	}

	return &Merged{Schema: merged, Delegates: delegates}, nil
}
