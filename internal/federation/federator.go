package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	log "github.com/jensneuse/abstractlogger"

	"github.com/storegraph/storegraph/internal/eventbus"
	"github.com/storegraph/storegraph/internal/events"
	"github.com/storegraph/storegraph/internal/introspection"
	"github.com/storegraph/storegraph/internal/remote"
	"github.com/storegraph/storegraph/internal/schema"
	"github.com/storegraph/storegraph/internal/statestore"
)

// CacheKey is the state store key holding the serialized remote schema
// list.
const CacheKey = "schemas"

// RemoteConfig names one remote resolver action and its merge priority.
type RemoteConfig struct {
	Action string `json:"action"`
	Order  int    `json:"order"`
}

// cachedSchema is the persisted form of one remote schema.
type cachedSchema struct {
	Schema string `json:"schema"`
	Action string `json:"action"`
	Order  int    `json:"order"`
}

// Federator builds the merged schema from a local schema and the
// configured remotes, optionally round-tripping the remote SDL set
// through the state store to skip network introspection on cold starts.
type Federator struct {
	store   statestore.Store
	invoker remote.Invoker
	log     log.Logger
}

// NewFederator creates a Federator. store may be nil when caching is
// never requested.
func NewFederator(store statestore.Store, invoker remote.Invoker, logger log.Logger) *Federator {
	return &Federator{store: store, invoker: invoker, log: logger}
}

// Build composes local with the remotes. When cacheTTL is non-negative
// and the store holds a schema list, remotes are rebuilt from their SDL
// without introspection; on a miss the freshly introspected SDL set is
// persisted with that TTL. A negative cacheTTL disables the cache path.
func (f *Federator) Build(ctx context.Context, local *schema.Schema, configs map[string]RemoteConfig, cacheTTL int) (*Merged, error) {
	sources := []Source{{Schema: local}}

	var remotes []Source
	var err error
	fetched := false
	if cacheTTL >= 0 && f.store != nil {
		remotes, err = f.loadFromCache(ctx)
		if err != nil {
			return nil, err
		}
	}
	if remotes == nil && len(configs) > 0 {
		remotes, err = f.introspectAll(ctx, configs)
		if err != nil {
			return nil, err
		}
		fetched = true
	}
	sources = append(sources, remotes...)

	if fetched && cacheTTL >= 0 && f.store != nil && len(remotes) > 0 {
		if err := f.persist(remotes, cacheTTL); err != nil {
			f.log.Error("federation: persisting schema cache failed", log.Error(err))
		}
	}

	return Merge(sources)
}

// introspectAll fetches all remote schemas concurrently and gathers the
// results in deterministic (name-sorted) order.
func (f *Federator) introspectAll(ctx context.Context, configs map[string]RemoteConfig) ([]Source, error) {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	sources := make([]Source, len(names))
	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i := range names {
		wg.Add(1)
		go func(i int, cfg RemoteConfig) {
			defer wg.Done()
			src, err := f.introspect(ctx, cfg)
			sources[i], errs[i] = src, err
		}(i, configs[names[i]])
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("federation: introspecting remote %q: %w", names[i], err)
		}
	}
	return sources, nil
}

func (f *Federator) introspect(ctx context.Context, cfg RemoteConfig) (Source, error) {
	fetcher := remote.NewResolverFetcher(cfg.Action, f.invoker)
	result, err := fetcher.FetchText(ctx, introspection.Query, nil, "IntrospectionQuery")
	if err != nil {
		return Source{}, err
	}
	if errs, ok := result["errors"].([]any); ok && len(errs) > 0 {
		return Source{}, fmt.Errorf("introspection returned errors: %v", errs[0])
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return Source{}, err
	}
	doc, err := schema.ParseDocument(raw)
	if err != nil {
		return Source{}, err
	}
	sch, err := doc.Schema()
	if err != nil {
		return Source{}, err
	}
	sch.SortOrder = cfg.Order
	return Source{Schema: sch, Fetcher: fetcher}, nil
}

// loadFromCache rebuilds remote sources from the persisted SDL list,
// returning nil on a cache miss.
func (f *Federator) loadFromCache(ctx context.Context) ([]Source, error) {
	raw, ok, err := f.store.Get(CacheKey)
	if err != nil {
		return nil, err
	}
	eventbus.Publish(ctx, events.SchemaCache{Hit: ok})
	if !ok {
		return nil, nil
	}
	var cached []cachedSchema
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("federation: decoding schema cache: %w", err)
	}
	f.log.Debug("federation: rebuilding remote schemas from cache",
		log.Int("count", len(cached)))

	sources := make([]Source, len(cached))
	for i, entry := range cached {
		sch, err := schema.FromSDL(entry.Action, entry.Schema)
		if err != nil {
			return nil, fmt.Errorf("federation: rebuilding schema of %s: %w", entry.Action, err)
		}
		sch.SortOrder = entry.Order
		sources[i] = Source{
			Schema:  sch,
			Fetcher: remote.NewResolverFetcher(entry.Action, f.invoker),
		}
	}
	return sources, nil
}

// persist stores the SDL form of the fetched remote schemas.
func (f *Federator) persist(remotes []Source, ttl int) error {
	cached := make([]cachedSchema, len(remotes))
	for i, src := range remotes {
		cached[i] = cachedSchema{
			Schema: schema.Render(src.Schema),
			Action: src.Fetcher.Action(),
			Order:  src.Schema.SortOrder,
		}
	}
	raw, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	f.log.Debug("federation: caching remote schemas", log.Int("ttl", ttl))
	return f.store.Put(CacheKey, raw, ttl)
}
