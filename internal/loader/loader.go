// Package loader implements memoized batch loading for backend lookups.
// A loader fetches each distinct key at most once per session, even when
// requests arrive concurrently, and coalesces keys requested together
// into a single batch fetch.
package loader

import (
	"context"
	"encoding/json"
	"sync"

	log "github.com/jensneuse/abstractlogger"

	"github.com/storegraph/storegraph/internal/eventbus"
	"github.com/storegraph/storegraph/internal/events"
)

// BatchFunc fetches values for keys. The returned slice must be
// positional: result[i] corresponds to keys[i]. A missing value is nil.
type BatchFunc func(ctx context.Context, keys []any) ([]any, error)

// KeyFunc serializes a key into its cache identity.
type KeyFunc func(key any) string

// StableKey is the default KeyFunc. Strings map to themselves and every
// other key is serialized as JSON. encoding/json writes map keys in
// sorted order, so structurally equal parameter maps share an identity.
func StableKey(key any) string {
	if s, ok := key.(string); ok {
		return s
	}
	b, err := json.Marshal(key)
	if err != nil {
		return "!" + err.Error()
	}
	return string(b)
}

type entry struct {
	done  chan struct{}
	value any
}

// Loader memoizes batch fetches against a single backend concern.
type Loader struct {
	name  string
	batch BatchFunc
	keyFn KeyFunc
	log   log.Logger

	mu    sync.Mutex
	cache map[string]*entry
}

// New creates a Loader named for its backend concern.
func New(name string, batch BatchFunc, logger log.Logger) *Loader {
	return &Loader{
		name:  name,
		batch: batch,
		keyFn: StableKey,
		log:   logger,
		cache: make(map[string]*entry),
	}
}

// Load returns the value for key, fetching it if this is the first
// request. Fetch errors are logged and cached as nil so a failed key is
// never retried within the session.
func (l *Loader) Load(ctx context.Context, key any) any {
	return l.LoadMany(ctx, []any{key})[0]
}

// LoadMany returns values positionally for keys, fetching all keys not
// seen before in one batch.
func (l *Loader) LoadMany(ctx context.Context, keys []any) []any {
	entries := make([]*entry, len(keys))
	var pendingKeys []any
	var pendingEntries []*entry

	l.mu.Lock()
	for i, key := range keys {
		id := l.keyFn(key)
		e, ok := l.cache[id]
		if !ok {
			e = &entry{done: make(chan struct{})}
			l.cache[id] = e
			pendingKeys = append(pendingKeys, key)
			pendingEntries = append(pendingEntries, e)
		}
		entries[i] = e
	}
	l.mu.Unlock()

	if len(pendingKeys) > 0 {
		l.fetch(ctx, pendingKeys, pendingEntries)
	}

	results := make([]any, len(entries))
	for i, e := range entries {
		<-e.done
		results[i] = e.value
	}
	return results
}

func (l *Loader) fetch(ctx context.Context, keys []any, entries []*entry) {
	eventbus.Publish(ctx, events.BackendFetch{Loader: l.name, Keys: len(keys)})
	values, err := l.batch(ctx, keys)
	if err != nil || len(values) != len(keys) {
		if err != nil {
			l.log.Error("loader: batch fetch failed",
				log.String("loader", l.name),
				log.Error(err),
			)
		} else {
			l.log.Error("loader: batch fetch returned wrong result count",
				log.String("loader", l.name),
				log.Int("want", len(keys)),
				log.Int("got", len(values)),
			)
		}
		for _, e := range entries {
			close(e.done)
		}
		return
	}
	for i, e := range entries {
		e.value = values[i]
		close(e.done)
	}
}

// Prime seeds the cache with a value, used when one fetch yields data
// another loader would otherwise fetch again.
func (l *Loader) Prime(key any, value any) {
	id := l.keyFn(key)
	l.mu.Lock()
	if _, ok := l.cache[id]; !ok {
		e := &entry{done: make(chan struct{}), value: value}
		close(e.done)
		l.cache[id] = e
	}
	l.mu.Unlock()
}
