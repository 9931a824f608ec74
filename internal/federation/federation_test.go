package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"

	log "github.com/jensneuse/abstractlogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storegraph/storegraph/internal/backend"
	"github.com/storegraph/storegraph/internal/cartaction"
	"github.com/storegraph/storegraph/internal/language"
	"github.com/storegraph/storegraph/internal/remote"
	"github.com/storegraph/storegraph/internal/schema"
	"github.com/storegraph/storegraph/internal/statestore"
)

func mustSchema(t *testing.T, sdl string, order int) *schema.Schema {
	t.Helper()
	sch, err := schema.FromSDL("test", sdl)
	require.NoError(t, err)
	sch.SortOrder = order
	return sch
}

func TestMergeUnionsRootFields(t *testing.T) {
	local := mustSchema(t, `
		schema { query: Query }
		type Query { local: String }
	`, 10)
	rem := mustSchema(t, `
		schema { query: Query }
		type Query { remoteOnly: String }
	`, 20)
	fetcher := remote.NewResolverFetcher("cart-resolver", &remote.InProcessInvoker{})

	merged, err := Merge([]Source{{Schema: local}, {Schema: rem, Fetcher: fetcher}})
	require.NoError(t, err)

	query := merged.Schema.GetQueryType()
	require.NotNil(t, query)
	assert.NotNil(t, query.FieldByName("local"))
	assert.NotNil(t, query.FieldByName("remoteOnly"))

	assert.Same(t, fetcher, merged.Delegates["remoteOnly"])
	assert.NotContains(t, merged.Delegates, "local")
}

func TestMergeRootFieldConflictKeepsLowerOrder(t *testing.T) {
	local := mustSchema(t, `
		schema { query: Query }
		type Query { "local product" product: String }
	`, 10)
	rem := mustSchema(t, `
		schema { query: Query }
		type Query { "remote product" product: String }
	`, 20)
	fetcher := remote.NewResolverFetcher("product-resolver", &remote.InProcessInvoker{})

	merged, err := Merge([]Source{{Schema: local}, {Schema: rem, Fetcher: fetcher}})
	require.NoError(t, err)

	field := merged.Schema.GetQueryType().FieldByName("product")
	require.NotNil(t, field)
	assert.Equal(t, "local product", field.Description)
	assert.NotContains(t, merged.Delegates, "product")

	// Reversed priorities hand the field to the remote.
	local.SortOrder, rem.SortOrder = 20, 10
	merged, err = Merge([]Source{{Schema: local}, {Schema: rem, Fetcher: fetcher}})
	require.NoError(t, err)
	assert.Equal(t, "remote product", merged.Schema.GetQueryType().FieldByName("product").Description)
	assert.Same(t, fetcher, merged.Delegates["product"])
}

func TestMergeTypeConflict(t *testing.T) {
	a := mustSchema(t, `
		schema { query: Query }
		type Query { thing: Thing }
		"from a" type Thing { id: String }
	`, 10)
	b := mustSchema(t, `
		schema { query: Query }
		type Query { other: Thing }
		"from b" type Thing { id: String name: String }
	`, 20)

	merged, err := Merge([]Source{{Schema: a}, {Schema: b}})
	require.NoError(t, err)
	assert.Equal(t, "from a", merged.Schema.Types["Thing"].Description)

	// Equal priority keeps the earlier source.
	b.SortOrder = 10
	merged, err = Merge([]Source{{Schema: a}, {Schema: b}})
	require.NoError(t, err)
	assert.Equal(t, "from a", merged.Schema.Types["Thing"].Description)

	// A strictly lower order replaces the definition.
	b.SortOrder = 5
	merged, err = Merge([]Source{{Schema: a}, {Schema: b}})
	require.NoError(t, err)
	assert.Equal(t, "from b", merged.Schema.Types["Thing"].Description)
}

// countingInvoker counts invocations so cache tests can assert that no
// introspection happened.
type countingInvoker struct {
	inner remote.Invoker
	calls atomic.Int64
}

func (c *countingInvoker) Invoke(ctx context.Context, action string, params map[string]any) (json.RawMessage, error) {
	c.calls.Add(1)
	return c.inner.Invoke(ctx, action, params)
}

func newCartInvoker(t *testing.T) *countingInvoker {
	t.Helper()
	store, err := statestore.NewMemory(16)
	require.NoError(t, err)
	action, err := cartaction.New(
		&backend.Simulator{BaseURL: "https://backend.example.com"},
		backend.NewCatalog(store, log.NoopLogger),
		log.NoopLogger,
	)
	require.NoError(t, err)
	return &countingInvoker{inner: &remote.InProcessInvoker{
		Actions: map[string]remote.ActionFunc{"cart-resolver": action.Main},
	}}
}

func localTestSchema(t *testing.T) *schema.Schema {
	return mustSchema(t, `
		schema { query: Query }
		type Query { greeting: String }
	`, 10)
}

func TestFederatorIntrospectsRemote(t *testing.T) {
	invoker := newCartInvoker(t)
	f := NewFederator(nil, invoker, log.NoopLogger)

	merged, err := f.Build(context.Background(), localTestSchema(t),
		map[string]RemoteConfig{"cart": {Action: "cart-resolver", Order: 1000}}, -1)
	require.NoError(t, err)

	query := merged.Schema.GetQueryType()
	assert.NotNil(t, query.FieldByName("greeting"))
	require.NotNil(t, query.FieldByName("cart"))
	require.NotNil(t, merged.Schema.GetMutationType().FieldByName("createEmptyCart"))
	assert.Contains(t, merged.Schema.Types, "SimpleCartItem")

	assert.Equal(t, "cart-resolver", merged.Delegates["cart"].Action())
	assert.Equal(t, "cart-resolver", merged.Delegates["createEmptyCart"].Action())
	assert.NotContains(t, merged.Delegates, "greeting")
	assert.EqualValues(t, 1, invoker.calls.Load())
}

func TestFederatorSchemaCacheRoundTrip(t *testing.T) {
	invoker := newCartInvoker(t)
	store, err := statestore.NewMemory(16)
	require.NoError(t, err)
	configs := map[string]RemoteConfig{"cart": {Action: "cart-resolver", Order: 1000}}

	f := NewFederator(store, invoker, log.NoopLogger)
	first, err := f.Build(context.Background(), localTestSchema(t), configs, 300)
	require.NoError(t, err)
	require.EqualValues(t, 1, invoker.calls.Load())

	_, ok, err := store.Get(CacheKey)
	require.NoError(t, err)
	require.True(t, ok, "schema list should be persisted after a miss")

	// A fresh federator over the same store rebuilds from SDL without
	// touching the remote.
	second, err := NewFederator(store, invoker, log.NoopLogger).
		Build(context.Background(), localTestSchema(t), configs, 300)
	require.NoError(t, err)
	assert.EqualValues(t, 1, invoker.calls.Load())

	assert.Equal(t, typeNames(first.Schema), typeNames(second.Schema))
	assert.Equal(t, fieldNames(first.Schema.GetQueryType()), fieldNames(second.Schema.GetQueryType()))
	assert.Equal(t, "cart-resolver", second.Delegates["cart"].Action())

	// A negative TTL bypasses the cache entirely.
	_, err = NewFederator(store, invoker, log.NoopLogger).
		Build(context.Background(), localTestSchema(t), configs, -1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, invoker.calls.Load())
}

func TestRegistryMemoizesBuild(t *testing.T) {
	r := NewRegistry()
	builds := 0
	build := func(context.Context) (*Merged, error) {
		builds++
		return Merge([]Source{{Schema: localTestSchema(t)}})
	}

	first, err := r.Get(context.Background(), build)
	require.NoError(t, err)
	second, err := r.Get(context.Background(), build)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, builds)
	assert.True(t, r.Loaded())

	r.Reset()
	assert.False(t, r.Loaded())
	_, err = r.Get(context.Background(), build)
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
}

func TestRegistryDoesNotMemoizeFailure(t *testing.T) {
	r := NewRegistry()
	builds := 0
	_, err := r.Get(context.Background(), func(context.Context) (*Merged, error) {
		builds++
		return nil, fmt.Errorf("boom")
	})
	require.Error(t, err)
	assert.False(t, r.Loaded())

	_, err = r.Get(context.Background(), func(context.Context) (*Merged, error) {
		builds++
		return Merge([]Source{{Schema: localTestSchema(t)}})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
}

func TestFederatorIntrospectsMultipleRemotes(t *testing.T) {
	invoker := newCartInvoker(t)
	inner := invoker.inner.(*remote.InProcessInvoker)
	inner.Actions["cart-resolver-b"] = inner.Actions["cart-resolver"]

	f := NewFederator(nil, invoker, log.NoopLogger)
	merged, err := f.Build(context.Background(), localTestSchema(t), map[string]RemoteConfig{
		"cart":   {Action: "cart-resolver", Order: 1000},
		"backup": {Action: "cart-resolver-b", Order: 2000},
	}, -1)
	require.NoError(t, err)

	// One introspection per remote; the conflicting root field delegates
	// to the lower-order remote even though "backup" sorts first.
	assert.EqualValues(t, 2, invoker.calls.Load())
	require.Contains(t, merged.Delegates, "cart")
	assert.Equal(t, "cart-resolver", merged.Delegates["cart"].Action())
}

func TestDelegateResolverHonorsAlias(t *testing.T) {
	invoker := newCartInvoker(t)
	fetcher := remote.NewResolverFetcher("cart-resolver", invoker)
	doc, err := language.ParseQuery(`{ c: cart(cart_id: "abcd") { email } }`)
	require.NoError(t, err)

	resolve := DelegateResolver(fetcher, "cart", doc, "", nil, nil)
	value, err := resolve(context.Background(), nil)
	require.NoError(t, err)

	m, ok := value.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, m["email"])
}

func typeNames(s *schema.Schema) []string {
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fieldNames(t *schema.Type) []string {
	names := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}
