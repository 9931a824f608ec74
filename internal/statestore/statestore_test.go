package statestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPutGet(t *testing.T) {
	s, err := NewMemory(16)
	require.NoError(t, err)

	require.NoError(t, s.Put("k", []byte("v"), NoExpiry))
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	_, ok, err = s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryExpiry(t *testing.T) {
	s, err := NewMemory(16)
	require.NoError(t, err)
	base := time.Now()
	s.now = func() time.Time { return base }

	require.NoError(t, s.Put("short", []byte("a"), 60))
	require.NoError(t, s.Put("forever", []byte("b"), NoExpiry))

	_, ok, _ := s.Get("short")
	assert.True(t, ok)

	s.now = func() time.Time { return base.Add(61 * time.Second) }
	_, ok, _ = s.Get("short")
	assert.False(t, ok, "entry past its ttl must be dropped")
	_, ok, _ = s.Get("forever")
	assert.True(t, ok)
}

func TestMemoryLRUBound(t *testing.T) {
	s, err := NewMemory(2)
	require.NoError(t, err)

	require.NoError(t, s.Put("a", []byte("1"), NoExpiry))
	require.NoError(t, s.Put("b", []byte("2"), NoExpiry))
	require.NoError(t, s.Put("c", []byte("3"), NoExpiry))

	_, ok, _ := s.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok, _ = s.Get("c")
	assert.True(t, ok)
}

func TestMemoryDelete(t *testing.T) {
	s, err := NewMemory(4)
	require.NoError(t, err)
	require.NoError(t, s.Put("k", []byte("v"), NoExpiry))
	require.NoError(t, s.Delete("k"))
	_, ok, _ := s.Get("k")
	assert.False(t, ok)
}
