// Package statestore provides the shared key-value state used for product
// records, search indexes and the merged schema cache.
package statestore

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// NoExpiry keeps an entry until it is evicted.
const NoExpiry = -1

// Store is a byte-oriented key-value store with per-entry TTLs.
type Store interface {
	// Get returns the value for key. The second return value reports
	// whether a live entry was found.
	Get(key string) ([]byte, bool, error)
	// Put stores value under key. ttl is in seconds; NoExpiry disables
	// expiration for the entry.
	Put(key string, value []byte, ttl int) error
	// Delete removes key if present.
	Delete(key string) error
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Memory is an in-memory Store bounded by an LRU cache.
type Memory struct {
	mu    sync.Mutex
	cache *lru.Cache
	now   func() time.Time
}

// NewMemory creates a Memory store holding at most size entries.
func NewMemory(size int) (*Memory, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Memory{cache: c, now: time.Now}, nil
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	e := v.(memoryEntry)
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		m.cache.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Put(key string, value []byte, ttl int) error {
	e := memoryEntry{value: value}
	if ttl != NoExpiry {
		e.expiresAt = m.now().Add(time.Duration(ttl) * time.Second)
	}
	m.mu.Lock()
	m.cache.Add(key, e)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	m.cache.Remove(key)
	m.mu.Unlock()
	return nil
}
