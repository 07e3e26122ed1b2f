package cache

import (
	"context"
	"time"
)

// Store is a byte-oriented cache shared by the in-memory and Redis backends.
// A miss is reported as ok=false with a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore adapts Cache to Store
type MemoryStore struct {
	cache *Cache
}

// NewMemoryStore wraps an in-memory cache
func NewMemoryStore(c *Cache) *MemoryStore {
	return &MemoryStore{cache: c}
}

// Close stops the cleanup goroutine of the underlying cache
func (m *MemoryStore) Close() error {
	m.cache.Close()
	return nil
}

// Get returns a copy of the cached bytes
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.cache.Get(key)
	return v, ok, nil
}

// Set stores a copy of value. A zero ttl uses the cache default.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.cache.Set(key, value, ttl)
	return nil
}

// Delete removes key
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

// NopStore never stores anything. Used when caching is disabled.
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NopStore) Delete(context.Context, string) error                     { return nil }
