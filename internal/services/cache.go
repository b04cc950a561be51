package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Cache is the key-value cache the feed pipeline depends on. The redis client
// satisfies it in production; NewMemoryCache backs it when REDIS_ADDR is not
// configured and in tests.
type Cache interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, val any, ttl time.Duration) error
}

type memoryCacheEntry struct {
	raw     []byte
	expires time.Time
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryCacheEntry
}

// NewMemoryCache returns a process-local TTL cache. Entries are evicted
// lazily on read.
func NewMemoryCache() Cache {
	return &memoryCache{entries: map[string]memoryCacheEntry{}}
}

func (m *memoryCache) Get(_ context.Context, key string, out any) (bool, error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if ok && time.Now().After(entry.expires) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *memoryCache) Set(_ context.Context, key string, val any, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[key] = memoryCacheEntry{raw: raw, expires: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}
