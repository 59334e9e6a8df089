package loader

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the entry count of caches created with size <= 0.
const DefaultCacheSize = 256

// Memory caches the fragments of a backing loader in an LRU cache. Misses
// are not cached.
type Memory struct {
	next  Loader
	cache *lru.Cache[string, []byte]
}

// NewMemory wraps next with an LRU cache of size entries.
func NewMemory(next Loader, size int) (*Memory, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &Memory{next: next, cache: cache}, nil
}

func (m *Memory) Load(ctx context.Context, src string) ([]byte, error) {
	if data, ok := m.cache.Get(src); ok {
		return data, nil
	}
	data, err := m.next.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	m.cache.Add(src, data)
	return data, nil
}

// Purge drops every cached fragment.
func (m *Memory) Purge() { m.cache.Purge() }

// Len returns the number of cached fragments.
func (m *Memory) Len() int { return m.cache.Len() }
