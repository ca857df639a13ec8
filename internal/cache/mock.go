package cache

import "time"

// MockCache is a deterministic in-memory Cache for handler tests. Unlike the
// ristretto-backed LRUCache it has no async admission, so a Set is visible to
// the next Get immediately.
type MockCache struct {
	data   map[string][]byte
	hits   uint64
	misses uint64
}

// NewMockCache creates an empty mock cache.
func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string][]byte),
	}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	val, found := m.data[key]
	if found {
		m.hits++
	} else {
		m.misses++
	}
	return val, found
}

func (m *MockCache) Set(key string, value []byte, ttl time.Duration) {
	m.data[key] = value
}

func (m *MockCache) Delete(key string) {
	delete(m.data, key)
}

func (m *MockCache) Clear() {
	m.data = make(map[string][]byte)
}

func (m *MockCache) Stats() Stats {
	return Stats{
		Hits:   m.hits,
		Misses: m.misses,
		Items:  int64(len(m.data)),
	}
}
