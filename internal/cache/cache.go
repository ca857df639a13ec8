package cache

import "time"

// Cache is the byte-store interface the report endpoints memoize rendered
// JSON through. Handlers depend on it rather than on LRUCache so tests can
// swap in MockCache.
type Cache interface {
	// Get returns the bytes stored under key and true, or nil and false
	// when the key is absent or expired.
	Get(key string) ([]byte, bool)

	// Set stores value under key. A zero ttl selects the cache default.
	Set(key string, value []byte, ttl time.Duration)

	// Delete removes key.
	Delete(key string)

	// Clear removes every entry.
	Clear()

	// Stats returns a point-in-time counter snapshot.
	Stats() Stats
}

// Stats is a snapshot of byte-cache counters.
type Stats struct {
	Hits      uint64 // Total cache hits
	Misses    uint64 // Total cache misses
	KeysAdded uint64 // Total keys added
	Evictions uint64 // Total evictions
	Size      int64  // Approximate size in bytes
	Items     int64  // Current number of items
}
