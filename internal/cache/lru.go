package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// ristretto buffers Gets in batches of this many keys.
const lruBufferItems = 64

// LRUCache stores rendered report responses in a ristretto cache bounded by
// total byte cost. Each entry's cost is its payload length, so a handful of
// large monthly reports and many small ones compete for the same budget.
type LRUCache struct {
	store      *ristretto.Cache
	defaultTTL time.Duration
}

// responseEntry carries the payload plus the deadline ristretto itself does
// not track; expiry is enforced on read.
type responseEntry struct {
	payload  []byte
	deadline time.Time
}

func (e *responseEntry) live(now time.Time) bool {
	return now.Before(e.deadline)
}

// NewLRU builds a response cache holding at most maxSizeMB megabytes across
// roughly maxEntries entries. Writes without an explicit TTL expire after
// defaultTTL.
func NewLRU(maxSizeMB int64, maxEntries int64, defaultTTL time.Duration) (*LRUCache, error) {
	// ristretto wants ~10x the expected entry count for its admission
	// counters, with a floor so tiny configs still admit reasonably.
	counters := maxEntries * 10
	if counters < 1000 {
		counters = 1000
	}

	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: counters,
		MaxCost:     maxSizeMB << 20,
		BufferItems: lruBufferItems,
		Metrics:     true, // the collector polls Stats
	})
	if err != nil {
		return nil, err
	}

	return &LRUCache{store: store, defaultTTL: defaultTTL}, nil
}

// Get returns the payload stored under key, treating an expired or
// foreign-typed entry as a miss and evicting it.
func (c *LRUCache) Get(key string) ([]byte, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}

	entry, ok := v.(*responseEntry)
	if !ok || !entry.live(time.Now()) {
		c.store.Del(key)
		return nil, false
	}
	return entry.payload, true
}

// Set stores payload under key. A zero ttl selects the cache default.
// ristretto may decline admission under pressure; that is indistinguishable
// from an immediate eviction and callers do not need to know.
func (c *LRUCache) Set(key string, payload []byte, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	entry := &responseEntry{
		payload:  payload,
		deadline: time.Now().Add(ttl),
	}
	_ = c.store.Set(key, entry, int64(len(payload)))

	// Flush the admission buffers so a report rendered on this request is
	// servable on the next one.
	c.store.Wait()
}

// Delete removes key.
func (c *LRUCache) Delete(key string) {
	c.store.Del(key)
}

// Clear removes every entry.
func (c *LRUCache) Clear() {
	c.store.Clear()
}

// Stats snapshots ristretto's metrics into the shared Stats shape. Size and
// Items are derived from added-minus-evicted totals and are approximate.
func (c *LRUCache) Stats() Stats {
	m := c.store.Metrics
	return Stats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		KeysAdded: m.KeysAdded(),
		Evictions: m.KeysEvicted(),
		Size:      int64(m.CostAdded() - m.CostEvicted()),
		Items:     int64(m.KeysAdded() - m.KeysEvicted()),
	}
}

// Close releases ristretto's internal goroutines.
func (c *LRUCache) Close() {
	c.store.Close()
}
