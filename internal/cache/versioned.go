package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/metrics"
)

// Versioned cache defaults. A zero TTL on any write means "use the default".
const (
	DefaultVersion       = 1
	DefaultTTL           = 300 * time.Second
	DefaultSweepInterval = 5 * time.Minute

	// Fixed per-entry overhead used by the memory estimate, covering map and
	// list bookkeeping that len(key)+len(value) does not see.
	entryOverheadBytes = 32

	// Info returns at most this many entries to keep the admin payload bounded.
	maxInfoEntries = 100
)

// FetchFunc produces a value for GetOrSet on a cache miss.
type FetchFunc func(ctx context.Context) (any, error)

// VersionedStats is a point-in-time snapshot of cache counters.
// Counters accumulate until Clear or Close resets them.
type VersionedStats struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Sets        uint64  `json:"sets"`
	Deletes     uint64  `json:"deletes"`
	HitRate     float64 `json:"hitRate"`
	CacheSize   int     `json:"cacheSize"`
	MemoryUsage int64   `json:"memoryUsage"`
}

// EntryInfo describes one cache entry for the admin inspection endpoint.
type EntryInfo struct {
	Key     string `json:"key"`
	Age     int64  `json:"age"`
	TTL     int64  `json:"ttl"`
	Version int    `json:"version"`
	Size    int    `json:"size"`
}

// Info combines counters with a bounded listing of entries in insertion order.
type Info struct {
	Stats        VersionedStats `json:"stats"`
	Entries      []EntryInfo    `json:"entries"`
	TotalEntries int            `json:"totalEntries"`
}

type versionedEntry struct {
	key       string // composite "version:key"
	version   int
	value     any
	createdAt time.Time
	ttl       time.Duration
}

// expired is the single liveness predicate. Every read path and the sweep
// use it so an entry can never be live for one operation and dead for another.
func (e *versionedEntry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) >= e.ttl
}

// VersionedCache is an in-process TTL cache with version-scoped keys.
// The version joins the key as "version:key", so bumping the version for a
// family of keys invalidates them without touching other versions.
//
// Values are held by reference and never copied; callers that mutate a stored
// value see the mutation on the next Get. Expired entries are removed lazily
// on access and in bulk by a background sweep.
type VersionedCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // insertion order, oldest at front

	defaultTTL    time.Duration
	sweepInterval time.Duration

	hits    uint64
	misses  uint64
	sets    uint64
	deletes uint64

	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup

	log *slog.Logger
}

// NewVersioned creates a versioned cache and starts its background sweep.
// A zero defaultTTL or sweepInterval selects the package default; a negative
// sweepInterval disables the sweep entirely (expiry is then lazy only).
// Callers own the lifecycle and must Close the cache on shutdown.
func NewVersioned(defaultTTL, sweepInterval time.Duration) *VersionedCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	if sweepInterval == 0 {
		sweepInterval = DefaultSweepInterval
	}

	c := &VersionedCache{
		entries:       make(map[string]*list.Element),
		order:         list.New(),
		defaultTTL:    defaultTTL,
		sweepInterval: sweepInterval,
		log:           logger.WithComponent("cache"),
	}

	if sweepInterval > 0 {
		c.stop = make(chan struct{})
		c.wg.Add(1)
		go c.sweepLoop()
	}

	return c
}

// CompositeKey returns the storage key for a key/version pair.
// Versions below 1 are treated as the default version.
func CompositeKey(key string, version int) string {
	if version < 1 {
		version = DefaultVersion
	}
	return strconv.Itoa(version) + ":" + key
}

// Set stores value under key for the given version. A zero or negative TTL
// uses the default. Overwriting an existing entry keeps its position in
// insertion order. Returns false only when the cache is closed.
func (c *VersionedCache) Set(key string, value any, ttl time.Duration, version int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(key, value, ttl, version)
}

func (c *VersionedCache) setLocked(key string, value any, ttl time.Duration, version int) bool {
	if c.closed {
		c.log.Debug("set on closed cache ignored", "key", key)
		return false
	}
	if version < 1 {
		version = DefaultVersion
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	ck := CompositeKey(key, version)
	now := time.Now()

	if el, ok := c.entries[ck]; ok {
		e := el.Value.(*versionedEntry)
		e.value = value
		e.createdAt = now
		e.ttl = ttl
	} else {
		e := &versionedEntry{
			key:       ck,
			version:   version,
			value:     value,
			createdAt: now,
			ttl:       ttl,
		}
		c.entries[ck] = c.order.PushBack(e)
	}

	c.sets++
	return true
}

// Get retrieves the value stored under key for the given version.
// An expired entry is removed on access and reported as a miss.
func (c *VersionedCache) Get(key string, version int) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, false
	}

	ck := CompositeKey(key, version)
	el, ok := c.entries[ck]
	if !ok {
		c.misses++
		return nil, false
	}

	e := el.Value.(*versionedEntry)
	if e.expired(time.Now()) {
		// Lazy expiry is not a delete; only explicit removal moves that counter.
		c.removeLocked(ck, el)
		c.misses++
		return nil, false
	}

	c.hits++
	return e.value, true
}

// Has reports whether a live entry exists for key without moving the
// hit/miss counters. An expired entry is removed on the way.
func (c *VersionedCache) Has(key string, version int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	ck := CompositeKey(key, version)
	el, ok := c.entries[ck]
	if !ok {
		return false
	}
	if e := el.Value.(*versionedEntry); e.expired(time.Now()) {
		c.removeLocked(ck, el)
		return false
	}
	return true
}

// Delete removes the entry for key, reporting whether it existed.
func (c *VersionedCache) Delete(key string, version int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	ck := CompositeKey(key, version)
	el, ok := c.entries[ck]
	if !ok {
		return false
	}
	c.removeLocked(ck, el)
	c.deletes++
	return true
}

// DeleteMany removes every listed key for the given version and returns how
// many entries were actually present.
func (c *VersionedCache) DeleteMany(keys []string, version int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0
	}

	removed := 0
	for _, key := range keys {
		ck := CompositeKey(key, version)
		if el, ok := c.entries[ck]; ok {
			c.removeLocked(ck, el)
			c.deletes++
			removed++
		}
	}
	return removed
}

// Add stores value only if the key is absent, returning whether it stored.
// Presence is raw map membership: an expired entry that has not yet been
// swept still blocks the add.
func (c *VersionedCache) Add(key string, value any, ttl time.Duration, version int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	if _, ok := c.entries[CompositeKey(key, version)]; ok {
		return false
	}
	return c.setLocked(key, value, ttl, version)
}

// Pop retrieves and removes the entry for key in one step. A live entry
// counts as a hit and a delete; an absent or expired one counts as a miss.
func (c *VersionedCache) Pop(key string, version int) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, false
	}

	ck := CompositeKey(key, version)
	el, ok := c.entries[ck]
	if !ok {
		c.misses++
		return nil, false
	}

	e := el.Value.(*versionedEntry)
	c.removeLocked(ck, el)
	if e.expired(time.Now()) {
		c.misses++
		return nil, false
	}

	c.hits++
	c.deletes++
	return e.value, true
}

// GetOrSet returns the cached value for key, or runs fetch and caches its
// result. The fetch runs outside the cache lock, so concurrent misses for the
// same key may each fetch; last write wins. A fetch error propagates to the
// caller and caches nothing. A cached nil is indistinguishable from a miss
// and triggers a refetch.
func (c *VersionedCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, version int, fetch FetchFunc) (any, error) {
	if v, ok := c.Get(key, version); ok && v != nil {
		return v, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.Set(key, v, ttl, version)
	return v, nil
}

// Incr adds delta to the integer stored under key, treating an absent or
// expired entry as zero, and stores the result with the default TTL. The
// stored value must be an integer type or an integral float64; anything else
// returns (0, false) and leaves the entry untouched. Incr moves the sets
// counter but never hits or misses.
func (c *VersionedCache) Incr(key string, delta int64, version int) (int64, bool) {
	return c.addDelta(key, delta, version)
}

// Decr subtracts delta from the integer stored under key. See Incr.
func (c *VersionedCache) Decr(key string, delta int64, version int) (int64, bool) {
	return c.addDelta(key, -delta, version)
}

func (c *VersionedCache) addDelta(key string, delta int64, version int) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, false
	}

	ck := CompositeKey(key, version)
	current := int64(0)
	if el, ok := c.entries[ck]; ok {
		e := el.Value.(*versionedEntry)
		if e.expired(time.Now()) {
			c.removeLocked(ck, el)
		} else {
			n, ok := toInt64(e.value)
			if !ok {
				c.log.Warn("counter operation on non-numeric value", "key", ck)
				return 0, false
			}
			current = n
		}
	}

	next := current + delta
	c.setLocked(key, next, c.defaultTTL, version)
	return next, true
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		// JSON numbers decode as float64; accept only whole values.
		if n == math.Trunc(n) {
			return int64(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// Touch resets an entry's clock to now with a new TTL, reporting whether the
// key existed. Membership is raw, so an expired-but-unswept entry is revived.
func (c *VersionedCache) Touch(key string, ttl time.Duration, version int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	el, ok := c.entries[CompositeKey(key, version)]
	if !ok {
		return false
	}
	e := el.Value.(*versionedEntry)
	e.createdAt = time.Now()
	e.ttl = ttl
	return true
}

// Keys returns composite keys in insertion order. An empty pattern returns
// every key; otherwise the pattern is a glob where * matches any run of
// characters, searched anywhere in the composite key (so "user:*" finds
// "1:user:1"). Expired-but-unswept entries are included.
func (c *VersionedCache) Keys(pattern string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	if pattern == "" {
		for el := c.order.Front(); el != nil; el = el.Next() {
			keys = append(keys, el.Value.(*versionedEntry).key)
		}
		return keys
	}

	re, err := compilePattern(pattern)
	if err != nil {
		c.log.Error("invalid key pattern", "pattern", pattern, "error", err)
		return keys
	}
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*versionedEntry)
		if re.MatchString(e.key) {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// DeleteMatching removes every entry whose composite key matches the glob
// pattern and returns the number removed. Patterns match against composite
// keys, so "user:*" clears the key family across versions while "2:user:*"
// pins one version.
func (c *VersionedCache) DeleteMatching(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || pattern == "" {
		return 0
	}

	re, err := compilePattern(pattern)
	if err != nil {
		c.log.Error("invalid key pattern", "pattern", pattern, "error", err)
		return 0
	}

	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*versionedEntry)
		if re.MatchString(e.key) {
			c.removeLocked(e.key, el)
			c.deletes++
			removed++
		}
		el = next
	}
	return removed
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*"))
}

// Stats returns a snapshot of the cache counters. The memory figure is a
// heuristic: 2 bytes per key and serialized value byte plus a fixed overhead
// per entry. Values that fail to serialize count zero bytes.
func (c *VersionedCache) Stats() VersionedStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statsLocked()
}

func (c *VersionedCache) statsLocked() VersionedStats {
	rate := 0.0
	if total := c.hits + c.misses; total > 0 {
		rate = math.Round(float64(c.hits)/float64(total)*100*100) / 100
	}

	var mem int64
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*versionedEntry)
		mem += int64(2*len(e.key)) + int64(2*c.valueSize(e.value)) + entryOverheadBytes
	}

	return VersionedStats{
		Hits:        c.hits,
		Misses:      c.misses,
		Sets:        c.sets,
		Deletes:     c.deletes,
		HitRate:     rate,
		CacheSize:   len(c.entries),
		MemoryUsage: mem,
	}
}

func (c *VersionedCache) valueSize(v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("value size estimate failed", "error", err)
		return 0
	}
	return len(b)
}

// Info returns the counter snapshot plus up to 100 entries in insertion
// order, each with its composite key, age and TTL in milliseconds, version
// and estimated size.
func (c *VersionedCache) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	entries := make([]EntryInfo, 0, min(maxInfoEntries, len(c.entries)))
	for el := c.order.Front(); el != nil && len(entries) < maxInfoEntries; el = el.Next() {
		e := el.Value.(*versionedEntry)
		entries = append(entries, EntryInfo{
			Key:     e.key,
			Age:     now.Sub(e.createdAt).Milliseconds(),
			TTL:     e.ttl.Milliseconds(),
			Version: e.version,
			Size:    c.valueSize(e.value),
		})
	}

	return Info{
		Stats:        c.statsLocked(),
		Entries:      entries,
		TotalEntries: len(c.entries),
	}
}

// Clear removes all entries and resets the counters.
func (c *VersionedCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *VersionedCache) clearLocked() {
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.hits = 0
	c.misses = 0
	c.sets = 0
	c.deletes = 0
}

// Sweep removes every expired entry and returns how many were evicted.
// The background loop calls this on its interval; it is exported so tests
// and the admin surface can force a pass.
func (c *VersionedCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*versionedEntry)
		if e.expired(now) {
			c.removeLocked(e.key, el)
			removed++
		}
		el = next
	}

	if removed > 0 {
		metrics.CacheSweepEvictions.Add(float64(removed))
	}
	return removed
}

func (c *VersionedCache) sweepLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if evicted := c.Sweep(); evicted > 0 {
				c.log.Debug("swept expired cache entries", "evicted", evicted)
			}
		}
	}
}

// Close stops the background sweep and empties the cache. It is idempotent.
// After Close, writes return false and reads miss without moving counters.
func (c *VersionedCache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	if c.stop != nil {
		close(c.stop)
		c.wg.Wait()
	}

	c.mu.Lock()
	c.clearLocked()
	c.mu.Unlock()

	c.log.Debug("versioned cache closed")
}

// removeLocked drops an entry from both indexes. Callers hold the lock and
// decide whether the removal counts as a delete.
func (c *VersionedCache) removeLocked(ck string, el *list.Element) {
	delete(c.entries, ck)
	c.order.Remove(el)
}
