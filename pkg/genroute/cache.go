package genroute

import (
	"sync"
	"time"
)

// ResultCache maps a request fingerprint to a previously computed result
// so identical requests never pay a provider twice.
type ResultCache interface {
	// Get retrieves a cached result.
	// Returns the result and true if found, nil and false otherwise.
	Get(fingerprint string) (*Result, bool)

	// Put stores a result under the fingerprint.
	Put(fingerprint string, res *Result)

	// Clear removes all entries.
	Clear()

	// Stats returns cache statistics.
	Stats() CacheStats
}

// CacheStats holds cache performance statistics.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// NoopCache is a cache implementation that does nothing.
// Used when caching is disabled.
type NoopCache struct{}

// NewNoopCache creates a new no-op cache.
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (c *NoopCache) Get(_ string) (*Result, bool) { return nil, false }
func (c *NoopCache) Put(_ string, _ *Result)      {}
func (c *NoopCache) Clear()                       {}
func (c *NoopCache) Stats() CacheStats            { return CacheStats{} }

// resultEntry wraps a cached result with expiration and access time for LRU.
type resultEntry struct {
	value      *Result
	expiration time.Time // zero means no expiry
	accessTime time.Time
	sequence   int64 // tiebreak when access times are equal
}

func (e *resultEntry) isExpired() bool {
	return !e.expiration.IsZero() && time.Now().After(e.expiration)
}

// LRUResultCache implements ResultCache with a size bound and optional TTL.
// Image and video payload references can be large, so the size bound is the
// primary safety valve; TTL is off by default.
type LRUResultCache struct {
	entries    map[string]*resultEntry
	maxEntries int
	ttl        time.Duration
	mu         sync.RWMutex
	hits       int64
	misses     int64
	evictions  int64
	sequence   int64
}

// NewLRUResultCache creates an LRU cache holding at most maxEntries results.
// ttl of 0 disables expiry.
func NewLRUResultCache(maxEntries int, ttl time.Duration) *LRUResultCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &LRUResultCache{
		entries:    make(map[string]*resultEntry, maxEntries),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

func (c *LRUResultCache) Get(fingerprint string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[fingerprint]
	if !exists {
		c.misses++
		return nil, false
	}
	if entry.isExpired() {
		delete(c.entries, fingerprint)
		c.misses++
		return nil, false
	}

	entry.accessTime = time.Now()
	c.hits++
	// Return a copy to prevent external modifications
	return entry.value.clone(), true
}

func (c *LRUResultCache) Put(fingerprint string, res *Result) {
	if res == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	_, exists := c.entries[fingerprint]

	// Evict if at capacity and entry doesn't exist
	if len(c.entries) >= c.maxEntries && !exists {
		var oldestKey string
		var oldestTime time.Time
		var oldestSeq int64
		first := true
		for key, entry := range c.entries {
			if first || entry.accessTime.Before(oldestTime) ||
				(entry.accessTime.Equal(oldestTime) && entry.sequence < oldestSeq) {
				oldestKey = key
				oldestTime = entry.accessTime
				oldestSeq = entry.sequence
				first = false
			}
		}
		if oldestKey != "" {
			delete(c.entries, oldestKey)
			c.evictions++
		}
	}

	var expiration time.Time
	if c.ttl > 0 {
		expiration = now.Add(c.ttl)
	}

	seq := c.sequence
	c.sequence++
	c.entries[fingerprint] = &resultEntry{
		value:      res.clone(),
		expiration: expiration,
		accessTime: now,
		sequence:   seq,
	}
}

func (c *LRUResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*resultEntry, c.maxEntries)
}

func (c *LRUResultCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
	}
}
