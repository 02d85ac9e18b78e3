// Package extdata fetches market price, weather and government scheme
// data from upstream providers, caching responses and degrading to
// sample payloads when a provider is unavailable.
package extdata

import (
	"sync"
	"time"
)

// DefaultTTL is how long a cached provider response stays valid.
const DefaultTTL = 30 * time.Minute

type cacheEntry struct {
	payload   any
	fetchedAt time.Time
}

// Cache is a process-wide, time-expiring store keyed by request
// signature. Entries older than the TTL are treated as absent.
//
// Concurrent misses on the same key may each invoke fetch; there is no
// in-flight de-duplication. Per-key concurrency is low enough here
// that the duplicate upstream call is acceptable.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// GetOrFetch returns the cached payload if present and younger than
// the TTL, otherwise invokes fetch and stores the result. A fetch
// error is returned without caching anything, so the next caller
// retries upstream.
func (c *Cache) GetOrFetch(key string, fetch func() (any, error)) (any, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(e.fetchedAt) < c.ttl {
		return e.payload, nil
	}

	payload, err := fetch()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{payload: payload, fetchedAt: c.now()}
	c.mu.Unlock()
	return payload, nil
}

// Clear empties all entries unconditionally.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len reports the number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
