// Package forecast holds the mesh-keyed cache collaborator that sits
// between this engine and the external weather service. The engine
// never fetches or interprets weather data; it only provides the
// expiring store that callers key by mesh code.
package forecast

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/skyfence-jp/skyfence/internal/mesh"
)

// Cache is a concurrent-safe LRU cache of opaque forecast payloads
// keyed by mesh code, with TTL expiration checked on read.
type Cache struct {
	mu         sync.RWMutex
	entries    map[mesh.Code]*cacheEntry
	order      []mesh.Code // LRU order: front=oldest, back=newest
	maxEntries int
	ttl        time.Duration
	hits       atomic.Int64
	misses     atomic.Int64
}

type cacheEntry struct {
	data      []byte
	createdAt time.Time
}

// Stats contains cache performance statistics.
type Stats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewCache creates a Cache with the given capacity and TTL.
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	return &Cache{
		entries:    make(map[mesh.Code]*cacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get retrieves a cached payload. Returns nil on miss or expiration.
func (c *Cache) Get(code mesh.Code) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[code]
	if !ok {
		c.misses.Add(1)
		return nil
	}

	// Check TTL.
	if time.Since(entry.createdAt) > c.ttl {
		delete(c.entries, code)
		c.removeFromOrder(code)
		c.misses.Add(1)
		return nil
	}

	// Move to back (most recently used).
	c.removeFromOrder(code)
	c.order = append(c.order, code)
	c.hits.Add(1)
	return entry.data
}

// Put stores a payload, evicting the oldest entry if at capacity.
func (c *Cache) Put(code mesh.Code, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[code]; ok {
		c.entries[code] = &cacheEntry{data: data, createdAt: time.Now()}
		c.removeFromOrder(code)
		c.order = append(c.order, code)
		return
	}

	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[code] = &cacheEntry{data: data, createdAt: time.Now()}
	c.order = append(c.order, code)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	var rate float64
	if hits+misses > 0 {
		rate = float64(hits) / float64(hits+misses)
	}
	return Stats{
		Entries:    len(c.entries),
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    rate,
	}
}

func (c *Cache) removeFromOrder(code mesh.Code) {
	for i, k := range c.order {
		if k == code {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
