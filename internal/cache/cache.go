// Package cache implements the content-keyed classifier cache (C3): a
// fingerprint -> (result, insertedAt) map with a TTL, serving concurrent
// readers lock-free in spirit (a single RWMutex read lock) while
// serializing writes per key via a small stripe of mutexes, following the
// teacher's pkg/queue/pool.go registry-map-plus-mutex shape.
package cache

import (
	"sync"
	"time"
)

const stripeCount = 32

type entry struct {
	value      any
	insertedAt time.Time
}

// Cache is a TTL-bounded map keyed by content fingerprint.
type Cache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]entry

	writeStripes [stripeCount]sync.Mutex

	hitsMu sync.Mutex
	hits   int64
	misses int64

	now func() time.Time
}

// New builds a Cache with the given TTL.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached value for fingerprint if present and not
// expired.
func (c *Cache) Get(fingerprint string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[fingerprint]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.insertedAt) >= c.ttl {
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	return e.value, true
}

// Set stores value under fingerprint, serializing concurrent writers to
// the same key via a fixed stripe of mutexes keyed by a cheap hash of the
// fingerprint.
func (c *Cache) Set(fingerprint string, value any) {
	stripe := &c.writeStripes[stripeIndex(fingerprint)]
	stripe.Lock()
	defer stripe.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = entry{value: value, insertedAt: c.now()}
}

func stripeIndex(key string) int {
	var h uint32
	for i := 0; i < len(key); i++ {
		h = h*31 + uint32(key[i])
	}
	return int(h % stripeCount)
}

func (c *Cache) recordHit() {
	c.hitsMu.Lock()
	c.hits++
	c.hitsMu.Unlock()
}

func (c *Cache) recordMiss() {
	c.hitsMu.Lock()
	c.misses++
	c.hitsMu.Unlock()
}

// Stats reports cumulative hit/miss counts and current size.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

// Stats returns a snapshot of the cache's hit/miss counters and size.
func (c *Cache) Stats() Stats {
	c.hitsMu.Lock()
	hits, misses := c.hits, c.misses
	c.hitsMu.Unlock()

	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()

	return Stats{Hits: hits, Misses: misses, Size: size}
}
