package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a small in-process key/value cache with TTL eviction and explicit
// invalidation. Write paths that change the underlying data must call
// Invalidate synchronously; readers must not assume results are cache-fresh
// beyond the TTL.
type Cache struct {
	mutex   sync.Mutex
	ttl     time.Duration
	entries map[string]entry
}

func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Lookup returns the cached value for key, or a miss if absent or expired.
func (c *Cache) Lookup(key string) (any, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Store caches value under key for the configured TTL.
func (c *Cache) Store(key string, value any) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
}

// Invalidate drops the entry for key, if any.
func (c *Cache) Invalidate(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, key)
}
