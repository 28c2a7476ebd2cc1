package render

import (
	"sync"
	"time"
)

// ttlCache is a TTL cache bounded by entry count.
type ttlCache[K comparable, V any] struct {
	mu      sync.Mutex
	items   map[K]*cacheItem[V]
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

func newTTLCache[K comparable, V any](ttl time.Duration, maxSize int, now func() time.Time) *ttlCache[K, V] {
	return &ttlCache[K, V]{
		items:   make(map[K]*cacheItem[V]),
		ttl:     ttl,
		maxSize: maxSize,
		now:     now,
	}
}

// Get returns the value for key if present and not expired.
func (c *ttlCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(item.expiresAt) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return item.value, true
}

// Set stores a value, evicting expired items and then the item closest
// to expiry when the cache is full.
func (c *ttlCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.maxSize > 0 && len(c.items) >= c.maxSize {
		c.cleanupLocked()
		if len(c.items) >= c.maxSize {
			c.evictOldestLocked()
		}
	}

	c.items[key] = &cacheItem[V]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Len returns the number of items, including expired ones not yet removed.
func (c *ttlCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// cleanupLocked removes expired items (must hold lock).
func (c *ttlCache[K, V]) cleanupLocked() {
	now := c.now()
	for key, item := range c.items {
		if !now.Before(item.expiresAt) {
			delete(c.items, key)
		}
	}
}

// evictOldestLocked removes the item with the soonest expiration (must hold lock).
func (c *ttlCache[K, V]) evictOldestLocked() {
	var oldestKey K
	var oldestTime time.Time
	first := true

	for key, item := range c.items {
		if first || item.expiresAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.expiresAt
			first = false
		}
	}
	if !first {
		delete(c.items, oldestKey)
	}
}
