package cache

import (
	"sync"
	"time"
)

type cacheItem[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiration
}

func (item cacheItem[V]) expired(now time.Time) bool {
	return !item.expiresAt.IsZero() && now.After(item.expiresAt)
}

// Cache is a thread-safe, generic cache with TTL support. Capability probes use
// it to avoid re-querying the package database or systemd within one run.
type Cache[K comparable, V any] struct {
	mu         sync.RWMutex
	items      map[K]cacheItem[V]
	defaultTTL time.Duration
}

// Option is a functional option type for Cache configuration.
type Option[K comparable, V any] func(*Cache[K, V])

// WithDefaultTTL sets the default time-to-live for items in the cache.
// Items set without a specific TTL will use this value.
func WithDefaultTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.defaultTTL = ttl
	}
}

// NewCache creates a new Cache instance with optional configurations.
func NewCache[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		items: make(map[K]cacheItem[V]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set adds or updates an item in the cache with the default TTL (if configured).
func (c *Cache[K, V]) Set(k K, v V) {
	c.SetWithTTL(k, v, c.defaultTTL)
}

// SetWithTTL adds or updates an item with a specific TTL. A zero TTL means the
// item never expires; a negative TTL removes the item.
func (c *Cache[K, V]) SetWithTTL(k K, v V, ttl time.Duration) {
	if ttl < 0 {
		c.Delete(k)
		return
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.items[k] = cacheItem[V]{value: v, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Get retrieves an item from the cache. It returns the value and true if the
// item exists and has not expired.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	var zeroV V
	now := time.Now()

	c.mu.RLock()
	item, ok := c.items[k]
	c.mu.RUnlock()
	if !ok {
		return zeroV, false
	}
	if item.expired(now) {
		// Lazy deletion.
		c.mu.Lock()
		if cur, still := c.items[k]; still && cur.expired(time.Now()) {
			delete(c.items, k)
		}
		c.mu.Unlock()
		return zeroV, false
	}
	return item.value, true
}

// GetOrSet returns the existing value for the key if present and not expired.
// Otherwise, it stores and returns the given value (with default TTL).
// The loaded result is true if the value was loaded, false if stored.
func (c *Cache[K, V]) GetOrSet(k K, v V) (V, bool) {
	if existing, found := c.Get(k); found {
		return existing, true
	}
	c.Set(k, v)
	return v, false
}

// Delete removes an item from the cache.
func (c *Cache[K, V]) Delete(k K) {
	c.mu.Lock()
	delete(c.items, k)
	c.mu.Unlock()
}

// DeleteExpired removes all expired items.
func (c *Cache[K, V]) DeleteExpired() {
	now := time.Now()
	c.mu.Lock()
	for k, item := range c.items {
		if item.expired(now) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of unexpired items.
func (c *Cache[K, V]) Len() int {
	now := time.Now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, item := range c.items {
		if !item.expired(now) {
			n++
		}
	}
	return n
}

// Flush removes every item.
func (c *Cache[K, V]) Flush() {
	c.mu.Lock()
	c.items = make(map[K]cacheItem[V])
	c.mu.Unlock()
}
