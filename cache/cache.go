// Package cache provides a small thread-safe generic cache with per-item
// TTLs. The testbed uses it to memoize per-node facts (probe results like
// kernel and architecture) so repeated steps don't re-run the probes.
package cache

import (
	"sync"
	"time"
)

type item[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiration
}

func (it item[V]) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && now.After(it.expiresAt)
}

// Cache is a thread-safe generic key/value cache with TTL support.
// Expired items are dropped lazily on access.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	store      map[K]item[V]
	defaultTTL time.Duration
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithDefaultTTL sets the TTL applied by Set. Zero means items never expire.
func WithDefaultTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.defaultTTL = ttl
	}
}

// New creates a cache with the given options.
func New[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{store: make(map[K]item[V])}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores v under k with the default TTL.
func (c *Cache[K, V]) Set(k K, v V) {
	c.SetWithTTL(k, v, c.defaultTTL)
}

// SetWithTTL stores v under k. A zero ttl means no expiration; a negative
// ttl removes the key.
func (c *Cache[K, V]) SetWithTTL(k K, v V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl < 0 {
		delete(c.store, k)
		return
	}
	it := item[V]{value: v}
	if ttl > 0 {
		it.expiresAt = time.Now().Add(ttl)
	}
	c.store[k] = it
}

// Get returns the value for k if present and not expired.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.store[k]
	if !ok {
		var zero V
		return zero, false
	}
	if it.expired(time.Now()) {
		delete(c.store, k)
		var zero V
		return zero, false
	}
	return it.value, true
}

// GetOrCompute returns the cached value for k, computing and storing it
// (with the default TTL) on a miss. compute runs outside the cache lock,
// so concurrent misses for the same key may each run it; the last result
// wins.
func (c *Cache[K, V]) GetOrCompute(k K, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(k, v)
	return v, nil
}

// Delete removes k.
func (c *Cache[K, V]) Delete(k K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, k)
}

// Len reports the number of stored items, including any not-yet-collected
// expired ones.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.store)
}

// Flush removes everything.
func (c *Cache[K, V]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[K]item[V])
}
