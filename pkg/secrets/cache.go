package secrets

import (
	"context"
	"sync"
	"time"
)

// entry is either a value or a recorded absence, valid until expires.
type entry[T any] struct {
	value   T
	absent  bool
	expires time.Time
}

// Cache holds resolved secrets for a fixed TTL. Besides values it remembers
// keys the provider reported as missing, so repeated misses for the same key
// are answered locally until the TTL runs out.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a cache whose entries live for ttl.
func NewCache[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		entries: make(map[string]entry[T]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// TTL returns how long entries live.
func (c *Cache[T]) TTL() time.Duration { return c.ttl }

// lookup returns the live entry for key, dropping it when expired.
// c.mu must be held.
func (c *Cache[T]) lookup(key string) (entry[T], bool) {
	e, ok := c.entries[key]
	if !ok {
		return e, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return e, false
	}
	return e, true
}

// Get returns the cached value for key. A recorded absence is a miss.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookup(key)
	if !ok || e.absent {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Absent reports whether key was recorded as missing and that record is live.
func (c *Cache[T]) Absent(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookup(key)
	return ok && e.absent
}

// Put stores value under key, replacing any recorded absence.
func (c *Cache[T]) Put(key string, value T) {
	c.store(key, entry[T]{value: value})
}

// PutAbsent records that key has no value.
func (c *Cache[T]) PutAbsent(key string) {
	c.store(key, entry[T]{absent: true})
}

func (c *Cache[T]) store(key string, e entry[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.expires = c.now().Add(c.ttl)
	c.entries[key] = e
}

// Bust drops key, value or absence, so the next lookup goes to the provider.
func (c *Cache[T]) Bust(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of entries held, expired or not.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep drops expired entries and returns how many were removed.
func (c *Cache[T]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// StartCleaner sweeps every interval until ctx is done.
func (c *Cache[T]) StartCleaner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
