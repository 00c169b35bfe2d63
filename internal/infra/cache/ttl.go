// Package cache provides the in-process TTL cache backing the tier config
// store. Each key holds {value, fetchedAt}; a read within ttl of fetchedAt
// returns the cached bytes unchanged even if the backing store moved on, and
// concurrent refreshes are last-writer-wins.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     []byte
	fetchedAt time.Time
}

type TTLCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry

	now func() time.Time // overridable in tests
}

func New(ttl time.Duration) *TTLCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TTLCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached bytes for key if the entry is still within its TTL.
func (c *TTLCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) >= c.ttl {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, stamping it with the current time.
func (c *TTLCache) Set(key string, value []byte) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, fetchedAt: c.now()}
	c.mu.Unlock()
}

// Delete drops the entry for key, forcing the next read through to the store.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
