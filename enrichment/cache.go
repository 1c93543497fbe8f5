package enrichment

import (
	"sync"
	"time"
)

// entityCache memoises GLEIF lookups so repeated snapshot builds in one
// process don't re-query entities already resolved.
type entityCache struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[string]entityEntry

	hits   int64
	misses int64
}

type entityEntry struct {
	entity Entity
	stored time.Time
}

func newEntityCache(ttl time.Duration) *entityCache {
	return &entityCache{
		ttl:  ttl,
		data: make(map[string]entityEntry),
	}
}

func (c *entityCache) get(lei string) (Entity, bool) {
	c.mu.RLock()
	entry, ok := c.data[lei]
	c.mu.RUnlock()
	if !ok || (c.ttl > 0 && time.Since(entry.stored) > c.ttl) {
		c.mu.Lock()
		c.misses++
		if ok {
			delete(c.data, lei) // expired
		}
		c.mu.Unlock()
		return Entity{}, false
	}
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return entry.entity, true
}

func (c *entityCache) put(e Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[e.LEI] = entityEntry{entity: e, stored: time.Now()}
}

// stats returns cache hits and misses, for logging.
func (c *entityCache) stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
