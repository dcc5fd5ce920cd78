package rules

import "sync"

type cacheEntry struct {
	predicate *Predicate
	err       error
}

// predicateCache memoizes compilation by rule text. An edited rule has new
// text and therefore a new key, so entries never go stale. When full the
// whole map is dropped; rule sets are small and recompiling is cheap.
type predicateCache struct {
	mu      sync.RWMutex
	limit   int
	entries map[string]cacheEntry
}

func newPredicateCache(limit int) *predicateCache {
	return &predicateCache{limit: limit, entries: make(map[string]cacheEntry)}
}

func (c *predicateCache) get(rule string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[rule]
	return e, ok
}

func (c *predicateCache) put(rule string, p *Predicate, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.limit {
		c.entries = make(map[string]cacheEntry)
	}
	c.entries[rule] = cacheEntry{predicate: p, err: err}
}

func (c *predicateCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
