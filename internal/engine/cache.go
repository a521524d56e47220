package engine

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	response *Response
	storedAt time.Time
}

// queryCache holds recent responses keyed by the request. Entries expire
// after ttl; when the cache is full the stalest entry is evicted. The
// indexer invalidates the whole cache on every mutation, so a hit never
// serves results from before the last index change.
type queryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	size    int
}

func newQueryCache(ttl time.Duration, size int) *queryCache {
	if size <= 0 {
		size = 128
	}
	return &queryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		size:    size,
	}
}

func cacheKey(req Request) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%d|%d",
		req.Query, req.Intent, req.SearchType, req.Scope, strings.Join(req.Channels, ","), req.Limit, req.MaxDepth)
}

func (c *queryCache) get(req Request) (*Response, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[cacheKey(req)]
	if !ok {
		return nil, false
	}
	if time.Since(entry.storedAt) > c.ttl {
		delete(c.entries, cacheKey(req))
		return nil, false
	}
	return entry.response, true
}

func (c *queryCache) put(req Request, resp *Response) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.size {
		c.evictOldestLocked()
	}
	c.entries[cacheKey(req)] = cacheEntry{response: resp, storedAt: time.Now()}
}

// invalidate drops everything. Called whenever an index replaces or
// removes a file.
func (c *queryCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *queryCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.storedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.storedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
