package chatbot

import (
	"container/list"
	"strconv"
	"strings"
	"sync"

	"github.com/korylprince/knowledge-chatbot/api"
)

// QueryCache is an LRU cache of query results bounded by the approximate size of the results
type QueryCache struct {
	mu       sync.Mutex
	maxBytes int
	curBytes int
	cache    map[string]*list.Element
	lru      *list.List
}

type cacheEntry struct {
	key   string
	table *api.Table
	bytes int
}

// NewQueryCache creates a new QueryCache. A maxBytes of 0 disables caching.
func NewQueryCache(maxBytes int) *QueryCache {
	return &QueryCache{
		maxBytes: maxBytes,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func cacheKey(org, query string, limit int) string {
	return org + "\x00" + strings.Join(strings.Fields(query), " ") + "\x00" + strconv.Itoa(limit)
}

func estimateBytes(t *api.Table) int {
	return len(t.Markdown())
}

// Get returns the cached result for the query, or nil
func (c *QueryCache) Get(org, query string, limit int) *api.Table {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[cacheKey(org, query, limit)]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).table
	}
	return nil
}

// Put stores a query result. Results larger than the cache are not stored.
func (c *QueryCache) Put(org, query string, limit int, t *api.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(org, query, limit)
	bytes := estimateBytes(t)
	if bytes > c.maxBytes {
		return
	}

	if elem, ok := c.cache[key]; ok {
		entry := elem.Value.(*cacheEntry)
		c.curBytes += bytes - entry.bytes
		entry.table = t
		entry.bytes = bytes
		c.lru.MoveToFront(elem)
		c.evictIfNeeded(0)
		return
	}

	c.evictIfNeeded(bytes)

	elem := c.lru.PushFront(&cacheEntry{key: key, table: t, bytes: bytes})
	c.cache[key] = elem
	c.curBytes += bytes
}

// Len returns the number of cached results
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *QueryCache) evictIfNeeded(additionalBytes int) {
	for c.curBytes+additionalBytes > c.maxBytes && c.lru.Len() > 0 {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		entry := oldest.Value.(*cacheEntry)
		c.lru.Remove(oldest)
		delete(c.cache, entry.key)
		c.curBytes -= entry.bytes
	}
}
