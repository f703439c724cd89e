package exposure

import (
	"context"
	"strings"
	"sync"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
	"github.com/couchcryptid/cyclone-impact-service/internal/observability"
)

// CachedSource wraps an ExposureSource with an in-memory LRU cache keyed by
// country. Country tables are large, so the cache holds few entries.
type CachedSource struct {
	inner   domain.ExposureSource
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around an exposure source.
func NewCachedSource(inner domain.ExposureSource, maxEntries int, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedSource) Exposure(ctx context.Context, country string) ([]domain.ExposurePoint, error) {
	key := strings.ToUpper(country)
	if points, ok := c.cache.get(key); ok {
		c.metrics.ExposureCache.WithLabelValues("memory", "hit").Inc()
		return points, nil
	}
	c.metrics.ExposureCache.WithLabelValues("memory", "miss").Inc()

	points, err := c.inner.Exposure(ctx, country)
	if err != nil {
		return nil, err
	}
	// Empty tables are not cached so a file published later is picked up.
	if len(points) > 0 {
		c.cache.put(key, points)
	}
	return points, nil
}

// lruCache is a simple thread-safe LRU cache of exposure tables. Callers
// must not mutate returned slices.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []domain.ExposurePoint
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]domain.ExposurePoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []domain.ExposurePoint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
