package cache

import (
	"container/list"
	"sync"
	"time"
)

// CacheStats provides cache performance metrics.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	ItemCount int64
	Capacity  int64
	HitRate   float64
}

// LengthCache is a fixed-capacity LRU of speech durations in seconds.
type LengthCache struct {
	capacity int

	// LRU implementation
	items    map[string]*list.Element
	eviction *list.List

	// Synchronization
	mu sync.Mutex

	// Metrics
	stats CacheStats
}

type lengthEntry struct {
	key       string
	seconds   float64
	timestamp time.Time
}

// NewLengthCache creates a cache holding at most capacity durations.
// A capacity below one yields a cache that stores nothing.
func NewLengthCache(capacity int) *LengthCache {
	return &LengthCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		stats:    CacheStats{Capacity: int64(capacity)},
	}
}

// Get returns the cached duration for key.
func (c *LengthCache) Get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return 0, false
	}

	// Move to front (most recently used)
	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*lengthEntry).seconds, true
}

// Put stores a duration, evicting the least recently used entry when full.
func (c *LengthCache) Put(key string, seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capacity < 1 {
		return
	}

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		entry := elem.Value.(*lengthEntry)
		entry.seconds = seconds
		entry.timestamp = time.Now()
		return
	}

	for c.eviction.Len() >= c.capacity {
		c.evictOldest()
	}

	elem := c.eviction.PushFront(&lengthEntry{key: key, seconds: seconds, timestamp: time.Now()})
	c.items[key] = elem
}

// Len returns the number of cached durations.
func (c *LengthCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// Clear removes all entries.
func (c *LengthCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.eviction.Init()
}

// Resize changes the capacity, evicting as needed.
func (c *LengthCache) Resize(capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.capacity = capacity
	c.stats.Capacity = int64(capacity)
	for c.eviction.Len() > 0 && c.eviction.Len() > capacity {
		c.evictOldest()
	}
}

// Prune removes entries older than maxAge and returns how many went.
func (c *LengthCache) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	pruned := 0

	// Start from the back (oldest entries)
	elem := c.eviction.Back()
	for elem != nil {
		prev := elem.Prev()
		if elem.Value.(*lengthEntry).timestamp.Before(cutoff) {
			c.removeElement(elem)
			pruned++
		}
		elem = prev
	}
	return pruned
}

// Stats returns cache statistics.
func (c *LengthCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.ItemCount = int64(len(c.items))
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// evictOldest removes the least recently used item (must be called with lock held).
func (c *LengthCache) evictOldest() {
	if elem := c.eviction.Back(); elem != nil {
		c.removeElement(elem)
		c.stats.Evictions++
	}
}

// removeElement removes an element from the cache (must be called with lock held).
func (c *LengthCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*lengthEntry).key)
}
