package storage

import (
	"container/list"
	"sync"
	"time"
)

// cacheEntry is a cached item with expiration
type cacheEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// LRUCache is a thread-safe LRU cache with TTL support
type LRUCache[V any] struct {
	mu           sync.RWMutex
	capacity     int
	ttl          time.Duration
	items        map[string]*list.Element
	evictionList *list.List
}

// NewLRUCache creates a new LRU cache
func NewLRUCache[V any](capacity int, ttl time.Duration) *LRUCache[V] {
	return &LRUCache[V]{
		capacity:     capacity,
		ttl:          ttl,
		items:        make(map[string]*list.Element, capacity),
		evictionList: list.New(),
	}
}

// Get retrieves an item from the cache
func (c *LRUCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	if elem, found := c.items[key]; found {
		entry := elem.Value.(*cacheEntry[V])

		if time.Now().After(entry.expiresAt) {
			c.removeElement(elem)
			return zero, false
		}

		c.evictionList.MoveToFront(elem)
		return entry.value, true
	}

	return zero, false
}

// Set adds or updates an item in the cache
func (c *LRUCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if elem, found := c.items[key]; found {
		c.evictionList.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry[V])
		entry.value = value
		entry.expiresAt = expiresAt
		return
	}

	elem := c.evictionList.PushFront(&cacheEntry[V]{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	})
	c.items[key] = elem

	if c.evictionList.Len() > c.capacity {
		c.removeOldest()
	}
}

// Delete removes an item from the cache
func (c *LRUCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.items[key]; found {
		c.removeElement(elem)
	}
}

// Clear removes all items from the cache
func (c *LRUCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.capacity)
	c.evictionList.Init()
}

// Len returns the current number of items in the cache
func (c *LRUCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.evictionList.Len()
}

func (c *LRUCache[V]) removeOldest() {
	elem := c.evictionList.Back()
	if elem != nil {
		c.removeElement(elem)
	}
}

func (c *LRUCache[V]) removeElement(elem *list.Element) {
	c.evictionList.Remove(elem)
	entry := elem.Value.(*cacheEntry[V])
	delete(c.items, entry.key)
}

// CleanupExpired removes all expired items (should be called periodically)
func (c *LRUCache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0

	var next *list.Element
	for elem := c.evictionList.Back(); elem != nil; elem = next {
		next = elem.Prev()
		entry := elem.Value.(*cacheEntry[V])

		if now.After(entry.expiresAt) {
			c.removeElement(elem)
			removed++
		}
	}

	return removed
}

// CacheStats holds cache statistics
type CacheStats struct {
	Capacity int
	Size     int
	TTL      time.Duration
}

// GetStats returns current cache statistics
func (c *LRUCache[V]) GetStats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Capacity: c.capacity,
		Size:     c.evictionList.Len(),
		TTL:      c.ttl,
	}
}
