package gateway

import (
	"container/list"
	"context"
	"sync"
)

// MemoryCache is an in-process LRU statute cache. A capacity of 0 means
// unbounded. Pinned entries are skipped during eviction; an over-capacity
// cache whose tail entries are all pinned temporarily exceeds its capacity
// rather than dropping an entry a caller still depends on.
type MemoryCache struct {
	capacity int

	mu      sync.Mutex
	order   *list.List // front = most recently used, holds *Entry
	entries map[string]*list.Element
	pins    map[string]int
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a [MemoryCache] with the given capacity.
func NewMemoryCache(capacity int) *MemoryCache {
	return &MemoryCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
		pins:     make(map[string]int),
	}
}

// Get implements [Cache]. The returned entry is a copy; mutating it does not
// affect the cached value.
func (c *MemoryCache) Get(_ context.Context, id string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	c.order.MoveToFront(el)
	entry := *el.Value.(*Entry)
	return &entry, nil
}

// Put implements [Cache].
func (c *MemoryCache) Put(_ context.Context, entry *Entry) error {
	stored := *entry

	c.mu.Lock()
	defer c.mu.Unlock()

	id := stored.Record.NormalizedID
	if el, ok := c.entries[id]; ok {
		el.Value = &stored
		c.order.MoveToFront(el)
		return nil
	}
	c.entries[id] = c.order.PushFront(&stored)
	c.evictLocked()
	return nil
}

// Pin implements [Cache].
func (c *MemoryCache) Pin(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pins[id]++
}

// Unpin implements [Cache].
func (c *MemoryCache) Unpin(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pins[id] <= 1 {
		delete(c.pins, id)
		c.evictLocked()
		return
	}
	c.pins[id]--
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// evictLocked removes least-recently-used unpinned entries until the cache is
// within capacity. Caller must hold c.mu.
func (c *MemoryCache) evictLocked() {
	if c.capacity <= 0 {
		return
	}
	// The front element is never evicted; it was touched by the operation
	// that triggered this eviction.
	for el := c.order.Back(); el != nil && el != c.order.Front() && c.order.Len() > c.capacity; {
		prev := el.Prev()
		id := el.Value.(*Entry).Record.NormalizedID
		if c.pins[id] == 0 {
			c.order.Remove(el)
			delete(c.entries, id)
		}
		el = prev
	}
}
