package composer

import (
	"container/list"
	"sync"
	"time"
)

// Cache keeps the feeds of recently seen dashboard slots. Feeds idle for longer
// than the idle TTL are dropped by EvictIdle, and the least recently used feed
// is dropped when the cache is full.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
	idleTTL    time.Duration
}

type cacheEntry struct {
	key      string
	feed     *Feed
	lastSeen time.Time
}

func NewCache(maxEntries int, idleTTL time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}

	return &Cache{
		entries:    make(map[string]*list.Element, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
		idleTTL:    idleTTL,
	}
}

func (c *Cache) Get(key string, now time.Time) (*Feed, bool) {
	if key == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.getLocked(key, now)
}

// GetOrCreate returns the feed of key, creating it with create when missing.
// The boolean is true when the feed was created.
func (c *Cache) GetOrCreate(key string, now time.Time, create func() *Feed) (*Feed, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if feed, ok := c.getLocked(key, now); ok {
		return feed, false
	}

	feed := create()
	c.entries[key] = c.order.PushFront(&cacheEntry{
		key:      key,
		feed:     feed,
		lastSeen: now,
	})
	c.enforceSizeLimitLocked()

	return feed, true
}

func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeElement(elem)
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// EvictIdle drops feeds not seen within the idle TTL and returns how many were dropped.
func (c *Cache) EvictIdle(now time.Time) int {
	if c.idleTTL <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()

		entry, ok := elem.Value.(*cacheEntry)
		if ok && c.idleLocked(entry, now) {
			c.removeElement(elem)
			evicted++
		}

		elem = prev
	}

	return evicted
}

func (c *Cache) getLocked(key string, now time.Time) (*Feed, bool) {
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	entry, ok := elem.Value.(*cacheEntry)
	if !ok {
		return nil, false
	}

	if c.idleLocked(entry, now) {
		c.removeElement(elem)

		return nil, false
	}

	entry.lastSeen = now
	c.order.MoveToFront(elem)

	return entry.feed, true
}

func (c *Cache) idleLocked(entry *cacheEntry, now time.Time) bool {
	if c.idleTTL <= 0 {
		return false
	}

	return now.Sub(entry.lastSeen) > c.idleTTL
}

func (c *Cache) enforceSizeLimitLocked() {
	for len(c.entries) > c.maxEntries {
		elem := c.order.Back()
		if elem == nil {
			return
		}
		c.removeElement(elem)
	}
}

func (c *Cache) removeElement(elem *list.Element) {
	entry, ok := elem.Value.(*cacheEntry)
	if !ok {
		return
	}

	delete(c.entries, entry.key)
	c.order.Remove(elem)
}
