// Package cache holds recently fetched API responses for a single client.
//
// Entries do not carry a ttl. The caller supplies the ttl on every read, so the same entry can
// be fresh for one caller and stale for another. Memory is bounded two ways: a maximum entry
// count (oldest write evicted first) and a maximum age enforced by Sweep and by Set. The age
// limit is raised to the longest ttl any reader has asked for, so a sweep never drops an entry
// a reader would still accept.
package cache

import (
	"bytes"
	"container/list"
	"sync"
	"time"
)

const (
	DefaultMaxEntries = 1024
	DefaultMaxAge     = 10 * time.Minute
)

type Config struct {
	MaxEntries int           // defaults to DefaultMaxEntries
	MaxAge     time.Duration // defaults to DefaultMaxAge
	Now        func() time.Time
}

type entry struct {
	key      string
	value    []byte
	storedAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	maxAge     time.Duration
	longestTTL time.Duration
	now        func() time.Time

	items map[string]*list.Element
	ll    *list.List // front = most recently written
}

func New(cfg Config) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache{
		maxEntries: cfg.MaxEntries,
		maxAge:     cfg.MaxAge,
		now:        cfg.Now,
		items:      make(map[string]*list.Element),
		ll:         list.New(),
	}
}

// Get returns a copy of the value stored under key if it was written less than ttl ago.
// An entry that is too old for this ttl is evicted.
func (c *Cache) Get(key string, ttl time.Duration) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl > c.longestTTL {
		c.longestTTL = ttl
	}

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := elem.Value.(*entry)
	if c.now().Sub(e.storedAt) >= ttl {
		c.removeElement(elem)
		return nil, false
	}
	return bytes.Clone(e.value), true
}

// Set stores a copy of value under key and stamps it with the current time.
func (c *Cache) Set(key string, value []byte) {
	value = bytes.Clone(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry)
		e.value = value
		e.storedAt = now
		c.ll.MoveToFront(elem)
	} else {
		c.items[key] = c.ll.PushFront(&entry{key: key, value: value, storedAt: now})
	}

	c.sweepLocked(now)
	for c.ll.Len() > c.maxEntries {
		c.removeElement(c.ll.Back())
	}
}

// StoredAt reports when key was last written.
func (c *Cache) StoredAt(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return time.Time{}, false
	}
	return elem.Value.(*entry).storedAt, true
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Sweep evicts every entry older than both the configured max age and the longest ttl seen by Get.
// It returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.ll.Init()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// the list is ordered by write time so the scan stops at the first entry that is young enough
func (c *Cache) sweepLocked(now time.Time) int {
	limit := max(c.maxAge, c.longestTTL)
	removed := 0
	for elem := c.ll.Back(); elem != nil; {
		e := elem.Value.(*entry)
		if now.Sub(e.storedAt) < limit {
			break
		}
		prev := elem.Prev()
		c.removeElement(elem)
		removed++
		elem = prev
	}
	return removed
}

func (c *Cache) removeElement(elem *list.Element) {
	c.ll.Remove(elem)
	delete(c.items, elem.Value.(*entry).key)
}
