// Package reccache is the short-TTL recommendation response cache of
// spec.md §4.9 (component C9): LRU-bounded at N_cache, keyed by
// hash(session, filters, count, history_length), with hit/miss counters
// and a per-session invalidation hook for the feedback processor.
//
// The doubly-linked-list-plus-map LRU structure is adapted from the
// cache/lru pattern found elsewhere in the example pack, generalized to
// store arbitrary response bytes and to index entries by session_id for
// targeted invalidation.
package reccache

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultCapacity and DefaultTTL are N_cache and the 300s default from
// spec.md §4.9.
const (
	DefaultCapacity = 1000
	DefaultTTL      = 5 * time.Minute
)

type entry struct {
	key       string
	sessionID string
	value     []byte
	expiresAt time.Time
	prev      *entry
	next      *entry
}

// Cache is a thread-safe LRU cache with TTL and per-session invalidation.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*entry
	bySession map[string]map[string]bool
	head, tail *entry

	hits, misses int64
}

// New builds a Cache with capacity (DefaultCapacity if <= 0) and ttl
// (DefaultTTL if <= 0).
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		capacity:  capacity,
		ttl:       ttl,
		items:     make(map[string]*entry, capacity),
		bySession: make(map[string]map[string]bool),
		head:      &entry{},
		tail:      &entry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Key hashes (session, canonical filters, count, history_length) per
// spec.md §4.9; including historyLength guarantees any action that grows
// history invalidates the key implicitly.
func Key(sessionID, canonicalFilters string, count, historyLength int) string {
	var b strings.Builder
	b.WriteString(sessionID)
	b.WriteByte('|')
	b.WriteString(canonicalFilters)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(count))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(historyLength))

	sum := xxhash.Sum64String(b.String())
	return strconv.FormatUint(sum, 16)
}

// Get returns the cached response for key, or (nil, false) on a miss or
// expired entry.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.removeEntry(e)
		c.misses++
		return nil, false
	}
	c.moveToFront(e)
	c.hits++
	return e.value, true
}

// Put stores value under key, attributed to sessionID for later
// invalidation, evicting the least-recently-used entry if over capacity.
func (c *Cache) Put(key, sessionID string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = time.Now().Add(c.ttl)
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, sessionID: sessionID, value: value, expiresAt: time.Now().Add(c.ttl)}
	c.addToFront(e)
	c.items[key] = e

	if c.bySession[sessionID] == nil {
		c.bySession[sessionID] = make(map[string]bool)
	}
	c.bySession[sessionID][key] = true

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

// InvalidateSession removes every cached entry attributed to sessionID
// (spec.md §4.6 step 9 / §4.9's "belt-and-braces" note).
func (c *Cache) InvalidateSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.bySession[sessionID]
	for key := range keys {
		if e, ok := c.items[key]; ok {
			c.removeEntry(e)
		}
	}
	delete(c.bySession, sessionID)
}

// Clear empties the cache entirely, for the admin /api/cache/clear
// endpoint.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry, c.capacity)
	c.bySession = make(map[string]map[string]bool)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// Stats reports hit/miss counters and current size for the admin
// /api/cache/stats endpoint.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Size: len(c.items)}
}

func (c *Cache) addToFront(e *entry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *Cache) moveToFront(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.addToFront(e)
}

func (c *Cache) removeEntry(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
	if sess := c.bySession[e.sessionID]; sess != nil {
		delete(sess, e.key)
		if len(sess) == 0 {
			delete(c.bySession, e.sessionID)
		}
	}
}

func (c *Cache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
