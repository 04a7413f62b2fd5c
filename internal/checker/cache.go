package checker

import (
	"container/list"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nao1215/linkcheck/internal/model"
)

// DefaultCacheSize is the capacity of a cache created without an explicit
// size.
const DefaultCacheSize = 1024

// Key identifies a cached outcome. It holds only the parameters that change
// the result of a check, never per-worker or per-connection state, so that
// workers checking the same URL from different documents share one entry.
type Key struct {
	URL       string
	Timeout   time.Duration
	Blacklist string
}

func (k Key) String() string {
	return k.Blacklist + "\x00" + strconv.FormatInt(int64(k.Timeout), 10) + "\x00" + k.URL
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits   int64
	Misses int64
	Len    int
}

type cacheEntry struct {
	key     Key
	outcome model.Outcome
}

// Cache is a fixed-capacity LRU of check outcomes with single-flight
// get-or-compute. It is safe for concurrent use and may be shared by several
// Checkers.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[Key]*list.Element
	hits     int64
	misses   int64

	group singleflight.Group
}

// NewCache returns a cache holding at most capacity outcomes.
// A capacity of zero or less selects DefaultCacheSize.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[Key]*list.Element, capacity),
	}
}

// Get returns the cached outcome for key and marks it recently used.
func (c *Cache) Get(key Key) (model.Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *Cache) getLocked(key Key) (model.Outcome, bool) {
	el, ok := c.items[key]
	if !ok {
		return model.Outcome{}, false
	}
	c.ll.MoveToFront(el)
	entry, _ := el.Value.(*cacheEntry)
	return entry.outcome, true
}

// Add stores an outcome, evicting the least recently used entry when full.
func (c *Cache) Add(key Key, outcome model.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		el.Value = &cacheEntry{key: key, outcome: outcome}
		return
	}
	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, outcome: outcome})
	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.ll.Remove(oldest)
		if entry, ok := oldest.Value.(*cacheEntry); ok {
			delete(c.items, entry.key)
		}
	}
}

// Len returns the number of cached outcomes.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stats returns hit and miss counters. Callers that waited on an in-flight
// computation count as hits.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Len: c.ll.Len()}
}

// GetOrCompute returns the cached outcome for key or runs compute to produce
// it. Concurrent callers with the same key wait for a single compute call.
// compute reports whether its outcome may be cached; an outcome produced
// under a cancelled context, for instance, is returned but not stored.
func (c *Cache) GetOrCompute(key Key, compute func() (model.Outcome, bool)) model.Outcome {
	c.mu.Lock()
	if o, ok := c.getLocked(key); ok {
		c.hits++
		c.mu.Unlock()
		return o
	}
	c.mu.Unlock()

	computed := false
	v, _, _ := c.group.Do(key.String(), func() (any, error) {
		// A caller that lost the race to a finished flight finds the
		// result here instead of probing again.
		c.mu.Lock()
		if o, ok := c.getLocked(key); ok {
			c.mu.Unlock()
			return o, nil
		}
		c.mu.Unlock()

		computed = true
		o, cacheable := compute()
		if cacheable {
			c.Add(key, o)
		}
		return o, nil
	})

	c.mu.Lock()
	if computed {
		c.misses++
	} else {
		c.hits++
	}
	c.mu.Unlock()

	o, _ := v.(model.Outcome)
	return o
}
