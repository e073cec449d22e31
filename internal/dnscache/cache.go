// Package dnscache implements a TTL-aware LRU cache for resolved DNS
// answers, including RFC 2308 negative caching for NXDOMAIN, NODATA,
// and SERVFAIL responses.
package dnscache

import (
	"container/list"
	"sync"
	"time"
)

// EntryType categorizes a cached response for TTL-capping purposes.
type EntryType int

const (
	Positive EntryType = iota // successful answer
	NXDOMAIN                  // name does not exist
	NODATA                    // name exists, no data for the queried type
	SERVFAIL                  // upstream failure
)

type entry struct {
	value     []byte
	cachedAt  time.Time
	expiresAt time.Time
	entryType EntryType
	elem      *list.Element
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	HitRate   float64
}

// Cache is a thread-safe TTL-aware LRU cache keyed by a caller-supplied
// cache key (typically "name:qtype", normalized to lowercase).
//
// Positive entries are capped at MaxTTL, negative entries
// (NXDOMAIN/NODATA) at MaxNegativeTTL, and SERVFAIL responses get
// their own short cap to avoid hammering a failing upstream.
type Cache struct {
	mu sync.Mutex

	maxEntries     int
	maxTTL         time.Duration
	maxNegTTL      time.Duration
	servfailTTL    time.Duration
	negativeCaching bool

	lru  *list.List
	data map[string]*entry

	hits      uint64
	misses    uint64
	evictions uint64
}

// Config configures a Cache. Zero values fall back to sane defaults.
type Config struct {
	MaxEntries      int
	MaxTTL          time.Duration
	MaxNegativeTTL  time.Duration
	ServfailTTL     time.Duration
	NegativeCaching bool
}

// New creates a Cache from Config, applying defaults for zero fields.
func New(cfg Config) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10_000
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = 24 * time.Hour
	}
	if cfg.MaxNegativeTTL <= 0 {
		cfg.MaxNegativeTTL = time.Hour
	}
	if cfg.ServfailTTL <= 0 {
		cfg.ServfailTTL = 30 * time.Second
	}
	return &Cache{
		maxEntries:      cfg.MaxEntries,
		maxTTL:          cfg.MaxTTL,
		maxNegTTL:       cfg.MaxNegativeTTL,
		servfailTTL:     cfg.ServfailTTL,
		negativeCaching: cfg.NegativeCaching,
		lru:             list.New(),
		data:            map[string]*entry{},
	}
}

// Get returns the cached value, whether it was found, and its entry
// type. Expired entries are evicted lazily and counted as a miss.
func (c *Cache) Get(key string) ([]byte, bool, EntryType) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.data[key]
	if e == nil {
		c.misses++
		return nil, false, Positive
	}
	if !e.expiresAt.After(now) {
		c.removeLocked(key, e)
		c.evictions++
		c.misses++
		return nil, false, Positive
	}

	c.lru.MoveToBack(e.elem)
	c.hits++
	return e.value, true, e.entryType
}

// Set stores value under key with the given TTL and entry type. TTLs
// <= 0 are not stored. Negative entry types are dropped entirely if
// NegativeCaching is disabled.
func (c *Cache) Set(key string, value []byte, ttl time.Duration, entryType EntryType) {
	if ttl <= 0 {
		return
	}
	ttl = c.capTTL(ttl, entryType)
	if ttl <= 0 {
		return
	}
	expires := time.Now().Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing := c.data[key]; existing != nil {
		existing.value = value
		existing.cachedAt = time.Now()
		existing.expiresAt = expires
		existing.entryType = entryType
		c.lru.MoveToBack(existing.elem)
		return
	}

	e := &entry{value: value, cachedAt: time.Now(), expiresAt: expires, entryType: entryType}
	e.elem = c.lru.PushBack(key)
	c.data[key] = e
	c.evictIfOverCapacityLocked()
}

func (c *Cache) capTTL(ttl time.Duration, entryType EntryType) time.Duration {
	switch entryType {
	case SERVFAIL:
		if !c.negativeCaching {
			return 0
		}
		if ttl > c.servfailTTL {
			return c.servfailTTL
		}
	case NXDOMAIN, NODATA:
		if !c.negativeCaching {
			return 0
		}
		if ttl > c.maxNegTTL {
			return c.maxNegTTL
		}
	default:
		if ttl > c.maxTTL {
			return c.maxTTL
		}
	}
	return ttl
}

func (c *Cache) evictIfOverCapacityLocked() {
	for len(c.data) > c.maxEntries {
		front := c.lru.Front()
		if front == nil {
			return
		}
		key := front.Value.(string)
		c.removeLocked(key, c.data[key])
		c.evictions++
	}
}

func (c *Cache) removeLocked(key string, e *entry) {
	c.lru.Remove(e.elem)
	delete(c.data, key)
}

// Purge removes every entry, resetting Size to zero but leaving
// hit/miss/eviction counters intact.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru = list.New()
	c.data = map[string]*entry{}
}

// Stats returns a snapshot of the cache counters: hits, misses,
// evictions, current size, and hit rate (hits / (hits+misses)).
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.data),
		HitRate:   rate,
	}
}
