package session

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultCacheCapacity  = 1000
	DefaultCacheTTL       = 60 * time.Second
	DefaultCacheKeySuffix = 32
)

// CacheConfig bounds a Cache.
type CacheConfig struct {
	Capacity int
	TTL      time.Duration
	// KeySuffixLength is how many trailing token characters form the key.
	KeySuffixLength int
}

func (c CacheConfig) withDefaults() CacheConfig {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCacheCapacity
	}
	if c.TTL <= 0 {
		c.TTL = DefaultCacheTTL
	}
	if c.KeySuffixLength <= 0 {
		c.KeySuffixLength = DefaultCacheKeySuffix
	}
	return c
}

// CacheStats is a point-in-time view of cache activity.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

type cacheEntry struct {
	key         string
	record      Record
	userID      string
	cachedUntil time.Time
}

// Cache is a bounded, time-boxed read-through cache in front of a Store.
//
// Entries are keyed by a token suffix and only served while fresh and when
// the caller's user id matches. Eviction is insertion-order FIFO: refreshing
// an existing key does not move it. The cache is never authoritative; a
// record deleted in the store may still be served until its entry expires or
// is invalidated.
type Cache struct {
	store Store
	clock clockwork.Clock
	cfg   CacheConfig

	mu    sync.Mutex
	order *list.List
	items map[string]*list.Element

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewCache returns a cache over store. A nil clock uses the real clock.
func NewCache(store Store, cfg CacheConfig, clock clockwork.Clock) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	cfg = cfg.withDefaults()
	return &Cache{
		store: store,
		clock: clock,
		cfg:   cfg,
		order: list.New(),
		items: make(map[string]*list.Element, cfg.Capacity),
	}
}

// Key returns the cache key for token.
func (c *Cache) Key(token string) string {
	if len(token) <= c.cfg.KeySuffixLength {
		return token
	}
	return token[len(token)-c.cfg.KeySuffixLength:]
}

// Get resolves the session for token and userID. A fresh entry owned by
// userID is returned without a store round trip (hit=true); otherwise the
// store is queried and a found record is cached. Store errors are returned
// unchanged, including ErrNotFound.
func (c *Cache) Get(ctx context.Context, token, userID string) (*Record, bool, error) {
	key := c.Key(token)
	now := c.clock.Now()

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		entry := el.Value.(*cacheEntry)
		if entry.userID == userID && now.Before(entry.cachedUntil) {
			rec := entry.record
			c.mu.Unlock()
			c.hits.Add(1)
			return &rec, true, nil
		}
		if !now.Before(entry.cachedUntil) {
			c.removeElement(el)
		}
	}
	c.mu.Unlock()

	c.misses.Add(1)
	rec, err := c.store.FindOne(ctx, Query{Token: token, UserID: userID})
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, ErrNotFound
	}
	c.Put(token, *rec)
	return rec, false, nil
}

// Put inserts or refreshes the entry for token. A refreshed entry keeps its
// place in eviction order.
func (c *Cache) Put(token string, rec Record) {
	key := c.Key(token)
	until := c.clock.Now().Add(c.cfg.TTL)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.record = rec
		entry.userID = rec.UserID
		entry.cachedUntil = until
		return
	}

	c.items[key] = c.order.PushBack(&cacheEntry{
		key:         key,
		record:      rec,
		userID:      rec.UserID,
		cachedUntil: until,
	})
	for c.order.Len() > c.cfg.Capacity {
		c.removeElement(c.order.Front())
		c.evictions.Add(1)
	}
}

// Invalidate drops the entry for token, if any.
func (c *Cache) Invalidate(token string) {
	key := c.Key(token)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[string]*list.Element, c.cfg.Capacity)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.Len(),
	}
}

// caller holds c.mu
func (c *Cache) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	entry := el.Value.(*cacheEntry)
	delete(c.items, entry.key)
	c.order.Remove(el)
}

// IsNotFound reports whether err means the store has no matching record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
