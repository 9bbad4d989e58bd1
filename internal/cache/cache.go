// Package cache provides caching implementations for evaluation results
// and applicable-policy lists.
package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// ResultCache defines the result-cache contract consumed by the engine.
// Implementations must be safe for concurrent use; backends that fail
// degrade to cache misses rather than errors.
type ResultCache interface {
	Get(ctx context.Context, key string) (*types.EvaluationResult, bool)
	Set(ctx context.Context, key string, result *types.EvaluationResult, ttl time.Duration)
	DeleteByPrefix(ctx context.Context, prefix string) int
	DeleteAll(ctx context.Context)
	Stats() Stats
	Close() error
}

// Stats contains cache statistics
type Stats struct {
	Size    int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// LRU is an LRU store with per-entry TTL and prefix deletion. It backs
// the local result cache and the resolver's applicable-policy lists.
type LRU struct {
	capacity int

	items map[string]*list.Element
	order *list.List
	mu    sync.Mutex

	hits   uint64
	misses uint64
}

type lruEntry struct {
	key       string
	value     interface{}
	expiresAt time.Time
}

// NewLRU creates a new LRU store
func NewLRU(capacity int) *LRU {
	if capacity <= 0 {
		capacity = 10000
	}
	return &LRU{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get retrieves a value. Expired entries are removed lazily on read.
func (c *LRU) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	entry := elem.Value.(*lruEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeElement(elem)
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	c.order.MoveToFront(elem)
	atomic.AddUint64(&c.hits, 1)
	return entry.value, true
}

// Set adds or updates a value with its own TTL
func (c *LRU) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*lruEntry)
		entry.value = value
		entry.expiresAt = time.Now().Add(ttl)
		c.order.MoveToFront(elem)
		return
	}

	for c.order.Len() >= c.capacity {
		if elem := c.order.Back(); elem != nil {
			c.removeElement(elem)
		}
	}

	elem := c.order.PushFront(&lruEntry{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
	c.items[key] = elem
}

// Delete removes a single key
func (c *LRU) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// DeleteByPrefix removes every entry whose key starts with the prefix
// and returns the number removed.
func (c *LRU) DeleteByPrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	var next *list.Element
	for elem := c.order.Front(); elem != nil; elem = next {
		next = elem.Next()
		entry := elem.Value.(*lruEntry)
		if strings.HasPrefix(entry.key, prefix) {
			c.removeElement(elem)
			removed++
		}
	}
	return removed
}

// Clear removes all entries
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Stats returns store statistics
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	size := c.order.Len()
	c.mu.Unlock()

	hits := atomic.LoadUint64(&c.hits)
	misses := atomic.LoadUint64(&c.misses)
	return Stats{
		Size:    size,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
	}
}

func (c *LRU) removeElement(elem *list.Element) {
	entry := elem.Value.(*lruEntry)
	delete(c.items, entry.key)
	c.order.Remove(elem)
}

func hitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Local implements ResultCache with an in-process LRU
type Local struct {
	lru *LRU
}

// NewLocal creates a local result cache
func NewLocal(capacity int) *Local {
	return &Local{lru: NewLRU(capacity)}
}

// Get retrieves a cached evaluation result
func (c *Local) Get(ctx context.Context, key string) (*types.EvaluationResult, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	res, ok := v.(*types.EvaluationResult)
	return res, ok
}

// Set stores an evaluation result with the given TTL
func (c *Local) Set(ctx context.Context, key string, result *types.EvaluationResult, ttl time.Duration) {
	c.lru.Set(key, result, ttl)
}

// DeleteByPrefix removes results whose key starts with the prefix
func (c *Local) DeleteByPrefix(ctx context.Context, prefix string) int {
	return c.lru.DeleteByPrefix(prefix)
}

// DeleteAll removes all cached results
func (c *Local) DeleteAll(ctx context.Context) {
	c.lru.Clear()
}

// Stats returns cache statistics
func (c *Local) Stats() Stats {
	return c.lru.Stats()
}

// Close is a no-op for the local cache
func (c *Local) Close() error {
	return nil
}
