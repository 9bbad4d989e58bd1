package cache

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// HybridCache layers a local LRU (L1) over Redis (L2). L1 serves hot
// entries, L2 survives process restarts and is shared across instances.
type HybridCache struct {
	l1 *Local
	l2 *RedisCache

	l1TTL     time.Duration
	l2Enabled bool

	hits   uint64
	misses uint64
}

// HybridConfig contains configuration for the hybrid cache
type HybridConfig struct {
	L1Capacity int
	L1TTL      time.Duration
	L2Enabled  bool
	L2Config   *RedisConfig
}

// DefaultHybridConfig returns defaults for the hybrid cache
func DefaultHybridConfig() *HybridConfig {
	return &HybridConfig{
		L1Capacity: 10000,
		L1TTL:      time.Minute,
		L2Enabled:  true,
		L2Config:   DefaultRedisConfig(),
	}
}

// NewHybridCache creates a hybrid cache. If Redis is unreachable it
// falls back to L1 only.
func NewHybridCache(config *HybridConfig, logger *zap.Logger) (*HybridCache, error) {
	if config == nil {
		config = DefaultHybridConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l1 := NewLocal(config.L1Capacity)

	var l2 *RedisCache
	l2Enabled := false
	if config.L2Enabled {
		var err error
		l2, err = NewRedisCache(config.L2Config, logger)
		if err != nil {
			logger.Warn("redis unavailable, hybrid cache running local-only", zap.Error(err))
		} else {
			l2Enabled = true
		}
	}

	return &HybridCache{
		l1:        l1,
		l2:        l2,
		l1TTL:     config.L1TTL,
		l2Enabled: l2Enabled,
	}, nil
}

// Get checks L1 first, then L2, promoting L2 hits into L1
func (c *HybridCache) Get(ctx context.Context, key string) (*types.EvaluationResult, bool) {
	if res, ok := c.l1.Get(ctx, key); ok {
		atomic.AddUint64(&c.hits, 1)
		return res, true
	}

	if c.l2Enabled {
		if res, ok := c.l2.Get(ctx, key); ok {
			c.l1.Set(ctx, key, res, c.l1TTL)
			atomic.AddUint64(&c.hits, 1)
			return res, true
		}
	}

	atomic.AddUint64(&c.misses, 1)
	return nil, false
}

// Set writes through to both layers
func (c *HybridCache) Set(ctx context.Context, key string, result *types.EvaluationResult, ttl time.Duration) {
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	c.l1.Set(ctx, key, result, l1TTL)
	if c.l2Enabled {
		c.l2.Set(ctx, key, result, ttl)
	}
}

// DeleteByPrefix evicts from both layers
func (c *HybridCache) DeleteByPrefix(ctx context.Context, prefix string) int {
	removed := c.l1.DeleteByPrefix(ctx, prefix)
	if c.l2Enabled {
		removed += c.l2.DeleteByPrefix(ctx, prefix)
	}
	return removed
}

// DeleteAll clears both layers
func (c *HybridCache) DeleteAll(ctx context.Context) {
	c.l1.DeleteAll(ctx)
	if c.l2Enabled {
		c.l2.DeleteAll(ctx)
	}
}

// Stats returns combined statistics
func (c *HybridCache) Stats() Stats {
	hits := atomic.LoadUint64(&c.hits)
	misses := atomic.LoadUint64(&c.misses)

	size := c.l1.Stats().Size
	if c.l2Enabled {
		size += c.l2.Stats().Size
	}

	return Stats{
		Size:    size,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
	}
}

// Close releases the Redis connection when present
func (c *HybridCache) Close() error {
	if c.l2Enabled {
		return c.l2.Close()
	}
	return nil
}
