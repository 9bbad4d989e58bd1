package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// RedisCache implements ResultCache backed by Redis. Backend failures
// are non-fatal: reads degrade to misses and writes are skipped, so the
// engine falls back to full resolution.
type RedisCache struct {
	client *redis.Client
	config *RedisConfig
	logger *zap.Logger

	hits   uint64
	misses uint64
}

// NewRedisCache creates a Redis-backed result cache and verifies the
// connection.
func NewRedisCache(config *RedisConfig, logger *zap.Logger) (*RedisCache, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr(),
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		PoolTimeout:  config.PoolTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		DialTimeout:  config.DialTimeout,
		TLSConfig:    config.TLS,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, ErrConnectionFailed(err)
	}

	return &RedisCache{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// newRedisCacheWithClient wires an existing client, used by tests
func newRedisCacheWithClient(client *redis.Client, config *RedisConfig, logger *zap.Logger) *RedisCache {
	if config == nil {
		config = DefaultRedisConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, config: config, logger: logger}
}

// Get retrieves a cached evaluation result. Any backend or decode error
// counts as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (*types.EvaluationResult, bool) {
	data, err := c.client.Get(ctx, c.config.KeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("redis get failed, treating as miss",
				zap.String("key", key), zap.Error(err))
		}
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	var result types.EvaluationResult
	if err := json.Unmarshal(data, &result); err != nil {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	atomic.AddUint64(&c.hits, 1)
	return &result, true
}

// Set stores an evaluation result with the given TTL. Failures are
// logged and dropped.
func (c *RedisCache) Set(ctx context.Context, key string, result *types.EvaluationResult, ttl time.Duration) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.config.KeyPrefix+key, data, ttl).Err(); err != nil {
		c.logger.Debug("redis set failed, skipping cache write",
			zap.String("key", key), zap.Error(err))
	}
}

// DeleteByPrefix removes every key under the prefix using SCAN and
// returns the number removed.
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) int {
	pattern := c.config.KeyPrefix + prefix + "*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("redis scan failed during eviction",
			zap.String("pattern", pattern), zap.Error(err))
	}

	if len(keys) == 0 {
		return 0
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("redis delete failed during eviction", zap.Error(err))
		return 0
	}
	return len(keys)
}

// DeleteAll removes every key under this cache's namespace
func (c *RedisCache) DeleteAll(ctx context.Context) {
	c.DeleteByPrefix(ctx, "")
}

// Stats returns cache statistics
func (c *RedisCache) Stats() Stats {
	hits := atomic.LoadUint64(&c.hits)
	misses := atomic.LoadUint64(&c.misses)

	size := 0
	ctx, cancel := context.WithTimeout(context.Background(), c.config.ReadTimeout)
	defer cancel()
	if dbSize, err := c.client.DBSize(ctx).Result(); err == nil {
		size = int(dbSize)
	}

	return Stats{
		Size:    size,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
	}
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, fmt.Sprintf("%d", port))
}
