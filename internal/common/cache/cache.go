// Package cache provides a two-tier byte cache: ristretto in process, Redis shared.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/common/metrics"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/redis/go-redis/v9"
)

// Remote is the shared tier. *database.RedisClient satisfies it.
type Remote interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// TieredCache reads L1 first, then L2, and back-fills L1 on an L2 hit.
// A nil remote disables L2.
type TieredCache struct {
	local  *ristretto.Cache[string, []byte]
	remote Remote
	log    logger.Logger
}

// New builds the cache. maxCostBytes bounds the total size of L1 values.
func New(maxCostBytes int64, remote Remote, log logger.Logger) (*TieredCache, error) {
	if maxCostBytes <= 0 {
		maxCostBytes = 8 << 20
	}
	local, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create local cache: %w", err)
	}
	return &TieredCache{
		local:  local,
		remote: remote,
		log:    log.WithFields(map[string]interface{}{"component": "cache"}),
	}, nil
}

// Get returns the cached value and whether it was found. A Redis failure is
// returned as an error so the caller can fall back to its source.
func (c *TieredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if val, ok := c.local.Get(key); ok {
		metrics.CacheLookups.WithLabelValues("local", "hit").Inc()
		return val, true, nil
	}
	metrics.CacheLookups.WithLabelValues("local", "miss").Inc()

	if c.remote == nil {
		return nil, false, nil
	}

	val, err := c.remote.GetBytes(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		metrics.CacheLookups.WithLabelValues("redis", "miss").Inc()
		return nil, false, nil
	case err != nil:
		metrics.CacheLookups.WithLabelValues("redis", "error").Inc()
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	metrics.CacheLookups.WithLabelValues("redis", "hit").Inc()
	c.local.Set(key, val, int64(len(val)))
	c.local.Wait()
	return val, true, nil
}

// Set writes both tiers. The local write always happens; a Redis error is returned.
func (c *TieredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.local.SetWithTTL(key, value, int64(len(value)), ttl)
	c.local.Wait()

	if c.remote == nil {
		return nil
	}
	if err := c.remote.Set(ctx, key, value, ttl); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Invalidate removes key from both tiers.
func (c *TieredCache) Invalidate(ctx context.Context, key string) error {
	c.local.Del(key)
	if c.remote == nil {
		return nil
	}
	if err := c.remote.Del(ctx, key); err != nil {
		c.log.Warn("redis delete failed", map[string]interface{}{"key": key, "error": err.Error()})
		return err
	}
	return nil
}

func (c *TieredCache) Close() {
	c.local.Close()
}
