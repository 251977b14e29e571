package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"zonescout/internal/evidence/registry/metrics"
	"zonescout/internal/research/models"
	"zonescout/pkg/platform/sentinel"
)

const keyPrefix = "zonescout:registry:snapshot:"

// RedisCache shares registry snapshots between instances. Expiry is enforced
// by Redis itself.
type RedisCache struct {
	client   redis.UniversalClient
	cacheTTL time.Duration
	metrics  *metrics.Metrics
}

// NewRedisCache constructs a Redis-backed snapshot cache.
func NewRedisCache(client redis.UniversalClient, cacheTTL time.Duration, m *metrics.Metrics) *RedisCache {
	return &RedisCache{client: client, cacheTTL: cacheTTL, metrics: m}
}

// SaveSnapshot stores a snapshot under key with the cache TTL.
func (c *RedisCache) SaveSnapshot(ctx context.Context, key string, snap *models.Snapshot) error {
	if snap == nil {
		return nil
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, payload, c.cacheTTL).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// FindSnapshot returns the snapshot for key or sentinel.ErrNotFound.
func (c *RedisCache) FindSnapshot(ctx context.Context, key string) (*models.Snapshot, error) {
	payload, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.metrics.RecordCacheMiss("redis")
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w: %w", sentinel.ErrInvalidState, err)
	}
	c.metrics.RecordCacheHit("redis")
	return &snap, nil
}
