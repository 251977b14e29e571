package store

import (
	"context"
	"sync"
	"time"

	"zonescout/internal/evidence/registry/metrics"
	"zonescout/internal/research/models"
	"zonescout/pkg/platform/sentinel"
)

type cachedSnapshot struct {
	snapshot models.Snapshot
	storedAt time.Time
}

// InMemoryCache provides an in-process snapshot cache with TTL expiration.
type InMemoryCache struct {
	mu        sync.RWMutex
	snapshots map[string]cachedSnapshot
	cacheTTL  time.Duration
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewInMemoryCache creates a new in-memory cache with the specified TTL.
func NewInMemoryCache(cacheTTL time.Duration, m *metrics.Metrics) *InMemoryCache {
	return &InMemoryCache{
		snapshots: make(map[string]cachedSnapshot),
		cacheTTL:  cacheTTL,
		metrics:   m,
		now:       time.Now,
	}
}

// SaveSnapshot stores a snapshot under key. A nil snapshot is a no-op.
func (c *InMemoryCache) SaveSnapshot(_ context.Context, key string, snap *models.Snapshot) error {
	if snap == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[key] = cachedSnapshot{snapshot: cloneSnapshot(*snap), storedAt: c.now()}
	return nil
}

// FindSnapshot returns the snapshot for key.
// Returns sentinel.ErrNotFound if it does not exist or has expired past the cache TTL.
func (c *InMemoryCache) FindSnapshot(_ context.Context, key string) (*models.Snapshot, error) {
	c.mu.RLock()
	cached, ok := c.snapshots[key]
	c.mu.RUnlock()

	if ok && c.now().Sub(cached.storedAt) < c.cacheTTL {
		c.metrics.RecordCacheHit("memory")
		snap := cloneSnapshot(cached.snapshot)
		return &snap, nil
	}
	if ok {
		c.mu.Lock()
		delete(c.snapshots, key)
		c.mu.Unlock()
	}
	c.metrics.RecordCacheMiss("memory")
	return nil, sentinel.ErrNotFound
}

func cloneSnapshot(s models.Snapshot) models.Snapshot {
	out := s
	out.Fields = make(map[string]*string, len(s.Fields))
	for k, v := range s.Fields {
		if v == nil {
			out.Fields[k] = nil
			continue
		}
		val := *v
		out.Fields[k] = &val
	}
	out.Sources = append([]models.Source(nil), s.Sources...)
	out.Evidence = append([]models.EvidenceItem(nil), s.Evidence...)
	return out
}
