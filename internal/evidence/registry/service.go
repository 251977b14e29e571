// Package registry collects the official parcel snapshot that seeds each
// research run, with an optional TTL cache in front of the providers.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"zonescout/internal/evidence/registry/metrics"
	"zonescout/internal/evidence/registry/providers"
	"zonescout/internal/research/models"
	"zonescout/pkg/platform/sentinel"
)

// SnapshotCache stores snapshots by subject key.
type SnapshotCache interface {
	FindSnapshot(ctx context.Context, key string) (*models.Snapshot, error)
	SaveSnapshot(ctx context.Context, key string, snap *models.Snapshot) error
}

// Service coordinates parcel lookups with caching and provider fallback.
type Service struct {
	providers []providers.Provider
	cache     SnapshotCache
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithCache puts a snapshot cache in front of the providers.
func WithCache(cache SnapshotCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService builds a service over every parcel provider in the registry,
// tried in registration order.
func NewService(registry *providers.ProviderRegistry, opts ...Option) (*Service, error) {
	parcel := registry.ListByType(providers.ProviderTypeParcel)
	if len(parcel) == 0 {
		return nil, providers.ErrNoProvidersAvailable
	}
	s := &Service{
		providers: parcel,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Fetch returns the official snapshot for subject. Cache failures degrade to
// a provider lookup; provider failures are returned once every provider failed.
func (s *Service) Fetch(ctx context.Context, subject models.Subject) (*models.Snapshot, error) {
	key := subject.Key()
	if s.cache != nil {
		cached, err := s.cache.FindSnapshot(ctx, key)
		switch {
		case err == nil:
			s.logger.DebugContext(ctx, "registry snapshot served from cache", "address", subject.Address)
			return cached, nil
		case !errors.Is(err, sentinel.ErrNotFound):
			s.logger.WarnContext(ctx, "registry cache lookup failed", "address", subject.Address, "error", err)
		}
	}

	filters := map[string]string{
		providers.FilterStreetName:  subject.StreetName,
		providers.FilterHouseNumber: subject.HouseNumber,
	}

	var errs []error
	for _, p := range s.providers {
		start := time.Now()
		ev, err := p.Lookup(ctx, filters)
		if err != nil {
			s.metrics.ObserveLookup(p.ID(), string(providers.GetCategory(err)), time.Since(start))
			s.logger.WarnContext(ctx, "registry provider lookup failed",
				"provider", p.ID(),
				"address", subject.Address,
				"category", providers.GetCategory(err),
				"error", err,
			)
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		s.metrics.ObserveLookup(p.ID(), "ok", time.Since(start))

		snap := toSnapshot(subject, p.Capabilities(), ev)
		if s.cache != nil {
			if err := s.cache.SaveSnapshot(ctx, key, snap); err != nil {
				s.logger.WarnContext(ctx, "registry cache save failed", "address", subject.Address, "error", err)
			}
		}
		return snap, nil
	}

	return nil, fmt.Errorf("fetch %s: %w", subject.Address, errors.Join(append([]error{providers.ErrAllProvidersFailed}, errs...)...))
}

// Health reports whether at least one provider is reachable.
func (s *Service) Health(ctx context.Context) error {
	var errs []error
	for _, p := range s.providers {
		if err := p.Health(ctx); err != nil {
			errs = append(errs, err)
			continue
		}
		return nil
	}
	return errors.Join(errs...)
}
