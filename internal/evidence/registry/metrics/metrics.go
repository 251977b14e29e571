package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for official registry collection.
type Metrics struct {
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec
}

// New registers the registry metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zonescout_registry_cache_hits_total",
			Help: "Registry snapshot cache hits by cache backend",
		}, []string{"cache"}),

		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zonescout_registry_cache_misses_total",
			Help: "Registry snapshot cache misses by cache backend",
		}, []string{"cache"}),

		LookupDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zonescout_registry_lookup_duration_seconds",
			Help:    "Duration of provider lookups by provider and outcome",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		}, []string{"provider", "outcome"}), // outcome: "ok" or an error category
	}
}

// RecordCacheHit counts a cache hit.
func (m *Metrics) RecordCacheHit(cache string) {
	if m != nil {
		m.CacheHits.WithLabelValues(cache).Inc()
	}
}

// RecordCacheMiss counts a cache miss.
func (m *Metrics) RecordCacheMiss(cache string) {
	if m != nil {
		m.CacheMisses.WithLabelValues(cache).Inc()
	}
}

// ObserveLookup records one provider lookup.
func (m *Metrics) ObserveLookup(provider, outcome string, d time.Duration) {
	if m != nil {
		m.LookupDuration.WithLabelValues(provider, outcome).Observe(d.Seconds())
	}
}
