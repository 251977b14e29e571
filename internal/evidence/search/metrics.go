package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for web search.
type Metrics struct {
	QueryDuration *prometheus.HistogramVec
	BreakerOpen   prometheus.Gauge
}

// NewMetrics registers the search metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zonescout_search_query_duration_seconds",
			Help:    "Duration of individual web search queries by outcome",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),

		BreakerOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zonescout_search_breaker_open",
			Help: "1 while the web search circuit breaker is open",
		}),
	}
}

// ObserveQuery records one query.
func (m *Metrics) ObserveQuery(outcome string, d time.Duration) {
	if m != nil {
		m.QueryDuration.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

// SetBreakerOpen publishes the breaker state.
func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}
