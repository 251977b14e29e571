package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the research loop.
type Metrics struct {
	// Stage latencies: collection, planning, search, extraction, summarization
	StageDuration *prometheus.HistogramVec

	// Recoverable failures by stage
	StageErrors *prometheus.CounterVec

	// Completed runs by stop reason
	Runs *prometheus.CounterVec

	// Loop passes per run
	Iterations prometheus.Histogram

	// End-to-end run latency
	RunDuration prometheus.Histogram
}

// New registers the research metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zonescout_research_stage_duration_seconds",
			Help:    "Duration of research stages",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),

		StageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zonescout_research_stage_errors_total",
			Help: "Recoverable research failures by stage",
		}, []string{"stage"}),

		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zonescout_research_runs_total",
			Help: "Completed research runs by stop reason",
		}, []string{"stop_reason"}),

		Iterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "zonescout_research_iterations",
			Help:    "Planning and search passes per run",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),

		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "zonescout_research_run_duration_seconds",
			Help:    "Duration of a full research run including the final brief",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 60, 120, 240},
		}),
	}
}

// ObserveStage records the duration of one stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// IncrementStageError counts a recoverable stage failure.
func (m *Metrics) IncrementStageError(stage string) {
	if m != nil {
		m.StageErrors.WithLabelValues(stage).Inc()
	}
}

// ObserveRun records a completed run.
func (m *Metrics) ObserveRun(stopReason string, iterations int, d time.Duration) {
	if m != nil {
		m.Runs.WithLabelValues(stopReason).Inc()
		m.Iterations.Observe(float64(iterations))
		m.RunDuration.Observe(d.Seconds())
	}
}
