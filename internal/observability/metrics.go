package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// stream processor.
type Metrics struct {
	EventsProcessed  *prometheus.CounterVec // labels: type={weather,production}
	ParseErrors      *prometheus.CounterVec // labels: type={weather,production}
	EnvelopesSkipped prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Alignment metrics.
	AlignmentOutcomes *prometheus.CounterVec // labels: outcome={matched,none}

	// Correlation metrics.
	RecomputeDuration prometheus.Histogram
	WindowPairs       *prometheus.GaugeVec // labels: location

	// Recommendation and dispatch metrics.
	Recommendations      *prometheus.CounterVec // labels: alert_level
	OptimizationsEmitted *prometheus.CounterVec // labels: priority
	WeatherAlerts        prometheus.Counter
	PublishFailures      *prometheus.CounterVec // labels: sink={kafka,postgres,redis}
}

// NewMetrics creates and registers all processor metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.EventsProcessed,
		m.ParseErrors,
		m.EnvelopesSkipped,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.AlignmentOutcomes,
		m.RecomputeDuration,
		m.WindowPairs,
		m.Recommendations,
		m.OptimizationsEmitted,
		m.WeatherAlerts,
		m.PublishFailures,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	const namespace = "weather_optimizer"
	return &Metrics{
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Messages fully processed, by event type.",
		}, []string{"type"}),
		ParseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Messages skipped due to parse failures, by event type.",
		}, []string{"type"}),
		EnvelopesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelopes_skipped_total",
			Help:      "Well-formed weather envelopes of types this processor does not consume.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the processor loop is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch processing cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		AlignmentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alignment_outcomes_total",
			Help:      "Weather alignment results: matched within tolerance, or none found.",
		}, []string{"outcome"}),
		RecomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "correlation_recompute_duration_seconds",
			Help:      "Duration of a full per-location correlation recompute.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		WindowPairs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_pairs",
			Help:      "Aligned pairs currently held in the rolling window, per location.",
		}, []string{"location"}),
		Recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendations evaluated, by alert level.",
		}, []string{"alert_level"}),
		OptimizationsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizations_emitted_total",
			Help:      "Optimization records that cleared the confidence gate, by priority.",
		}, []string{"priority"}),
		WeatherAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_alerts_total",
			Help:      "Weather front alerts published.",
		}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Best-effort side effect failures, by sink.",
		}, []string{"sink"}),
	}
}
