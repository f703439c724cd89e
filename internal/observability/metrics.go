package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ccart"

// Metrics holds the Prometheus counters, histograms, and gauges for scenario runs.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Scenario run metrics.
	Runs                *prometheus.CounterVec // labels: outcome={success,error}
	RunDuration         prometheus.Histogram
	ExposurePoints      prometheus.Histogram
	PathwayImpact       *prometheus.GaugeVec   // labels: pathway
	ZonesAboveThreshold *prometheus.GaugeVec   // labels: pathway
	ArtifactsWritten    *prometheus.CounterVec // labels: kind

	// Exposure source metrics.
	ExposureRequests      *prometheus.CounterVec   // labels: source={dir,http}, outcome={success,error}
	ExposureCache         *prometheus.CounterVec   // labels: layer={memory,redis}, result={hit,miss}
	ExposureFetchDuration *prometheus.HistogramVec // labels: source={dir,http}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates Metrics registered with reg, for processes
// such as one-shot CLI runs that keep their own registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total scenario requests read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total run summaries written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total scenario requests that could not be run.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-run-load cycle.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Scenario runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a scenario run across all pathways.",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		ExposurePoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exposure_points",
			Help:      "Exposure points inside the track window per run.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}),
		PathwayImpact: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pathway_impact_usd",
			Help:      "Total modelled impact of the latest run per pathway.",
		}, []string{"pathway"}),
		ZonesAboveThreshold: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zones_above_threshold",
			Help:      "Impact zones above the loss threshold in the latest run per pathway.",
		}, []string{"pathway"}),
		ArtifactsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_written_total",
			Help:      "GeoJSON artifacts written by kind.",
		}, []string{"kind"}),
		ExposureRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exposure_requests_total",
			Help:      "Exposure loads by source and outcome.",
		}, []string{"source", "outcome"}),
		ExposureCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exposure_cache_total",
			Help:      "Exposure cache lookups by layer and result.",
		}, []string{"layer", "result"}),
		ExposureFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exposure_fetch_duration_seconds",
			Help:      "Time to load one country's exposure from its source.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.Runs,
		m.RunDuration,
		m.ExposurePoints,
		m.PathwayImpact,
		m.ZonesAboveThreshold,
		m.ArtifactsWritten,
		m.ExposureRequests,
		m.ExposureCache,
		m.ExposureFetchDuration,
	}
}
