package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	SoundingsConsumed prometheus.Counter
	ProductsProduced  prometheus.Counter
	TransformErrors   prometheus.Counter
	PipelineRunning   prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Quality-control metrics.
	SondesFiltered *prometheus.CounterVec // label: flag (first failing QC flag)
	SondeStatus    *prometheus.CounterVec // label: status={bad,good,ugly}
	FloatersFound  prometheus.Counter

	// Circle-product metrics.
	CirclesProcessed       prometheus.Counter
	CirclesDropped         prometheus.Counter // segments below the sonde minimum
	UnderConstrainedLevels prometheus.Counter // plane fits skipped for too few sondes
	CircleFitDuration      prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		SoundingsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonde_etl",
			Name:      "soundings_consumed_total",
			Help:      "Total raw soundings read from the source topic.",
		}),
		ProductsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonde_etl",
			Name:      "products_produced_total",
			Help:      "Total gridded products written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonde_etl",
			Name:      "transform_errors_total",
			Help:      "Total transformation failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sonde_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sonde_etl",
			Name:      "batch_size",
			Help:      "Number of soundings per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sonde_etl",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		SondesFiltered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonde_etl",
			Name:      "sondes_filtered_total",
			Help:      "Soundings dropped by the QC filter, by first failing flag.",
		}, []string{"flag"}),
		SondeStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonde_etl",
			Name:      "sonde_status_total",
			Help:      "Per-sonde QC verdicts by status.",
		}, []string{"status"}),
		FloatersFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonde_etl",
			Name:      "floaters_found_total",
			Help:      "Soundings detected drifting at the surface before the data end.",
		}),
		CirclesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonde_etl",
			Name:      "circles_processed_total",
			Help:      "Circle segments fitted to completion.",
		}),
		CirclesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonde_etl",
			Name:      "circles_dropped_total",
			Help:      "Circle segments dropped for too few member sondes.",
		}),
		UnderConstrainedLevels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonde_etl",
			Name:      "under_constrained_levels_total",
			Help:      "Altitude levels skipped by the plane fit for too few valid sondes.",
		}),
		CircleFitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sonde_etl",
			Name:      "circle_fit_duration_seconds",
			Help:      "Duration of one circle geometry and gradient fit.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}

	prometheus.MustRegister(
		m.SoundingsConsumed,
		m.ProductsProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.SondesFiltered,
		m.SondeStatus,
		m.FloatersFound,
		m.CirclesProcessed,
		m.CirclesDropped,
		m.UnderConstrainedLevels,
		m.CircleFitDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		SoundingsConsumed:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sonde_etl", Name: "soundings_consumed_total"}),
		ProductsProduced:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sonde_etl", Name: "products_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sonde_etl", Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "sonde_etl", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sonde_etl", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sonde_etl", Name: "batch_processing_duration_seconds"}),
		SondesFiltered:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "sonde_etl", Name: "sondes_filtered_total"}, []string{"flag"}),
		SondeStatus:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "sonde_etl", Name: "sonde_status_total"}, []string{"status"}),
		FloatersFound:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sonde_etl", Name: "floaters_found_total"}),
		CirclesProcessed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sonde_etl", Name: "circles_processed_total"}),
		CirclesDropped:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sonde_etl", Name: "circles_dropped_total"}),
		UnderConstrainedLevels:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sonde_etl", Name: "under_constrained_levels_total"}),
		CircleFitDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sonde_etl", Name: "circle_fit_duration_seconds"}),
	}
}
