package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cems_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL.
type Metrics struct {
	SourcesLoaded     *prometheus.CounterVec // labels: outcome={success,error}
	RowsAppended      prometheus.Counter
	RowsMissingOffset prometheus.Counter
	StoreRows         prometheus.Gauge
	IngestRunning     prometheus.Gauge
	LoadDuration      prometheus.Histogram

	// Sink metrics.
	RowsPublished prometheus.Counter
	PublishErrors prometheus.Counter

	// Archive fetch metrics.
	FetchRequests *prometheus.CounterVec // labels: outcome={success,error,not_found}
	FetchCache    *prometheus.CounterVec // labels: result={hit,miss}
	FetchDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SourcesLoaded,
		m.RowsAppended,
		m.RowsMissingOffset,
		m.StoreRows,
		m.IngestRunning,
		m.LoadDuration,
		m.RowsPublished,
		m.PublishErrors,
		m.FetchRequests,
		m.FetchCache,
		m.FetchDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SourcesLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sources_loaded_total",
			Help:      "Monthly state source files processed, by outcome.",
		}, []string{"outcome"}),
		RowsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_appended_total",
			Help:      "Total emission rows committed to the store.",
		}),
		RowsMissingOffset: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_missing_offset_total",
			Help:      "Committed rows whose facility has no UTC offset.",
		}),
		StoreRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_rows",
			Help:      "Rows currently held in the emissions store.",
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_running",
			Help:      "1 while a load run is in progress, 0 otherwise.",
		}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of retrieving, parsing and committing one source.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RowsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_published_total",
			Help:      "Total rows written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Batches that failed to publish to the sink topic.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Archive download requests by outcome.",
		}, []string{"outcome"}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_cache_total",
			Help:      "Archive cache lookups by result.",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Archive download duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}
