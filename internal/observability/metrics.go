package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ecoagg"

// Task outcome label values.
const (
	TaskComplete  = "complete"
	TaskNoNewData = "no_new_data"
	TaskUpdated   = "updated"
	TaskFailed    = "failed"
)

// Metrics holds the Prometheus counters, histograms, and gauges for reconciliation
// and summary runs.
type Metrics struct {
	PeriodsRequested prometheus.Counter
	PeriodsExtracted prometheus.Counter
	PeriodsSkipped   *prometheus.CounterVec // labels: source
	ArchiveRows      prometheus.Counter
	Tasks            *prometheus.CounterVec // labels: status={complete,no_new_data,updated,failed}
	TaskDuration     prometheus.Histogram
	RunInProgress    prometheus.Gauge

	// Raster service metrics.
	RasterRequests *prometheus.CounterVec // labels: outcome={success,error}
	RasterCache    *prometheus.CounterVec // labels: result={hit,miss}
	RasterDuration prometheus.Histogram

	// Summary metrics.
	SummariesWritten prometheus.Counter
	SummaryRows      prometheus.Counter
	DegenerateBase   prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PeriodsRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "periods_requested_total",
			Help:      "Missing months submitted for extraction.",
		}),
		PeriodsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "periods_extracted_total",
			Help:      "Months successfully extracted from the raster service.",
		}),
		PeriodsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "periods_skipped_total",
			Help:      "Months whose extraction failed and were left for the next pass.",
		}, []string{"source"}),
		ArchiveRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_rows_written_total",
			Help:      "Rows written to archives across all persists.",
		}),
		Tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Reconciliation tasks by final status.",
		}, []string{"status"}),
		TaskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of one (region, source) reconciliation.",
			Buckets:   []float64{0.1, 1, 10, 30, 60, 300, 900, 3600},
		}),
		RunInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_in_progress",
			Help:      "1 while a reconciliation run is active, 0 otherwise.",
		}),
		RasterRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raster_requests_total",
			Help:      "Raster reduce requests by outcome.",
		}, []string{"outcome"}),
		RasterCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raster_cache_total",
			Help:      "Raster cache lookups by result.",
		}, []string{"result"}),
		RasterDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "raster_request_duration_seconds",
			Help:      "Raster reduce request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SummariesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_written_total",
			Help:      "Per-region summary tables written.",
		}),
		SummaryRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_rows_total",
			Help:      "Summary rows emitted.",
		}),
		DegenerateBase: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_baselines_total",
			Help:      "Variables whose observed baseline was zero or missing.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PeriodsRequested,
		m.PeriodsExtracted,
		m.PeriodsSkipped,
		m.ArchiveRows,
		m.Tasks,
		m.TaskDuration,
		m.RunInProgress,
		m.RasterRequests,
		m.RasterCache,
		m.RasterDuration,
		m.SummariesWritten,
		m.SummaryRows,
		m.DegenerateBase,
	}
}
