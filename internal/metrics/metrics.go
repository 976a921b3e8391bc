package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the analytics service.
type Metrics struct {
	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	// Snapshot metrics
	SnapshotLoads      *prometheus.CounterVec
	SnapshotLoadErrors *prometheus.CounterVec
	SnapshotLoadTime   prometheus.Histogram
	SnapshotAge        prometheus.Gauge
	SnapshotRows       *prometheus.GaugeVec

	// Engine metrics
	AnalysisRuns    *prometheus.CounterVec
	AnalysisLatency *prometheus.HistogramVec
	AnomaliesFound  *prometheus.CounterVec

	// Report metrics
	ReportsBuilt     prometheus.Counter
	ReportBuildTime  prometheus.Histogram
	ReportCacheHits  prometheus.Counter
	ReportCacheMiss  prometheus.Counter

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

var (
	// DefaultMetrics is the global metrics instance
	DefaultMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"path", "method", "status"},
		),
		HTTPLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"path"},
		),

		// Snapshot metrics
		SnapshotLoads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_loads_total",
				Help:      "Total dataset snapshot loads",
			},
			[]string{"source"},
		),
		SnapshotLoadErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_load_errors_total",
				Help:      "Dataset snapshot load failures",
			},
			[]string{"source", "reason"},
		),
		SnapshotLoadTime: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "snapshot_load_duration_seconds",
				Help:      "Dataset snapshot load duration",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15},
			},
		),
		SnapshotAge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_age_seconds",
				Help:      "Age of the currently served snapshot",
			},
		),
		SnapshotRows: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_rows",
				Help:      "Row counts per table in the current snapshot",
			},
			[]string{"table"},
		),

		// Engine metrics
		AnalysisRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analysis_runs_total",
				Help:      "Analysis component executions",
			},
			[]string{"component", "status"},
		),
		AnalysisLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Analysis component execution time",
				Buckets:   []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"component"},
		),
		AnomaliesFound: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "anomalies_detected_total",
				Help:      "Sales anomalies detected by status",
			},
			[]string{"status"},
		),

		// Report metrics
		ReportsBuilt: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reports_built_total",
				Help:      "Management reports generated",
			},
		),
		ReportBuildTime: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "report_build_duration_seconds",
				Help:      "Management report build time",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		ReportCacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_cache_hits_total",
				Help:      "Report cache hits",
			},
		),
		ReportCacheMiss: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_cache_misses_total",
				Help:      "Report cache misses",
			},
		),

		// Rate limiting metrics
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"endpoint", "ip"},
		),
	}

	DefaultMetrics = m
	return m
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(path, method, status string, latency time.Duration) {
	m.HTTPRequests.WithLabelValues(path, method, status).Inc()
	m.HTTPLatency.WithLabelValues(path).Observe(latency.Seconds())
}

// RecordSnapshotLoad records a successful snapshot load.
func (m *Metrics) RecordSnapshotLoad(source string, duration time.Duration) {
	m.SnapshotLoads.WithLabelValues(source).Inc()
	m.SnapshotLoadTime.Observe(duration.Seconds())
}

// RecordSnapshotError records a failed snapshot load.
func (m *Metrics) RecordSnapshotError(source, reason string) {
	m.SnapshotLoadErrors.WithLabelValues(source, reason).Inc()
}

// UpdateSnapshotAge updates the age gauge for the served snapshot.
func (m *Metrics) UpdateSnapshotAge(loadedAt time.Time) {
	m.SnapshotAge.Set(time.Since(loadedAt).Seconds())
}

// UpdateSnapshotRows updates the per-table row count gauge.
func (m *Metrics) UpdateSnapshotRows(table string, rows int) {
	m.SnapshotRows.WithLabelValues(table).Set(float64(rows))
}

// RecordAnalysis records an analysis component run.
func (m *Metrics) RecordAnalysis(component, status string, latency time.Duration) {
	m.AnalysisRuns.WithLabelValues(component, status).Inc()
	m.AnalysisLatency.WithLabelValues(component).Observe(latency.Seconds())
}

// RecordAnomaly records a detected anomaly status.
func (m *Metrics) RecordAnomaly(status string) {
	m.AnomaliesFound.WithLabelValues(status).Inc()
}

// RecordReportBuild records a generated management report.
func (m *Metrics) RecordReportBuild(duration time.Duration) {
	m.ReportsBuilt.Inc()
	m.ReportBuildTime.Observe(duration.Seconds())
}

// RecordReportCache records a report cache lookup result.
func (m *Metrics) RecordReportCache(hit bool) {
	if hit {
		m.ReportCacheHits.Inc()
	} else {
		m.ReportCacheMiss.Inc()
	}
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(endpoint, ip string) {
	m.RateLimitHits.WithLabelValues(endpoint, ip).Inc()
}
