// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Fetch metrics
	FetchAttempts   *prometheus.CounterVec
	FetchFallbacks  prometheus.Counter
	FetchFailures   *prometheus.CounterVec
	FetchSuperseded prometheus.Counter
	FetchLatency    *prometheus.HistogramVec

	// Gateway metrics
	GatewayState      prometheus.Gauge
	GatewayReconnects prometheus.Counter
	GatewayDataDrops  *prometheus.CounterVec
	RequestLatency    *prometheus.HistogramVec

	// Refresh metrics
	RefreshRuns     *prometheus.CounterVec
	RefreshKicks    prometheus.Counter
	RefreshDuration *prometheus.HistogramVec

	// Token book metrics
	TokensTracked   prometheus.Gauge
	PatchesApplied  prometheus.Counter
	PatchesRejected *prometheus.CounterVec

	// Mint cache metrics
	MintValidations *prometheus.CounterVec
	MintCacheSize   prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRefresh *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "contest_dashboard"
	}

	return &Metrics{
		// Fetch metrics
		FetchAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "attempts_total",
			Help:      "Total number of fetch attempts by resource and path",
		}, []string{"resource", "path"}),
		FetchFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "fallbacks_total",
			Help:      "Total number of gateway fetches that fell back to REST",
		}),
		FetchFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "failures_total",
			Help:      "Total number of fetches where both paths failed",
		}, []string{"resource"}),
		FetchSuperseded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "superseded_total",
			Help:      "Total number of fetch results discarded by a newer attempt",
		}),
		FetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "latency_seconds",
			Help:      "Fetch latency in seconds by resource and path",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource", "path"}),

		// Gateway metrics
		GatewayState: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "connection_state",
			Help:      "Gateway connection state (0=disconnected, 1=connecting, 2=connected)",
		}),
		GatewayReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "reconnects_total",
			Help:      "Total number of gateway reconnects",
		}),
		GatewayDataDrops: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "data_drops_total",
			Help:      "Total number of data messages dropped by topic",
		}, []string{"topic"}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_latency_seconds",
			Help:      "Gateway request/response round trip latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"topic"}),

		// Refresh metrics
		RefreshRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "runs_total",
			Help:      "Total number of refresh runs by scheduler and status",
		}, []string{"scheduler", "status"}),
		RefreshKicks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "kicks_total",
			Help:      "Total number of manual refresh kicks",
		}),
		RefreshDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "duration_seconds",
			Help:      "Refresh run duration in seconds by scheduler",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"scheduler"}),

		// Token book metrics
		TokensTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "tracked",
			Help:      "Current number of tokens in the book",
		}),
		PatchesApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "patches_applied_total",
			Help:      "Total number of token patches applied",
		}),
		PatchesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "patches_rejected_total",
			Help:      "Total number of token patches rejected by reason",
		}, []string{"reason"}),

		// Mint cache metrics
		MintValidations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mintcache",
			Name:      "validations_total",
			Help:      "Total number of mint validations by outcome",
		}, []string{"outcome"}),
		MintCacheSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mintcache",
			Name:      "size",
			Help:      "Current number of cached mint validation results",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRefresh: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last successful refresh by scheduler",
		}, []string{"scheduler"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFetch records a fetch attempt outcome.
func RecordFetch(resource, path string, seconds float64) {
	DefaultMetrics.FetchAttempts.WithLabelValues(resource, path).Inc()
	DefaultMetrics.FetchLatency.WithLabelValues(resource, path).Observe(seconds)
}

// RecordFallback increments the gateway-to-REST fallback counter.
func RecordFallback() {
	DefaultMetrics.FetchFallbacks.Inc()
}

// RecordFetchFailure records a fetch where both paths failed.
func RecordFetchFailure(resource string) {
	DefaultMetrics.FetchFailures.WithLabelValues(resource).Inc()
}

// RecordSuperseded increments the superseded fetch counter.
func RecordSuperseded() {
	DefaultMetrics.FetchSuperseded.Inc()
}

// UpdateGatewayState sets the connection state gauge.
func UpdateGatewayState(state int) {
	DefaultMetrics.GatewayState.Set(float64(state))
}

// RecordRefreshRun records a scheduler run.
func RecordRefreshRun(scheduler, status string, durationSeconds float64) {
	DefaultMetrics.RefreshRuns.WithLabelValues(scheduler, status).Inc()
	DefaultMetrics.RefreshDuration.WithLabelValues(scheduler).Observe(durationSeconds)
}

// RecordMintValidation records a mint validation outcome.
func RecordMintValidation(outcome string) {
	DefaultMetrics.MintValidations.WithLabelValues(outcome).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
