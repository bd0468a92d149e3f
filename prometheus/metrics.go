package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counter
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "identity_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Provisioning counter
	ProvisionCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "identity_provision_total",
			Help: "Total number of staff provisioning attempts",
		},
	)

	// Claims sync counter
	ClaimsSyncCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "identity_claims_sync_total",
			Help: "Total number of claims synchronizations",
		},
	)

	// Tenant resolution counter by source
	TenantResolutionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_tenant_resolutions_total",
			Help: "Total number of tenant resolutions by source",
		},
		[]string{"source"}, // source can be "claims", "profile", "none"
	)

	// Ownership transfer counter
	OwnershipTransferCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "identity_ownership_transfers_total",
			Help: "Total number of ownership transfer attempts",
		},
	)

	// Impersonated read counter
	ImpersonatedReadCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_impersonated_reads_total",
			Help: "Total number of reads issued under an impersonated tenant",
		},
		[]string{"view_tenant"},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_auth_errors_total",
			Help: "Total number of authentication and authorization errors",
		},
		[]string{"type"}, // type can be "missing_token", "invalid_token", "forbidden" etc.
	)

	// Backfill counter by collection and outcome
	BackfillDocCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_backfill_documents_total",
			Help: "Total number of backfilled documents by collection and outcome",
		},
		[]string{"collection", "outcome"}, // outcome is "updated", "skipped" or "errored"
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "identity_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "identity_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	// Active tokens
	ActiveTokensGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "identity_active_tokens",
			Help: "Number of currently active session tokens",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "identity_info",
			Help: "Information about the identity service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(ProvisionCounter)
	prometheus.MustRegister(ClaimsSyncCounter)
	prometheus.MustRegister(TenantResolutionCounter)
	prometheus.MustRegister(OwnershipTransferCounter)
	prometheus.MustRegister(ImpersonatedReadCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(BackfillDocCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	// Register gauges
	prometheus.MustRegister(ActiveTokensGauge)
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// IncreaseActiveTokens increments the active tokens gauge
func IncreaseActiveTokens() {
	ActiveTokensGauge.Inc()
}

// DecreaseActiveTokens decrements the active tokens gauge
func DecreaseActiveTokens() {
	ActiveTokensGauge.Dec()
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordTenantResolution records a tenant resolution by source
func RecordTenantResolution(source string) {
	TenantResolutionCounter.With(prometheus.Labels{"source": source}).Inc()
}

// RecordImpersonatedRead records a read issued under an impersonated tenant
func RecordImpersonatedRead(viewTenant string) {
	ImpersonatedReadCounter.With(prometheus.Labels{"view_tenant": viewTenant}).Inc()
}

// RecordBackfillDocs records backfill outcomes for a collection
func RecordBackfillDocs(collection, outcome string, count int64) {
	BackfillDocCounter.With(prometheus.Labels{
		"collection": collection,
		"outcome":    outcome,
	}).Add(float64(count))
}
