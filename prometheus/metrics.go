package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors the service exports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec

	// Authentication metrics
	AuthSuccessCounter    prometheus.Counter
	AuthErrorsCounter     *prometheus.CounterVec
	AuthDurationHistogram prometheus.Histogram

	// Token cache metrics
	TokenCacheCounter *prometheus.CounterVec

	// Upstream OAuth calls
	OAuthRequestsCounter *prometheus.CounterVec

	// Database operation metrics
	DbOperationDuration *prometheus.HistogramVec

	// Vendor and profile metrics
	VendorOperationsCounter  *prometheus.CounterVec
	ProfileOperationsCounter *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg
func NewMetrics(prefix string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HttpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HttpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		AuthSuccessCounter: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_auth_success_total",
				Help: "Total number of successful authentications",
			},
		),
		AuthErrorsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_auth_errors_total",
				Help: "Total number of authentication errors",
			},
			[]string{"reason"},
		),
		AuthDurationHistogram: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    prefix + "_auth_duration_seconds",
				Help:    "Time spent authenticating a request",
				Buckets: prometheus.DefBuckets,
			},
		),
		TokenCacheCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_token_cache_lookups_total",
				Help: "Token cache lookups by result (hit, miss, expired)",
			},
			[]string{"result"},
		),
		OAuthRequestsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_oauth_requests_total",
				Help: "Outbound OAuth requests by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		DbOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_db_operation_duration_seconds",
				Help:    "Duration of database operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation_type"},
		),
		VendorOperationsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_vendor_operations_total",
				Help: "Total number of vendor operations",
			},
			[]string{"operation"},
		),
		ProfileOperationsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_profile_operations_total",
				Help: "Total number of profile operations",
			},
			[]string{"operation"},
		),
	}
}

// Middleware records request count and duration per route
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil && !c.Response().Committed {
				status = http.StatusInternalServerError
			}
			labels := []string{c.Request().Method, c.Path(), strconv.Itoa(status)}

			m.HttpRequestsTotal.WithLabelValues(labels...).Inc()
			m.HttpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// TrackDBOperation returns a function that records the duration of a database operation
func (m *Metrics) TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		if m == nil {
			return
		}
		m.DbOperationDuration.WithLabelValues(operationType).Observe(time.Since(startTime).Seconds())
	}
}

// RecordAuthSuccess records a successful authentication and how long it took
func (m *Metrics) RecordAuthSuccess(duration time.Duration) {
	if m == nil {
		return
	}
	m.AuthSuccessCounter.Inc()
	m.AuthDurationHistogram.Observe(duration.Seconds())
}

// RecordAuthError increments the auth error counter for reason
func (m *Metrics) RecordAuthError(reason string) {
	if m == nil {
		return
	}
	m.AuthErrorsCounter.WithLabelValues(reason).Inc()
}

// RecordCacheLookup increments the token cache counter for result
func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.TokenCacheCounter.WithLabelValues(result).Inc()
}

// RecordOAuthRequest increments the outbound OAuth request counter
func (m *Metrics) RecordOAuthRequest(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.OAuthRequestsCounter.WithLabelValues(operation, outcome).Inc()
}

// RecordVendorOperation increments the counter for vendor operations
func (m *Metrics) RecordVendorOperation(operation string) {
	if m == nil {
		return
	}
	m.VendorOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordProfileOperation increments the counter for profile operations
func (m *Metrics) RecordProfileOperation(operation string) {
	if m == nil {
		return
	}
	m.ProfileOperationsCounter.WithLabelValues(operation).Inc()
}
