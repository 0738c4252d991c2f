package prometheus

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsRequestsByRoute(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/v1/vendors/:id", func(c echo.Context) error {
		if c.Param("id") == "0" {
			return echo.NewHTTPError(http.StatusNotFound, "Vendor not found")
		}
		return c.NoContent(http.StatusOK)
	})

	for _, path := range []string{"/v1/vendors/1", "/v1/vendors/2", "/v1/vendors/0"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HttpRequestsTotal.WithLabelValues("GET", "/v1/vendors/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HttpRequestsTotal.WithLabelValues("GET", "/v1/vendors/:id", "404")))
}

func TestRecorders(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordAuthSuccess(10 * time.Millisecond)
	m.RecordAuthError("missing_token")
	m.RecordCacheLookup("hit")
	m.RecordCacheLookup("hit")
	m.RecordOAuthRequest("validate", nil)
	m.RecordOAuthRequest("validate", errors.New("boom"))
	m.RecordVendorOperation("create")
	m.RecordProfileOperation("delete")
	m.TrackDBOperation("query")(time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthSuccessCounter))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthErrorsCounter.WithLabelValues("missing_token")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokenCacheCounter.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OAuthRequestsCounter.WithLabelValues("validate", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VendorOperationsCounter.WithLabelValues("create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProfileOperationsCounter.WithLabelValues("delete")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAuthSuccess(time.Second)
		m.RecordAuthError("x")
		m.RecordCacheLookup("miss")
		m.RecordOAuthRequest("token", nil)
		m.RecordVendorOperation("list")
		m.RecordProfileOperation("list")
		m.TrackDBOperation("query")(time.Now())
	})
}
