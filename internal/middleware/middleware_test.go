package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendor-service/pkg/jwtutil"
	"vendor-service/pkg/logger"
)

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(RequestIDMiddleware)
	e.GET("/", func(c echo.Context) error {
		assert.NotNil(t, logger.FromEcho(c))
		assert.Same(t, logger.FromEcho(c), logger.FromContext(c.Request().Context()))
		return c.String(http.StatusOK, c.Get(RequestIDKey).(string))
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := rec.Header().Get(echo.HeaderXRequestID)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "upstream-id")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", rec.Header().Get(echo.HeaderXRequestID))
}

func TestSessionTokenMiddleware(t *testing.T) {
	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "k", Expiration: time.Hour, Issuer: "vendor-service"})
	other := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "other", Expiration: time.Hour, Issuer: "vendor-service"})

	valid, _, err := jwt.GenerateToken(9)
	require.NoError(t, err)
	forged, _, err := other.GenerateToken(9)
	require.NoError(t, err)

	e := echo.New()
	e.POST("/refresh", func(c echo.Context) error {
		id, ok := SessionUserID(c)
		require.True(t, ok)
		assert.Equal(t, uint(9), id)
		return c.NoContent(http.StatusNoContent)
	}, SessionTokenMiddleware(jwt))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + valid, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"wrong key", "Bearer " + forged, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
			}
		})
	}
}
