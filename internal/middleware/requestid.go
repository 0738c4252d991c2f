package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"vendor-service/pkg/logger"
)

// RequestIDKey is the echo.Context key holding the request id
const RequestIDKey = "request_id"

// RequestIDMiddleware adds a unique request ID to each request. An inbound
// X-Request-ID is kept so ids follow a call across services.
func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
			c.Request().Header.Set(echo.HeaderXRequestID, requestID)
		}
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)

		c.Set(RequestIDKey, requestID)

		// Add request ID to logger context
		logger.SetEcho(c, logger.GetLogger().With(zap.String("request_id", requestID)))

		return next(c)
	}
}
