package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"vendor-service/pkg/jwtutil"
	"vendor-service/pkg/logger"
	"vendor-service/pkg/oauth"
)

// SessionUserIDKey is the echo.Context key holding the user id of a
// validated session token
const SessionUserIDKey = "session_user_id"

// SessionTokenFormField is the form field accepted when no bearer is sent
const SessionTokenFormField = "session_token"

// SessionTokenMiddleware validates the locally signed session JWT, taken from
// the bearer header or the session_token form field, and stores its user id.
func SessionTokenMiddleware(jwt *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			tokenString := strings.TrimSpace(c.FormValue(SessionTokenFormField))
			if authHeader := c.Request().Header.Get(echo.HeaderAuthorization); authHeader != "" {
				token, ok := oauth.BearerToken(authHeader)
				if !ok {
					log.Warn("Invalid Authorization header format")
					return sessionUnauthorized(c, "Invalid authorization format, expected Bearer token")
				}
				tokenString = token
			}
			if tokenString == "" {
				log.Warn("Missing session token")
				return sessionUnauthorized(c, "Session token is required")
			}

			claims, err := jwt.ValidateToken(tokenString)
			if err != nil {
				log.Warn("Invalid session token", zap.Error(err))
				return sessionUnauthorized(c, "Invalid or expired session token")
			}

			userID, err := claims.UserID()
			if err != nil {
				log.Warn("Session token without user", zap.Error(err))
				return sessionUnauthorized(c, "Invalid or expired session token")
			}

			c.Set(SessionUserIDKey, userID)
			logger.SetEcho(c, log.With(zap.Uint("user_id", userID)))

			return next(c)
		}
	}
}

// SessionUserID returns the user id stored by SessionTokenMiddleware
func SessionUserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(SessionUserIDKey).(uint)
	return id, ok && id != 0
}

func sessionUnauthorized(c echo.Context, detail string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return echo.NewHTTPError(http.StatusUnauthorized, detail)
}
