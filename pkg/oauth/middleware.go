package oauth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"vendor-service/pkg/logger"
	"vendor-service/prometheus"
)

const (
	// IdentityKey is the echo.Context key holding the caller's *Identity
	IdentityKey = "identity"
	// UserIDKey is the echo.Context key holding the caller's user id
	UserIDKey = "user_id"
)

// DefaultPublicPaths are reachable without a bearer token
var DefaultPublicPaths = []string{
	"/health",
	"/metrics",
	"/accounts/login",
	"/accounts/callback",
	"/accounts/refresh",
	"/accounts/client-token",
}

// IsPublicPath reports whether path is on the allowlist. Entries match by
// prefix, except "/" which only matches the root itself.
func IsPublicPath(path string, publicPaths []string) bool {
	for _, p := range publicPaths {
		if p == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// BearerToken extracts the token from an "Authorization: Bearer" header
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// Middleware authenticates every request outside publicPaths
func Middleware(auth *Authenticator, publicPaths []string, metrics *prometheus.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IsPublicPath(c.Request().URL.Path, publicPaths) {
				return next(c)
			}

			start := time.Now()
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				metrics.RecordAuthError("missing_token")
				return unauthorized(c, "Authorization header is required")
			}

			token, ok := BearerToken(authHeader)
			if !ok {
				metrics.RecordAuthError("malformed_header")
				return unauthorized(c, "Invalid authorization format, expected Bearer token")
			}

			identity, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				log.Warn("Authentication failed", zap.Error(err))
				switch {
				case errors.Is(err, ErrInactiveToken):
					metrics.RecordAuthError("inactive_token")
					return unauthorized(c, "The token is inactive or expired")
				case errors.Is(err, ErrMissingIdentity):
					metrics.RecordAuthError("missing_identity")
					return unauthorized(c, "The token is not bound to a user")
				default:
					metrics.RecordAuthError("invalid_token")
					return unauthorized(c, "The access token is invalid")
				}
			}

			metrics.RecordAuthSuccess(time.Since(start))

			c.Set(IdentityKey, identity)
			c.Set(UserIDKey, identity.UserID)
			logger.SetEcho(c, log.With(zap.Uint("user_id", identity.UserID)))

			return next(c)
		}
	}
}

// IdentityFromEcho returns the identity set by Middleware
func IdentityFromEcho(c echo.Context) (*Identity, bool) {
	identity, ok := c.Get(IdentityKey).(*Identity)
	return identity, ok && identity != nil
}

func unauthorized(c echo.Context, detail string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return echo.NewHTTPError(http.StatusUnauthorized, detail)
}
