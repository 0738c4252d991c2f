package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"vendor-service/internal/handler"
	mid "vendor-service/internal/middleware"
	"vendor-service/internal/repository"
	"vendor-service/internal/validation"
	"vendor-service/pkg/config"
	"vendor-service/pkg/database"
	"vendor-service/pkg/events"
	"vendor-service/pkg/jwtutil"
	"vendor-service/pkg/logger"
	"vendor-service/pkg/oauth"
	"vendor-service/prometheus"
)

// Dependencies are the collaborators the HTTP surface is built from
type Dependencies struct {
	Vendors   repository.VendorStore
	Profiles  repository.ProfileStore
	Accounts  repository.AccountStore
	Sessions  database.Opener
	DB        handler.Pinger
	Provider  handler.OAuthProvider
	Cache     oauth.TokenCache
	Publisher events.Publisher
	JWT       *jwtutil.JWTUtil
	Metrics   *prometheus.Metrics
	Gatherer  prom.Gatherer
}

// PublicPaths are reachable without a bearer token
func PublicPaths() []string {
	return append([]string{"/"}, oauth.DefaultPublicPaths...)
}

// New builds the echo instance with middleware and routes
func New(cfg *config.Config, deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Validator = validation.New()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(deps.Metrics.Middleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
	}))

	auth := oauth.NewAuthenticator(deps.Provider, deps.Cache, cfg.Cache.TTL, logger.GetLogger(), deps.Metrics)
	e.Use(oauth.Middleware(auth, PublicPaths(), deps.Metrics))

	// Metrics endpoint
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prom.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Health check endpoint
	health := handler.NewHealthHandler(deps.DB, cfg.ServiceName)
	e.GET("/", health.Hello)
	e.GET("/health", health.HealthCheck)

	// Data routes share one session per request; events go out after commit
	scoped := []echo.MiddlewareFunc{
		events.Middleware(deps.Publisher),
		database.SessionMiddleware(deps.Sessions),
	}

	handler.NewVendorHandler(deps.Vendors, deps.Metrics).Register(e.Group("/v1/vendors", scoped...))
	handler.NewProfileHandler(deps.Profiles, deps.Vendors, deps.Metrics).Register(e.Group("/v1/profiles", scoped...))
	handler.NewMainHandler(deps.Vendors, deps.Profiles).Register(e.Group("/v1/main", scoped...))
	handler.NewAccountHandler(deps.Provider, deps.Accounts, deps.JWT, cfg.IsProduction()).
		Register(e.Group("/accounts", database.SessionMiddleware(deps.Sessions)))

	return e
}

// Run serves e on the configured port until ctx is cancelled, then drains
// in-flight requests for at most the shutdown timeout
func Run(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	log := logger.GetLogger()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("Server stopped")
	return nil
}
