package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vendor-service/internal/model"
	"vendor-service/internal/repository"
	"vendor-service/internal/server"
	"vendor-service/pkg/config"
	"vendor-service/pkg/database"
	"vendor-service/pkg/events"
	"vendor-service/pkg/jwtutil"
	"vendor-service/pkg/logger"
	"vendor-service/pkg/oauth"
	"vendor-service/prometheus"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "Run schema migrations before serving")
}

// bootstrap loads configuration and initializes the global logger
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger.GetLogger(), nil
}

func serve(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("Starting "+serviceName, cfg.LogFields()...)

	// Initialize Prometheus metrics
	reg := prom.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := prometheus.NewMetrics(cfg.Metrics.Prefix, reg)
	log.Info("Prometheus metrics initialized", zap.String("metrics_prefix", cfg.Metrics.Prefix))

	// Initialize database
	db, err := database.InitDB(&cfg.DB, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}()

	if autoMigrate {
		if err := database.MigrateModels(db, model.All()...); err != nil {
			return err
		}
		log.Info("Database migrations applied")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get database object: %w", err)
	}

	cache, closeCache, err := newTokenCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	publisher := events.New(events.KafkaConfig{
		Broker:   cfg.Kafka.Broker,
		Topic:    cfg.Kafka.Topic,
		Username: cfg.Kafka.Username,
		Password: cfg.Kafka.Password,
	}, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("Failed to close event publisher", zap.Error(err))
		}
	}()

	oauthClient := oauth.NewClient(oauth.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURI:  cfg.OAuth.RedirectURI,
		AuthorizeURL: cfg.OAuth.AuthorizeURL,
		TokenURL:     cfg.OAuth.TokenURL,
		ValidateURL:  cfg.OAuth.ValidateURL,
		Scopes:       cfg.OAuth.Scopes,
		Timeout:      cfg.OAuth.Timeout,
	}, log, metrics)

	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey: cfg.JWT.SigningKey,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	e := server.New(cfg, server.Dependencies{
		Vendors:   repository.NewVendorRepository(db, metrics),
		Profiles:  repository.NewProfileRepository(db, cfg.ProfileParentID, metrics),
		Accounts:  repository.NewAccountRepository(db, metrics),
		Sessions:  database.NewGormOpener(db),
		DB:        sqlDB,
		Provider:  oauthClient,
		Cache:     cache,
		Publisher: publisher,
		JWT:       jwt,
		Metrics:   metrics,
		Gatherer:  reg,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx, e, cfg)
}

// newTokenCache builds the configured token cache backend
func newTokenCache(ctx context.Context, cfg *config.Config) (oauth.TokenCache, func(), error) {
	log := logger.GetLogger()

	switch cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		log.Info("Token cache backed by redis", zap.String("addr", cfg.Redis.Addr))
		return oauth.NewRedisCache(client), func() { _ = client.Close() }, nil
	default:
		log.Info("Token cache in memory",
			zap.Int("max_entries", cfg.Cache.MaxEntries),
			zap.Duration("ttl", cfg.Cache.TTL))
		return oauth.NewMemoryCache(cfg.Cache.MaxEntries, cfg.Cache.TTL), func() {}, nil
	}
}
