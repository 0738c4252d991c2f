package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the PostgreSQL connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Env             string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// OAuthConfig holds the upstream OAuth client settings
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthorizeURL string
	TokenURL     string
	ValidateURL  string
	Scopes       []string
	Timeout      time.Duration
}

// JWTConfig holds configuration for locally signed session tokens
type JWTConfig struct {
	SigningKey string
	Expiration time.Duration
	Issuer     string
}

// CacheConfig holds token cache configuration
type CacheConfig struct {
	Backend    string
	TTL        time.Duration
	MaxEntries int
}

// RedisConfig holds redis connection settings for the redis cache backend
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds the change event producer settings
type KafkaConfig struct {
	Broker   string
	Topic    string
	Username string
	Password string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// Config holds all configuration
type Config struct {
	ServiceName     string
	ProfileParentID uint
	DB              DBConfig
	Server          ServerConfig
	OAuth           OAuthConfig
	JWT             JWTConfig
	Cache           CacheConfig
	Redis           RedisConfig
	Kafka           KafkaConfig
	Log             LogConfig
	Metrics         MetricsConfig
}

const defaultScopes = "customer.profile.read vendor.profile.read vendor.product.read order-processing"

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load(serviceName string) (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	config := &Config{
		ServiceName:     serviceName,
		ProfileParentID: uint(getEnvAsInt("PROFILE_PARENT_ID", 5)),
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "qc"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 30),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "development"),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", ",", []string{"*"}),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		OAuth: OAuthConfig{
			ClientID:     getEnv("OAUTH_CLIENT_ID", ""),
			ClientSecret: getEnv("OAUTH_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("OAUTH_REDIRECT_URI", "http://localhost:8080/accounts/callback"),
			AuthorizeURL: getEnv("OAUTH_AUTHORIZE_URL", "https://basalam.com/accounts/sso"),
			TokenURL:     getEnv("OAUTH_TOKEN_URL", "https://auth.basalam.com/oauth/token"),
			ValidateURL:  getEnv("OAUTH_VALIDATE_URL", "https://core.basalam.com/v3/users/me"),
			Scopes:       getEnvAsList("OAUTH_SCOPES", " ", strings.Fields(defaultScopes)),
			Timeout:      getEnvAsDuration("OAUTH_TIMEOUT", 10*time.Second),
		},
		JWT: JWTConfig{
			SigningKey: getEnv("JWT_SIGNING_KEY", "defaultsecretkey"),
			Expiration: getEnvAsDuration("JWT_EXPIRATION", 24*time.Hour),
			Issuer:     getEnv("JWT_ISSUER", serviceName),
		},
		Cache: CacheConfig{
			Backend:    getEnv("AUTH_CACHE_BACKEND", "memory"),
			TTL:        getEnvAsDuration("AUTH_CACHE_TTL", 5*time.Minute),
			MaxEntries: getEnvAsInt("AUTH_CACHE_MAX_ENTRIES", 10000),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Broker:   getEnv("KAFKA_BROKER", ""),
			Topic:    getEnv("KAFKA_TOPIC", "vendor-events"),
			Username: getEnv("KAFKA_USERNAME", ""),
			Password: getEnv("KAFKA_PASSWORD", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", strings.ReplaceAll(serviceName, "-", "_")),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks settings that have no safe default
func (c *Config) Validate() error {
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("unsupported AUTH_CACHE_BACKEND %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return errors.New("AUTH_CACHE_TTL must be positive")
	}
	if c.JWT.Expiration <= 0 {
		return errors.New("JWT_EXPIRATION must be positive")
	}
	if c.IsProduction() {
		if c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "" {
			return errors.New("OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET are required in production")
		}
		if c.JWT.SigningKey == "" || c.JWT.SigningKey == "defaultsecretkey" {
			return errors.New("JWT_SIGNING_KEY must be set in production")
		}
	}
	return nil
}

// IsProduction reports whether the service runs with APP_ENV=production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// LogFields returns the non-secret part of the configuration as zap fields
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("db_host", c.DB.Host),
		zap.String("db_port", c.DB.Port),
		zap.String("db_user", c.DB.User),
		zap.String("db_name", c.DB.DBName),
		zap.String("server_port", c.Server.Port),
		zap.String("auth_cache_backend", c.Cache.Backend),
		zap.Duration("auth_cache_ttl", c.Cache.TTL),
		zap.Bool("kafka_enabled", c.Kafka.Broker != ""),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to split an environment variable into a list
func getEnvAsList(key, sep string, defaultValue []string) []string {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, part := range strings.Split(valueStr, sep) {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
