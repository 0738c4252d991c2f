package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load("vendor-service")
	require.NoError(t, err)

	assert.Equal(t, "vendor-service", cfg.ServiceName)
	assert.Equal(t, uint(5), cfg.ProfileParentID)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, "vendor_service", cfg.Metrics.Prefix)
	assert.NotEmpty(t, cfg.OAuth.Scopes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_MAX_OPEN_CONNS", "42")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("AUTH_CACHE_TTL", "90s")
	t.Setenv("AUTH_CACHE_BACKEND", "redis")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("OAUTH_SCOPES", "vendor.profile.read  order-processing")

	cfg, err := Load("vendor-service")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 42, cfg.DB.MaxOpenConns)
	assert.Equal(t, logger.Silent, cfg.DB.LogLevel)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []string{"vendor.profile.read", "order-processing"}, cfg.OAuth.Scopes)
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_MAX_IDLE_CONNS", "many")
	t.Setenv("DB_CONN_MAX_LIFETIME", "forever")

	cfg, err := Load("vendor-service")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.DB.MaxIdleConns)
	assert.Equal(t, time.Hour, cfg.DB.ConnMaxLifetime)
}

func TestValidate(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	t.Run("unknown cache backend", func(t *testing.T) {
		t.Setenv("AUTH_CACHE_BACKEND", "memcached")
		_, err := Load("vendor-service")
		assert.ErrorContains(t, err, "AUTH_CACHE_BACKEND")
	})

	t.Run("production requires oauth credentials", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("OAUTH_CLIENT_ID", "")
		_, err := Load("vendor-service")
		assert.ErrorContains(t, err, "OAUTH_CLIENT_ID")
	})

	t.Run("production requires a signing key", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("OAUTH_CLIENT_ID", "id")
		t.Setenv("OAUTH_CLIENT_SECRET", "secret")
		_, err := Load("vendor-service")
		assert.ErrorContains(t, err, "JWT_SIGNING_KEY")
	})
}

func TestGetDSN(t *testing.T) {
	c := DBConfig{Host: "h", Port: "1", User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=d sslmode=disable", c.GetDSN())
}
