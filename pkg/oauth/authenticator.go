package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"vendor-service/prometheus"
)

var (
	ErrMissingToken    = errors.New("missing bearer token")
	ErrInvalidToken    = errors.New("invalid access token")
	ErrInactiveToken   = errors.New("access token is inactive or expired")
	ErrMissingIdentity = errors.New("token validation returned no user")
)

// Validator resolves a bearer token with the upstream provider
type Validator interface {
	ValidateToken(ctx context.Context, token string) (*TokenValidationResponse, error)
}

// Authenticator resolves bearer tokens to identities, consulting the cache
// before the upstream validator.
type Authenticator struct {
	validator Validator
	cache     TokenCache
	ttl       time.Duration
	now       func() time.Time
	group     singleflight.Group
	logger    *zap.Logger
	metrics   *prometheus.Metrics
}

// NewAuthenticator creates an Authenticator trusting validated tokens for ttl
func NewAuthenticator(validator Validator, cache TokenCache, ttl time.Duration, logger *zap.Logger, metrics *prometheus.Metrics) *Authenticator {
	return &Authenticator{
		validator: validator,
		cache:     cache,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
		metrics:   metrics,
	}
}

// Authenticate returns the identity behind token
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	key := CacheKeyPrefix + token

	entry, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		// A broken cache degrades to validating every request
		a.logger.Warn("Token cache lookup failed", zap.Error(err))
	}
	switch {
	case ok && a.now().Before(entry.ExpiresAt):
		a.metrics.RecordCacheLookup("hit")
		identity := entry.Identity
		return &identity, nil
	case ok:
		a.metrics.RecordCacheLookup("expired")
		if err := a.cache.Delete(ctx, key); err != nil {
			a.logger.Warn("Failed to evict expired token", zap.Error(err))
		}
	default:
		a.metrics.RecordCacheLookup("miss")
	}

	// Concurrent misses on one token share a single upstream call
	v, err, _ := a.group.Do(key, func() (interface{}, error) {
		return a.validate(context.WithoutCancel(ctx), key, token)
	})
	if err != nil {
		return nil, err
	}
	identity := v.(Identity)
	return &identity, nil
}

func (a *Authenticator) validate(ctx context.Context, key, token string) (Identity, error) {
	resp, err := a.validator.ValidateToken(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !resp.IsActive() {
		return Identity{}, ErrInactiveToken
	}

	userID := resp.ResolvedUserID()
	if userID == 0 {
		return Identity{}, ErrMissingIdentity
	}

	identity := Identity{
		UserID:   userID,
		ClientID: resp.ClientID,
		Scope:    resp.Scope,
	}

	now := a.now()
	expiresAt := now.Add(a.ttl)
	if resp.Exp > 0 {
		if tokenExp := time.Unix(resp.Exp, 0); tokenExp.Before(expiresAt) {
			expiresAt = tokenExp
		}
	}
	if !expiresAt.After(now) {
		return Identity{}, ErrInactiveToken
	}

	if err := a.cache.Set(ctx, key, CacheEntry{Identity: identity, ExpiresAt: expiresAt}); err != nil {
		a.logger.Warn("Failed to cache validated token", zap.Error(err))
	}

	return identity, nil
}
