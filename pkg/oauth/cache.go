package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// CacheKeyPrefix namespaces token entries in shared caches
const CacheKeyPrefix = "auth:token:"

// Identity is the caller a bearer token resolved to
type Identity struct {
	UserID   uint   `json:"user_id"`
	ClientID string `json:"client_id,omitempty"`
	Scope    string `json:"scope,omitempty"`
}

// CacheEntry is a validated token with the moment it stops being trusted
type CacheEntry struct {
	Identity  Identity  `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenCache stores validation results keyed by CacheKeyPrefix + token.
// Implementations must be safe for concurrent use.
type TokenCache interface {
	Get(ctx context.Context, key string) (CacheEntry, bool, error)
	Set(ctx context.Context, key string, entry CacheEntry) error
	Delete(ctx context.Context, key string) error
}

// MemoryCache is a size-bounded in-process LRU whose entries also expire
// after a fixed TTL.
type MemoryCache struct {
	lru *expirable.LRU[string, CacheEntry]
}

// NewMemoryCache creates a cache holding at most size entries for at most ttl
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{lru: expirable.NewLRU[string, CacheEntry](size, nil, ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (CacheEntry, bool, error) {
	entry, ok := m.lru.Get(key)
	return entry, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, entry CacheEntry) error {
	m.lru.Add(key, entry)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

// Len returns the number of live entries
func (m *MemoryCache) Len() int {
	return m.lru.Len()
}

// RedisCache shares validation results between service replicas
type RedisCache struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisCache creates a cache on top of client
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, now: time.Now}
}

func (r *RedisCache) Get(ctx context.Context, key string) (CacheEntry, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return CacheEntry{}, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return entry, true, nil
}

// Set stores entry until its ExpiresAt; already expired entries are dropped
func (r *RedisCache) Set(ctx context.Context, key string, entry CacheEntry) error {
	ttl := entry.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := r.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
