// Package cache wraps an AuthPrincipalProvider with a Redis-backed
// cache, so the common case (a small, slowly-changing set of access
// keys) doesn't round-trip to Postgres on every signed request.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/riverstone-dns/zonectl/internal/core/domain"
	"github.com/riverstone-dns/zonectl/internal/core/ports"
)

const keyPrefix = "zonectl:principal:"

// CachedPrincipalProvider decorates a ports.AuthPrincipalProvider with
// a Redis cache keyed by access key. Cached values carry the
// principal's secret exactly as the source returned it (still
// encrypted, if encryption is enabled) — caching never changes its
// lifecycle state.
type CachedPrincipalProvider struct {
	source ports.AuthPrincipalProvider
	client *redis.Client
	ttl    time.Duration
}

// NewCachedPrincipalProvider wraps source with a Redis cache at addr,
// holding entries for ttl.
func NewCachedPrincipalProvider(source ports.AuthPrincipalProvider, addr string, ttl time.Duration) *CachedPrincipalProvider {
	return &CachedPrincipalProvider{
		source: source,
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

// newCachedPrincipalProviderWithClient lets tests inject a client
// pointed at an in-process Redis instance.
func newCachedPrincipalProviderWithClient(source ports.AuthPrincipalProvider, client *redis.Client, ttl time.Duration) *CachedPrincipalProvider {
	return &CachedPrincipalProvider{source: source, client: client, ttl: ttl}
}

type cachedPrincipal struct {
	UserID    string   `json:"userId"`
	AccessKey string   `json:"accessKey"`
	SecretKey string   `json:"secretKey"`
	Groups    []string `json:"groups"`
	Found     bool     `json:"found"`
}

// GetAuthPrincipal serves from cache when present, falling through to
// source and populating the cache (including negative results, so a
// hammering unknown access key doesn't repeatedly hit Postgres) on a
// miss.
func (c *CachedPrincipalProvider) GetAuthPrincipal(ctx context.Context, accessKey string) (*domain.Principal, error) {
	key := keyPrefix + accessKey

	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var cached cachedPrincipal
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			if !cached.Found {
				return nil, nil
			}
			return &domain.Principal{
				UserID: cached.UserID, AccessKey: cached.AccessKey,
				SecretKey: cached.SecretKey, Groups: cached.Groups,
			}, nil
		}
	} else if err != redis.Nil {
		return nil, fmt.Errorf("reading principal cache for %s: %w", accessKey, err)
	}

	principal, err := c.source.GetAuthPrincipal(ctx, accessKey)
	if err != nil {
		return nil, err
	}

	entry := cachedPrincipal{Found: principal != nil}
	if principal != nil {
		entry.UserID = principal.UserID
		entry.AccessKey = principal.AccessKey
		entry.SecretKey = principal.SecretKey
		entry.Groups = principal.Groups
	}
	if encoded, jsonErr := json.Marshal(entry); jsonErr == nil {
		c.client.Set(ctx, key, encoded, c.ttl)
	}

	return principal, nil
}

// Invalidate removes accessKey from the cache, for use after a
// principal's secret is rotated or revoked.
func (c *CachedPrincipalProvider) Invalidate(ctx context.Context, accessKey string) error {
	return c.client.Del(ctx, keyPrefix+accessKey).Err()
}

// Ping verifies connectivity to Redis, for health checks.
func (c *CachedPrincipalProvider) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
