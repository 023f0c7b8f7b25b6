// Package redis wraps go-redis for the consent decision cache. Redis is
// optional: an empty URL disables it and callers treat a nil client as a
// cache miss on every lookup.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mrcreams_consent_cache_hits_total",
		Help: "Number of consent decision lookups served from Redis",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mrcreams_consent_cache_misses_total",
		Help: "Number of consent decision lookups that fell through to the database",
	})
)

// Client wraps the go-redis client with health checking capabilities.
type Client struct {
	rdb *redis.Client
}

// New creates a Redis client from a URL. Returns nil (no error) when the URL
// is empty, meaning the cache is not configured.
func New(url string) (*Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewFromClient wraps an existing go-redis client. Tests use this with miniredis.
func NewFromClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// GetBool reads a cached boolean. The second return reports whether the key
// was present; any transport error counts as a miss.
func (c *Client) GetBool(ctx context.Context, key string) (bool, bool) {
	if c == nil {
		return false, false
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		cacheMisses.Inc()
		return false, false
	}
	cacheHits.Inc()
	return val == "1", true
}

// SetBool stores a boolean with a TTL. Best-effort: errors are ignored since
// the database remains the source of truth.
func (c *Client) SetBool(ctx context.Context, key string, value bool, ttl time.Duration) {
	if c == nil {
		return
	}
	val := "0"
	if value {
		val = "1"
	}
	_ = c.rdb.Set(ctx, key, val, ttl).Err()
}

// Delete drops keys, used to invalidate cached decisions after a write.
func (c *Client) Delete(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	_ = c.rdb.Del(ctx, keys...).Err()
}

// HealthCheck verifies Redis is reachable, for the readiness probe.
func (c *Client) HealthCheck() error {
	if c == nil {
		return fmt.Errorf("redis not configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
