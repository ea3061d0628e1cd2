// Package cache keeps learner state in Redis. A Cache satisfies studied.KV.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultDialTimeout = 5 * time.Second
	defaultIOTimeout   = 3 * time.Second
)

// Options configures the Redis connection.
type Options struct {
	URL    string
	Prefix string // prepended to every key, e.g. "study:"

	DialTimeout time.Duration // 5s when zero
	IOTimeout   time.Duration // read and write, 3s when zero
}

// Cache is a prefixed view of one Redis database.
type Cache struct {
	Client *redis.Client
	prefix string
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// ClientOptions turns opts into go-redis options, filling in timeouts.
func ClientOptions(opts Options) (*redis.Options, error) {
	ro, err := ParseURL(opts.URL)
	if err != nil {
		return nil, err
	}
	ro.DialTimeout = orDefault(opts.DialTimeout, defaultDialTimeout)
	ro.ReadTimeout = orDefault(opts.IOTimeout, defaultIOTimeout)
	ro.WriteTimeout = ro.ReadTimeout
	return ro, nil
}

// New connects and pings Redis.
func New(ctx context.Context, opts Options) (*Cache, error) {
	ro, err := ClientOptions(opts)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(ro)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}
	return &Cache{Client: client, prefix: opts.Prefix}, nil
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// Get returns the value stored under key, reporting false when it is absent.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.Client.Get(ctx, c.key(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key. Redis expires it after ttl; zero keeps it.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.Client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck pings Redis.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
