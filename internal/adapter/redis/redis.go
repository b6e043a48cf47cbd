// Package redis implements the durable client storage port on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"storefront/internal/domain"
)

var _ domain.KeyValueStore = (*Store)(nil)

// Store keeps client storage values as plain Redis strings under a key
// prefix.
type Store struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Options configures Open.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key, e.g. "storefront:".
	Prefix string
	// TTL expires values not written for this long. Zero keeps them forever.
	TTL time.Duration
}

// Open connects to Redis and pings it.
func Open(opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis addr required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, opts.Prefix, opts.TTL), nil
}

// New wraps an existing client.
func New(rdb goredis.UniversalClient, prefix string, ttl time.Duration) *Store {
	return &Store{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.rdb.Set(ctx, s.prefix+key, value, s.ttl).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.rdb.Close()
}
