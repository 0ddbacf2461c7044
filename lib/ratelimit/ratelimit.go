// Package ratelimit implements a fixed-window request limiter backed by Redis.
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// Limiter defines the method the service uses to guard upstream calls.
type Limiter interface {
	// Allow reports whether another request identified by key fits in the current window.
	Allow(ctx context.Context, key string) (bool, error)
}

// Redis implements Limiter counting requests in Redis. Each key gets its own window: the first increment sets the
// window TTL, further increments ride it until it expires.
type Redis struct {
	c      *redis.Client
	limit  int64
	window time.Duration
}

// New connects to the Redis instance at uri and returns a limiter allowing limit requests per window.
func New(uri string, limit int, window time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("cannot parse redis uri %s: %w", uri, err)
	}

	c := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err = c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cannot connect to redis in %s: %w", uri, err)
	}

	log.Printf("Connected to %s", uri)

	return &Redis{c: c, limit: int64(limit), window: window}, nil
}

// CloseRedis will close the Redis connection. Must be called at termination time.
func (r *Redis) CloseRedis() error {
	return r.c.Close()
}

// Allow increments the counter for key and reports whether the count still fits the limit.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := "rate_limit:" + key

	n, err := r.c.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("cannot increment rate limiter: %w", err)
	}

	if n == 1 {
		if err = r.c.Expire(ctx, k, r.window).Err(); err != nil {
			return false, fmt.Errorf("cannot set rate limiter window: %w", err)
		}
	}

	return n <= r.limit, nil
}
