package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// Limiter is a fixed-window request counter kept in Redis, shared by every
// API instance pointing at the same Redis.
type Limiter struct {
	redis  redis.Cmdable
	limit  int64
	window time.Duration
}

func New(client redis.Cmdable, limit int, window time.Duration) *Limiter {
	return &Limiter{
		redis:  client,
		limit:  int64(limit),
		window: window,
	}
}

// NewFromURL connects to the Redis at url and checks it answers.
func NewFromURL(ctx context.Context, url string, limit int, window time.Duration) (*Limiter, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(client, limit, window), client, nil
}

// Allow counts one request for key and reports whether it is within the limit.
// The increment and the window expiry are sent as one MULTI/EXEC so a key can
// never be left without a TTL. EXPIRE NX only sets the TTL on the first hit of
// a window, so later hits do not extend it.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	k := keyPrefix + key
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("count %s: %w", k, err)
	}
	return incr.Val() <= l.limit, nil
}
