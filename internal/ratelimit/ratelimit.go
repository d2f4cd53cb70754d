// Package ratelimit counts attempts per client IP and purpose in fixed
// windows.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Limiter interface {
	// Allow records one attempt and reports whether it is within budget.
	Allow(ctx context.Context, purpose, ip string) (bool, error)
}

// counter is the subset of redis.Cmdable the limiter needs.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisLimiter allows max attempts per window. The window starts with the
// first attempt and is not extended by later ones.
type RedisLimiter struct {
	client counter
	max    int64
	window time.Duration
}

func NewRedisLimiter(client redis.Cmdable, max int64, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, max: max, window: window}
}

func key(purpose, ip string) string {
	return fmt.Sprintf("ratelimit:%s:%s", purpose, ip)
}

func (l *RedisLimiter) Allow(ctx context.Context, purpose, ip string) (bool, error) {
	k := key(purpose, ip)

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("increment %s: %w", k, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", k, err)
		}
	} else if count > l.max {
		// An Expire lost after the first attempt would otherwise lock the
		// key out for good.
		if err := l.restoreWindow(ctx, k); err != nil {
			return false, err
		}
	}
	return count <= l.max, nil
}

func (l *RedisLimiter) restoreWindow(ctx context.Context, k string) error {
	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("ttl %s: %w", k, err)
	}
	if ttl != -1 {
		return nil
	}
	if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
		return fmt.Errorf("expire %s: %w", k, err)
	}
	return nil
}

// Noop allows every attempt. It stands in when Redis is not configured.
type Noop struct{}

func (Noop) Allow(context.Context, string, string) (bool, error) {
	return true, nil
}

// Connect opens a Redis client and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
