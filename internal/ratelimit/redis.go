package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// RedisLimiter shares windows between instances through INCR and EXPIRE.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisClient parses url and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k := keyPrefix + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("incr %s: %w", k, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("expire %s: %w", k, err)
		}
	}

	ttl, err := l.client.PTTL(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("pttl %s: %w", k, err)
	}
	if ttl < 0 {
		// key lost its expiry (crash between INCR and EXPIRE)
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("expire %s: %w", k, err)
		}
		ttl = l.window
	}
	return result(count, l.limit, ttl), nil
}
