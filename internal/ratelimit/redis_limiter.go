package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gatekeeper:ratelimit:"

// slidingWindow trims the window, counts it and records the event only when
// it fits. Returns {admitted, count}.
var slidingWindow = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])
if count >= limit then
	return {0, count}
end

redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, count + 1}
`)

// RedisLimiter keeps one sorted set of event timestamps (ms) per key.
type RedisLimiter struct {
	client *redis.Client
	log    *slog.Logger
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a Redis-backed Limiter.
func NewRedisLimiter(client *redis.Client, log *slog.Logger) *RedisLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &RedisLimiter{
		client: client,
		log:    log,
	}
}

// Check evaluates and records one event for key atomically.
func (l *RedisLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if l.client == nil {
		return nil, errors.New("redis client is not configured for rate limiting")
	}

	now := time.Now()
	if limit <= 0 {
		return newResult(false, 0, 0, now.Add(window)), ErrLimitExceeded
	}

	reply, err := slidingWindow.Run(ctx, l.client, []string{keyPrefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		l.log.Error("rate limiter script failed", slog.String("key", key), slog.Any("error", err))
		return nil, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if len(reply) != 2 {
		return nil, fmt.Errorf("rate limit %s: unexpected reply %v", key, reply)
	}

	result := newResult(reply[0] == 1, int(reply[1]), limit, now.Add(window))
	if !result.Allowed {
		return result, ErrLimitExceeded
	}

	return result, nil
}
