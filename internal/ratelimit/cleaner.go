package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cleaner sweeps the sliding-window sets under "gatekeeper:ratelimit:". A user
// who stops messaging leaves a set behind until PEXPIRE fires; the sweep drops
// events older than maxAge and deletes sets that end up empty, so the keyspace
// tracks active users only. It runs as a main worker next to the Redis limiter.
type Cleaner struct {
	redisClient *redis.Client
	log         *slog.Logger
	interval    time.Duration
	maxAge      time.Duration
}

// NewCleaner returns a Cleaner sweeping every interval. maxAge defaults to 5m.
func NewCleaner(client *redis.Client, log *slog.Logger, interval, maxAge time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}

	return &Cleaner{
		redisClient: client,
		log:         log,
		interval:    interval,
		maxAge:      maxAge,
	}
}

// Run sweeps on every tick until ctx is done.
func (c *Cleaner) Run(ctx context.Context) {
	if c.redisClient == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("rate limit cleaner stopped", slog.String("reason", ctx.Err().Error()))
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// cleanup reports how many user sets were deleted.
func (c *Cleaner) cleanup(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	cutoff := time.Now().Add(-c.maxAge).UnixMilli()
	removed := 0

	iter := c.redisClient.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		empty, err := c.trim(ctx, key, cutoff)
		if err != nil {
			c.log.Warn("rate limit sweep failed", slog.String("key", key), slog.Any("error", err))
			continue
		}
		if empty {
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Error("rate limit scan failed", slog.Any("error", err))
	}

	if removed > 0 {
		c.log.Info("rate limit keys cleaned", slog.Int("keys_removed", removed))
	}
	return removed
}

// trim drops events at or before cutoff and deletes key once nothing is left.
func (c *Cleaner) trim(ctx context.Context, key string, cutoff int64) (bool, error) {
	pipe := c.redisClient.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%d", cutoff))
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	if card.Val() > 0 {
		return false, nil
	}
	return true, c.redisClient.Del(ctx, key).Err()
}
