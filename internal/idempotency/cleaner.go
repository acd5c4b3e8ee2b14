package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cleaner removes idempotency keys that lost their expiry or carry one longer
// than maxTTL.
type Cleaner struct {
	client   *redis.Client
	log      *slog.Logger
	interval time.Duration
	maxTTL   time.Duration
}

func NewCleaner(client *redis.Client, log *slog.Logger, interval, maxTTL time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		client:   client,
		log:      log,
		interval: interval,
		maxTTL:   maxTTL,
	}
}

func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.client == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *Cleaner) cleanup(ctx context.Context) int {
	var (
		cursor  uint64
		err     error
		removed int
	)

	for {
		var keys []string
		keys, cursor, err = c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			c.log.Error("idempotency cleaner scan failed", slog.Any("error", err))
			return removed
		}

		for _, key := range keys {
			ttl, err := c.client.TTL(ctx, key).Result()
			if err != nil {
				c.log.Warn("failed to get key ttl", slog.String("key", key), slog.Any("error", err))
				continue
			}

			// -1 means no expiry; -2 means the key vanished meanwhile
			if ttl == -1 || ttl > c.maxTTL {
				if err := c.client.Del(ctx, key).Err(); err != nil {
					c.log.Warn("failed to delete stale idempotency key", slog.String("key", key), slog.Any("error", err))
					continue
				}
				removed++
			}
		}

		if cursor == 0 {
			break
		}
	}

	if removed > 0 {
		c.log.Info("idempotency keys cleaned", slog.Int("keys_removed", removed))
	}

	return removed
}
