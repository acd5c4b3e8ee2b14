package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"

	keyPrefix = "gatekeeper:idempotency:"
)

// Record is the stored state of a key.
type Record struct {
	Status      string
	CompletedAt time.Time
}

// Store persists idempotency records and locks.
type Store interface {
	Lock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, key string, record *Record, ttl time.Duration) error
	ReleaseLock(ctx context.Context, key string) error
}

// RedisStore keeps records in hashes and locks in SETNX keys.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{
		client: client,
		log:    log,
	}
}

func (s *RedisStore) Lock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	acquired, err := s.client.SetNX(ctx, lockKey(key), StatusProcessing, lockTTL).Result()
	if err != nil {
		s.log.Error("failed to acquire idempotency lock", slog.String("key", key), slog.Any("error", err))
		return false, err
	}

	return acquired, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	result, err := s.client.HGetAll(ctx, recordKey(key)).Result()
	if err != nil {
		s.log.Error("failed to fetch idempotency record", slog.String("key", key), slog.Any("error", err))
		return nil, err
	}

	if len(result) == 0 {
		return nil, nil
	}

	record := &Record{Status: result["status"]}
	if raw := result["completed_at"]; raw != "" {
		completedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			s.log.Warn("malformed idempotency timestamp", slog.String("key", key), slog.String("value", raw))
		} else {
			record.CompletedAt = completedAt
		}
	}

	return record, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, record *Record, ttl time.Duration) error {
	if record == nil {
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, recordKey(key), map[string]any{
		"status":       record.Status,
		"completed_at": record.CompletedAt.Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, recordKey(key), ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error("failed to store idempotency record", slog.String("key", key), slog.Any("error", err))
		return err
	}

	return nil
}

func (s *RedisStore) ReleaseLock(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, lockKey(key)).Err(); err != nil {
		s.log.Error("failed to release idempotency lock", slog.String("key", key), slog.Any("error", err))
		return err
	}

	return nil
}

func recordKey(key string) string {
	return fmt.Sprintf("%s%s", keyPrefix, key)
}

func lockKey(key string) string {
	return fmt.Sprintf("%s%s:lock", keyPrefix, key)
}
