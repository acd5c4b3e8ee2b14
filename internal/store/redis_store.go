package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/Proton-105/gatekeeper-bot/internal/domain"
	apperrors "github.com/Proton-105/gatekeeper-bot/internal/errors"
)

const (
	usersHashKey    = "gatekeeper:users"
	flagsHashKey    = "gatekeeper:flags"
	maintenanceFlag = "maintenance"
)

// RedisStore keeps user records and global flags in two separate Redis hashes,
// so no user id can ever shadow a flag.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
}

// NewRedisStore initializes a Redis-backed Store.
func NewRedisStore(client *redis.Client, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{client: client, log: log}
}

// Get returns the stored record or an empty record when absent.
func (s *RedisStore) Get(ctx context.Context, userID string) (*domain.UserRecord, error) {
	data, err := s.client.HGet(ctx, usersHashKey, userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &domain.UserRecord{}, nil
		}

		s.log.Error("failed to get user record from redis", slog.String("user_id", userID), slog.Any("error", err))
		return nil, apperrors.NewStorageError(fmt.Errorf("get user record: %w", err))
	}

	return decodeRecord(userID, data)
}

// Put overwrites the record for userID.
func (s *RedisStore) Put(ctx context.Context, userID string, record *domain.UserRecord) error {
	if record == nil {
		record = &domain.UserRecord{}
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return apperrors.NewStorageError(fmt.Errorf("encode user record: %w", err))
	}

	if err := s.client.HSet(ctx, usersHashKey, userID, payload).Err(); err != nil {
		s.log.Error("failed to save user record in redis", slog.String("user_id", userID), slog.Any("error", err))
		return apperrors.NewStorageError(fmt.Errorf("put user record: %w", err))
	}

	return nil
}

// All returns every stored record in one HGETALL round trip.
func (s *RedisStore) All(ctx context.Context) (map[string]*domain.UserRecord, error) {
	raw, err := s.client.HGetAll(ctx, usersHashKey).Result()
	if err != nil {
		s.log.Error("failed to list user records", slog.Any("error", err))
		return nil, apperrors.NewStorageError(fmt.Errorf("list user records: %w", err))
	}

	records := make(map[string]*domain.UserRecord, len(raw))
	for userID, data := range raw {
		record, err := decodeRecord(userID, data)
		if err != nil {
			s.log.Warn("skipping undecodable user record", slog.String("user_id", userID), slog.Any("error", err))
			continue
		}
		records[userID] = record
	}

	return records, nil
}

// Maintenance reports the maintenance flag, false when never set.
func (s *RedisStore) Maintenance(ctx context.Context) (bool, error) {
	value, err := s.client.HGet(ctx, flagsHashKey, maintenanceFlag).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, apperrors.NewStorageError(fmt.Errorf("get maintenance flag: %w", err))
	}

	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return false, apperrors.NewStorageError(fmt.Errorf("parse maintenance flag %q: %w", value, err))
	}
	return enabled, nil
}

// SetMaintenance stores the maintenance flag.
func (s *RedisStore) SetMaintenance(ctx context.Context, enabled bool) error {
	if err := s.client.HSet(ctx, flagsHashKey, maintenanceFlag, strconv.FormatBool(enabled)).Err(); err != nil {
		return apperrors.NewStorageError(fmt.Errorf("set maintenance flag: %w", err))
	}
	return nil
}

// HealthCheck pings Redis.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func decodeRecord(userID, data string) (*domain.UserRecord, error) {
	var record domain.UserRecord
	if data == "" {
		return &record, nil
	}
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, apperrors.NewStorageError(fmt.Errorf("decode user record %s: %w", userID, err))
	}
	return &record, nil
}
