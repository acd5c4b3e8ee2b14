package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/Proton-105/gatekeeper-bot/internal/errors"
)

const (
	sessionKeyPattern  = "gatekeeper:session:%d"
	sessionScanPattern = "gatekeeper:session:*"
	sessionScanCount   = 100
)

// RedisStorage persists sessions in Redis without expiry, so a selected mode
// survives restarts.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
}

// NewRedisStorage initializes a Redis-backed Storage implementation.
func NewRedisStorage(client *redis.Client, log *slog.Logger) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStorage{
		client: client,
		log:    log,
	}
}

// GetSession returns the stored session or ErrSessionNotFound when absent.
func (s *RedisStorage) GetSession(ctx context.Context, userID int64) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}

		s.log.Error("failed to get session from redis", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, apperrors.NewStorageError(fmt.Errorf("get session: %w", err))
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		s.log.Error("failed to decode session", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, apperrors.NewStorageError(fmt.Errorf("decode session: %w", err))
	}

	return &session, nil
}

// SetSession saves the session with no TTL.
func (s *RedisStorage) SetSession(ctx context.Context, userID int64, session *Session) error {
	if session == nil {
		return nil
	}

	stored := *session
	stored.UserID = userID
	stored.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(stored)
	if err != nil {
		return apperrors.NewStorageError(fmt.Errorf("encode session: %w", err))
	}

	if err := s.client.Set(ctx, sessionKey(userID), data, 0).Err(); err != nil {
		s.log.Error("failed to save session in redis", slog.Int64("user_id", userID), slog.Any("error", err))
		return apperrors.NewStorageError(fmt.Errorf("set session: %w", err))
	}

	return nil
}

// ClearSession removes the stored session for the given user.
func (s *RedisStorage) ClearSession(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		s.log.Error("failed to clear session", slog.Int64("user_id", userID), slog.Any("error", err))
		return apperrors.NewStorageError(fmt.Errorf("clear session: %w", err))
	}

	return nil
}

// AllSessions retrieves every stored session by scanning Redis keys.
func (s *RedisStorage) AllSessions(ctx context.Context) ([]*Session, error) {
	var (
		cursor uint64
		result []*Session
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, sessionScanPattern, sessionScanCount).Result()
		if err != nil {
			s.log.Error("failed to scan sessions", slog.Any("error", err))
			return nil, apperrors.NewStorageError(fmt.Errorf("scan sessions: %w", err))
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}

				s.log.Error("failed to fetch session", slog.String("key", key), slog.Any("error", err))
				return nil, apperrors.NewStorageError(fmt.Errorf("get session %s: %w", key, err))
			}

			var session Session
			if err := json.Unmarshal([]byte(data), &session); err != nil {
				s.log.Warn("skipping undecodable session", slog.String("key", key), slog.Any("error", err))
				continue
			}

			result = append(result, &session)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func sessionKey(userID int64) string {
	return fmt.Sprintf(sessionKeyPattern, userID)
}
