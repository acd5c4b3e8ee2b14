package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/gatekeeper-bot/internal/domain"
	apperrors "github.com/Proton-105/gatekeeper-bot/internal/errors"
)

// PostgresStore keeps user records in the users table and global flags in the flags table.
type PostgresStore struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPostgresStore creates a SQL-backed Store. The schema comes from the migrations directory.
func NewPostgresStore(db *sql.DB, log *slog.Logger) *PostgresStore {
	if log == nil {
		log = slog.Default()
	}

	return &PostgresStore{db: db, log: log}
}

// Get returns the stored record or an empty record when absent.
func (s *PostgresStore) Get(ctx context.Context, userID string) (*domain.UserRecord, error) {
	const query = `
		SELECT start_time, premium_until
		FROM users
		WHERE id = $1
	`

	var startTime, premiumUntil sql.NullTime
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&startTime, &premiumUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.UserRecord{}, nil
		}

		s.log.Error("failed to fetch user record", slog.String("user_id", userID), slog.Any("error", err))
		return nil, apperrors.NewStorageError(fmt.Errorf("select user record: %w", err))
	}

	return recordFromNull(startTime, premiumUntil), nil
}

// Put overwrites the record for userID.
func (s *PostgresStore) Put(ctx context.Context, userID string, record *domain.UserRecord) error {
	const query = `
		INSERT INTO users (id, start_time, premium_until, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET start_time = EXCLUDED.start_time,
		    premium_until = EXCLUDED.premium_until,
		    updated_at = NOW()
	`

	if record == nil {
		record = &domain.UserRecord{}
	}

	if _, err := s.db.ExecContext(ctx, query, userID, nullTime(record.StartTime), nullTime(record.PremiumUntil)); err != nil {
		s.log.Error("failed to save user record", slog.String("user_id", userID), slog.Any("error", err))
		return apperrors.NewStorageError(fmt.Errorf("upsert user record: %w", err))
	}

	return nil
}

// All returns every stored record.
func (s *PostgresStore) All(ctx context.Context) (map[string]*domain.UserRecord, error) {
	const query = `SELECT id, start_time, premium_until FROM users`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Errorf("list user records: %w", err))
	}
	defer rows.Close()

	records := make(map[string]*domain.UserRecord)
	for rows.Next() {
		var (
			userID                  string
			startTime, premiumUntil sql.NullTime
		)
		if err := rows.Scan(&userID, &startTime, &premiumUntil); err != nil {
			return nil, apperrors.NewStorageError(fmt.Errorf("scan user record: %w", err))
		}
		records[userID] = recordFromNull(startTime, premiumUntil)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError(fmt.Errorf("iterate user records: %w", err))
	}

	return records, nil
}

// Maintenance reports the maintenance flag, false when never set.
func (s *PostgresStore) Maintenance(ctx context.Context) (bool, error) {
	const query = `SELECT enabled FROM flags WHERE name = $1`

	var enabled bool
	if err := s.db.QueryRowContext(ctx, query, maintenanceFlag).Scan(&enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, apperrors.NewStorageError(fmt.Errorf("select maintenance flag: %w", err))
	}

	return enabled, nil
}

// SetMaintenance stores the maintenance flag.
func (s *PostgresStore) SetMaintenance(ctx context.Context, enabled bool) error {
	const query = `
		INSERT INTO flags (name, enabled, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE
		SET enabled = EXCLUDED.enabled, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, maintenanceFlag, enabled); err != nil {
		return apperrors.NewStorageError(fmt.Errorf("upsert maintenance flag: %w", err))
	}
	return nil
}

// HealthCheck pings the database.
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return sql.ErrConnDone
	}
	return s.db.PingContext(ctx)
}

func recordFromNull(startTime, premiumUntil sql.NullTime) *domain.UserRecord {
	record := &domain.UserRecord{}
	if startTime.Valid {
		record.StartTime = startTime.Time
	}
	if premiumUntil.Valid {
		record.PremiumUntil = premiumUntil.Time
	}
	return record
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
