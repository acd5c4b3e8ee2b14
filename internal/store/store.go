// Package store persists per-user access records and global flags.
package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/Proton-105/gatekeeper-bot/internal/domain"
)

// ErrInvalidUserID is returned for ids that cannot belong to a Telegram user.
var ErrInvalidUserID = errors.New("invalid user id")

// Store is the persistence contract for access records.
//
// Put overwrites the whole record; concurrent writers to the same id are
// last-writer-wins.
type Store interface {
	// Get returns the stored record or an empty record for unknown ids.
	Get(ctx context.Context, userID string) (*domain.UserRecord, error)
	// Put replaces the record stored for userID.
	Put(ctx context.Context, userID string, record *domain.UserRecord) error
	// All returns a snapshot of every stored record keyed by user id.
	All(ctx context.Context) (map[string]*domain.UserRecord, error)
	// Maintenance reports the global maintenance flag.
	Maintenance(ctx context.Context) (bool, error)
	// SetMaintenance sets the global maintenance flag.
	SetMaintenance(ctx context.Context, enabled bool) error
	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error
}

// UserKey renders a Telegram user id as a store key.
func UserKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// ParseUserID validates an externally supplied user id.
func ParseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidUserID
	}
	return id, nil
}
