// Package state keeps the per-user lookup mode selected through the mode menu.
package state

import (
	"context"
	"errors"
)

// ErrSessionNotFound indicates that the user has no stored session.
var ErrSessionNotFound = errors.New("session not found")

// Storage defines the persistence contract for user sessions.
type Storage interface {
	// GetSession returns the session for userID or ErrSessionNotFound.
	GetSession(ctx context.Context, userID int64) (*Session, error)
	// SetSession saves the session for userID, replacing any previous one.
	SetSession(ctx context.Context, userID int64, session *Session) error
	// ClearSession removes the session for userID.
	ClearSession(ctx context.Context, userID int64) error
	// AllSessions returns a snapshot of every stored session.
	AllSessions(ctx context.Context) ([]*Session, error)
}
