package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps sessions in a process-local map. Entries live until
// cleared or the process exits.
type MemoryStorage struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewMemoryStorage creates an empty in-memory Storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{sessions: make(map[int64]Session)}
}

func (s *MemoryStorage) GetSession(_ context.Context, userID int64) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[userID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *MemoryStorage) SetSession(_ context.Context, userID int64, session *Session) error {
	if session == nil {
		return nil
	}

	stored := *session
	stored.UserID = userID
	stored.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.sessions[userID] = stored
	s.mu.Unlock()

	return nil
}

func (s *MemoryStorage) ClearSession(_ context.Context, userID int64) error {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()

	return nil
}

func (s *MemoryStorage) AllSessions(_ context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		copied := session
		result = append(result, &copied)
	}

	return result, nil
}
