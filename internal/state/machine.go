package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// TransitionRecorder observes mode changes, typically for metrics.
type TransitionRecorder func(from, to Mode)

// Sessions is the mode-selection state machine used by the handlers.
type Sessions interface {
	// Mode returns the user's selected mode, or ModeNone.
	Mode(ctx context.Context, userID int64) (Mode, error)
	// Select moves the user to the given mode from any state.
	Select(ctx context.Context, userID int64, mode Mode) error
	// Clear returns the user to ModeNone.
	Clear(ctx context.Context, userID int64) error
	// Snapshot lists every stored session.
	Snapshot(ctx context.Context) ([]*Session, error)
}

type sessions struct {
	storage  Storage
	log      *slog.Logger
	recorder TransitionRecorder
}

// NewSessions creates a Sessions controller over storage. recorder may be nil.
func NewSessions(storage Storage, log *slog.Logger, recorder TransitionRecorder) Sessions {
	if log == nil {
		log = slog.Default()
	}
	if recorder == nil {
		recorder = func(Mode, Mode) {}
	}

	return &sessions{
		storage:  storage,
		log:      log,
		recorder: recorder,
	}
}

func (s *sessions) Mode(ctx context.Context, userID int64) (Mode, error) {
	session, err := s.storage.GetSession(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return ModeNone, nil
		}
		return ModeNone, err
	}
	if session == nil {
		return ModeNone, nil
	}

	return session.Mode, nil
}

func (s *sessions) Select(ctx context.Context, userID int64, mode Mode) error {
	current, err := s.Mode(ctx, userID)
	if err != nil {
		return err
	}

	if !IsTransitionAllowed(current, mode) {
		s.log.Warn("invalid mode transition", slog.Int64("user_id", userID), slog.String("from", current.String()), slog.String("to", mode.String()))
		return fmt.Errorf("%w: %q", ErrInvalidMode, string(mode))
	}

	if err := s.storage.SetSession(ctx, userID, &Session{UserID: userID, Mode: mode}); err != nil {
		return err
	}

	s.recorder(current, mode)
	s.log.Debug("mode selected", slog.Int64("user_id", userID), slog.String("mode", mode.String()))

	return nil
}

func (s *sessions) Clear(ctx context.Context, userID int64) error {
	current, err := s.Mode(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.storage.ClearSession(ctx, userID); err != nil {
		return err
	}

	if current != ModeNone {
		s.recorder(current, ModeNone)
	}

	return nil
}

func (s *sessions) Snapshot(ctx context.Context) ([]*Session, error) {
	return s.storage.AllSessions(ctx)
}
