package state

import "errors"

// ErrInvalidMode indicates that a mode name is not one of the lookup modes.
var ErrInvalidMode = errors.New("invalid lookup mode")

// IsTransitionAllowed reports whether a session may move from one mode to
// another. Any state, including a stale unknown one, may select any lookup
// mode; returning to ModeNone is only possible through Clear.
func IsTransitionAllowed(_, to Mode) bool {
	return to.Selectable()
}
