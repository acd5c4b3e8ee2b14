package state

import (
	"fmt"
	"strings"
	"time"
)

// Mode is the lookup mode a user has selected.
type Mode string

const (
	// ModeNone means no mode has been selected yet.
	ModeNone Mode = ""
	// ModeVehicle looks up vehicle registration numbers.
	ModeVehicle Mode = "vehicle"
	// ModeInsta looks up Instagram profiles.
	ModeInsta Mode = "insta"
	// ModeNumber runs a reverse phone-number lookup.
	ModeNumber Mode = "number"
)

// Modes lists the selectable modes in menu order.
var Modes = []Mode{ModeVehicle, ModeInsta, ModeNumber}

// Selectable reports whether m is one of the lookup modes.
func (m Mode) Selectable() bool {
	switch m {
	case ModeVehicle, ModeInsta, ModeNumber:
		return true
	default:
		return false
	}
}

func (m Mode) String() string {
	if m == ModeNone {
		return "none"
	}
	return string(m)
}

// ParseMode converts a raw mode name into a selectable Mode.
func ParseMode(raw string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(raw)))
	if !mode.Selectable() {
		return ModeNone, fmt.Errorf("%w: %q", ErrInvalidMode, raw)
	}
	return mode, nil
}

// Session captures the mode selected by a Telegram user.
type Session struct {
	UserID    int64     `json:"user_id"`
	Mode      Mode      `json:"mode"`
	UpdatedAt time.Time `json:"updated_at"`
}
