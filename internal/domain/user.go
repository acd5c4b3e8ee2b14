package domain

import "time"

// UserRecord is the persisted access state of a Telegram user.
type UserRecord struct {
	// StartTime is the first trial check instant. Set at most once.
	StartTime time.Time `json:"start_time,omitzero"`
	// PremiumUntil is the premium expiry; premium is active while it lies in the future.
	PremiumUntil time.Time `json:"premium_until,omitzero"`
}

// IsEmpty reports whether the record carries no access state at all.
func (r *UserRecord) IsEmpty() bool {
	return r == nil || (r.StartTime.IsZero() && r.PremiumUntil.IsZero())
}

// HasStarted reports whether the trial clock has been started.
func (r *UserRecord) HasStarted() bool {
	return r != nil && !r.StartTime.IsZero()
}

// PremiumActive reports whether premium is active at now (strictly before expiry).
func (r *UserRecord) PremiumActive(now time.Time) bool {
	return r != nil && !r.PremiumUntil.IsZero() && r.PremiumUntil.After(now)
}

// Clone returns a copy safe to mutate.
func (r *UserRecord) Clone() *UserRecord {
	if r == nil {
		return &UserRecord{}
	}
	copied := *r
	return &copied
}
