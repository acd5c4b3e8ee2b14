// Package user aggregates access records into bot statistics.
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/Proton-105/gatekeeper-bot/internal/domain"
	"github.com/Proton-105/gatekeeper-bot/internal/store"
)

// Stats summarises the stored user records.
type Stats struct {
	CreatedDate string
	// Total counts every stored record.
	Total int
	// Active counts records that carry any access state.
	Active int
	// Deleted counts empty records.
	Deleted int
	// Premium counts records whose premium is active now.
	Premium int
}

// Service provides statistics over the user store.
type Service struct {
	store       store.Store
	createdDate string
	now         func() time.Time
	log         *slog.Logger
}

// NewService constructs a new Service instance.
func NewService(st store.Store, createdDate string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		store:       st,
		createdDate: createdDate,
		now:         time.Now,
		log:         log,
	}
}

// Stats takes a snapshot of the store and counts it.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	records, err := s.store.All(ctx)
	if err != nil {
		s.log.Error("failed to collect user statistics", slog.Any("error", err))
		return Stats{}, fmt.Errorf("collect stats: %w", err)
	}

	return Summarize(records, s.createdDate, s.now()), nil
}

// Summarize counts records as of now.
func Summarize(records map[string]*domain.UserRecord, createdDate string, now time.Time) Stats {
	values := lo.Values(records)

	deleted := lo.CountBy(values, func(r *domain.UserRecord) bool { return r.IsEmpty() })
	premium := lo.CountBy(values, func(r *domain.UserRecord) bool { return r.PremiumActive(now) })

	return Stats{
		CreatedDate: createdDate,
		Total:       len(values),
		Active:      len(values) - deleted,
		Deleted:     deleted,
		Premium:     premium,
	}
}
