package ratelimit

import (
	"errors"
	"slices"
	"time"

	"github.com/Proton-105/gatekeeper-bot/pkg/config"
)

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	config    config.RateLimitConfig
	whitelist []int64
}

// NewRules constructs rate limiting rules. extraWhitelist (typically the
// admin ids) is exempted on top of the configured whitelist.
func NewRules(cfg config.RateLimitConfig, extraWhitelist ...int64) *Rules {
	whitelist := make([]int64, 0, len(cfg.Whitelist)+len(extraWhitelist))
	whitelist = append(whitelist, cfg.Whitelist...)
	whitelist = append(whitelist, extraWhitelist...)

	return &Rules{config: cfg, whitelist: whitelist}
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	return slices.Contains(r.whitelist, userID)
}

// GetPerUserLimit returns the limit applied to every update of a user.
func (r *Rules) GetPerUserLimit() (int, time.Duration, error) {
	return parseRule(r.config.PerUser)
}

// GetLookupLimit returns the limit applied to lookup queries of a user.
func (r *Rules) GetLookupLimit() (int, time.Duration, error) {
	return parseRule(r.config.Lookup)
}

func parseRule(rule config.RateLimitRule) (int, time.Duration, error) {
	if rule.Window == "" {
		return rule.Limit, 0, errors.New("window duration is not set")
	}
	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return 0, 0, err
	}
	return rule.Limit, window, nil
}
