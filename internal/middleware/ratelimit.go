package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gatekeeper-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/gatekeeper-bot/internal/errors"
	"github.com/Proton-105/gatekeeper-bot/internal/i18n"
	"github.com/Proton-105/gatekeeper-bot/internal/ratelimit"
	"github.com/Proton-105/gatekeeper-bot/pkg/metrics"
)

// RateLimitMiddleware enforces per-user limits on every update and a tighter
// limit on lookup queries (plain text).
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	catalog *i18n.Manager
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, catalog *i18n.Manager, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		catalog: catalog,
		log:     log,
	}
}

// Handle wraps next with the rate limits.
func (m *RateLimitMiddleware) Handle(next handlers.Handler) handlers.Handler {
	return func(c telebot.Context) error {
		if m.limiter == nil || m.rules == nil {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil || m.rules.IsWhitelisted(sender.ID) {
			return next(c)
		}

		ctx := handlers.RequestContext(c)
		userID := sender.ID

		if ok, result := m.allow(ctx, userID, ratelimit.ScopeUser, m.rules.GetPerUserLimit); !ok {
			return m.reject(c, userID, ratelimit.ScopeUser, result)
		}

		if !isLookupQuery(c) {
			return next(c)
		}

		if ok, result := m.allow(ctx, userID, ratelimit.ScopeLookup, m.rules.GetLookupLimit); !ok {
			return m.reject(c, userID, ratelimit.ScopeLookup, result)
		}

		return next(c)
	}
}

// allow fails open: a misconfigured rule or a backend error never blocks users.
func (m *RateLimitMiddleware) allow(ctx context.Context, userID int64, scope string, rule func() (int, time.Duration, error)) (bool, *ratelimit.Result) {
	limit, window, err := rule()
	if err != nil {
		m.log.Error("invalid rate limit rule", slog.String("scope", scope), slog.Any("error", err))
		return true, nil
	}

	result, err := m.limiter.Check(ctx, ratelimit.Key(scope, userID), limit, window)
	if errors.Is(err, ratelimit.ErrLimitExceeded) {
		return false, result
	}
	if err != nil {
		m.log.Warn("rate limiter error", slog.Int64("user_id", userID), slog.Any("error", err))
		return true, nil
	}

	return result == nil || result.Allowed, result
}

func (m *RateLimitMiddleware) reject(c telebot.Context, userID int64, scope string, result *ratelimit.Result) error {
	retryAfter := 1
	if result != nil {
		retryAfter = max(int(time.Until(result.ResetAt).Seconds()), 1)
	}

	appErr := apperrors.NewRateLimitError(retryAfter)
	metrics.RecordError(appErr.Code, string(appErr.Severity))
	m.log.Warn("rate limit exceeded",
		slog.Int64("user_id", userID),
		slog.String("scope", scope),
		slog.Int("retry_after_seconds", retryAfter),
	)

	text := handlers.Translator(m.catalog, c).T(appErr.UserMessageKey)
	if c.Callback() != nil {
		return c.Respond(&telebot.CallbackResponse{Text: text})
	}

	return c.Send(text)
}

func isLookupQuery(c telebot.Context) bool {
	if c.Callback() != nil {
		return false
	}
	text := strings.TrimSpace(c.Text())
	return text != "" && !strings.HasPrefix(text, "/")
}
