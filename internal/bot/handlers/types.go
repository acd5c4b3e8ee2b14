package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gatekeeper-bot/internal/access"
	"github.com/Proton-105/gatekeeper-bot/internal/i18n"
	"github.com/Proton-105/gatekeeper-bot/internal/lookup"
	"github.com/Proton-105/gatekeeper-bot/internal/state"
	"github.com/Proton-105/gatekeeper-bot/internal/user"
)

// Handler processes bot commands.
type Handler func(c telebot.Context) error

// CallbackHandler processes inline callback events.
type CallbackHandler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// ContextKey is the telebot.Context storage key of the per-update context.
const ContextKey = "request_ctx"

// AccessGate decides whether a user may use the bot.
type AccessGate interface {
	// CheckEntry runs the maintenance and membership checks only.
	CheckEntry(ctx context.Context, userID int64) (access.Decision, error)
	// Check runs every check and starts the trial clock on first use.
	Check(ctx context.Context, userID int64) (access.Decision, error)
}

// AdminGate exposes the admin-only mutations of the access state.
type AdminGate interface {
	GrantPremium(ctx context.Context, rawUserID string) (access.PremiumGrant, error)
	SetMaintenance(ctx context.Context, enabled bool) error
}

// Lookuper resolves a query for the selected mode.
type Lookuper interface {
	Lookup(ctx context.Context, userID int64, mode state.Mode, input string) (*lookup.Result, error)
}

// StatsProvider reports user statistics.
type StatsProvider interface {
	Stats(ctx context.Context) (user.Stats, error)
}

// RequestContext returns the per-update context stored by the context
// middleware, or context.Background when none is set.
func RequestContext(c telebot.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if ctx, ok := c.Get(ContextKey).(context.Context); ok && ctx != nil {
		return ctx
	}
	return context.Background()
}

// Translator picks the catalogue matching the sender's language.
func Translator(m *i18n.Manager, c telebot.Context) i18n.Translator {
	lang := ""
	if c != nil && c.Sender() != nil {
		lang = c.Sender().LanguageCode
	}
	return m.Translator(lang)
}
