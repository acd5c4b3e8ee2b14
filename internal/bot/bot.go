// Package bot wires the Telegram transport: router, middleware chain and
// handlers.
package bot

import (
	"fmt"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gatekeeper-bot/internal/bot/handlers"
	"github.com/Proton-105/gatekeeper-bot/internal/bot/keyboard"
	errors "github.com/Proton-105/gatekeeper-bot/internal/errors"
	"github.com/Proton-105/gatekeeper-bot/internal/i18n"
	"github.com/Proton-105/gatekeeper-bot/internal/idempotency"
	"github.com/Proton-105/gatekeeper-bot/internal/middleware"
	"github.com/Proton-105/gatekeeper-bot/internal/state"
	"github.com/Proton-105/gatekeeper-bot/pkg/config"
)

// Gate is the access gate as seen by the bot.
type Gate interface {
	handlers.AccessGate
	handlers.AdminGate
	IsAdmin(userID int64) bool
}

// Deps groups the collaborators of the bot.
type Deps struct {
	Gate        Gate
	Sessions    state.Sessions
	Lookups     handlers.Lookuper
	Stats       handlers.StatsProvider
	Catalog     *i18n.Manager
	Idempotency idempotency.Manager
	RateLimit   *middleware.RateLimitMiddleware
}

// Bot wraps telebot.Bot with the router handling its updates.
type Bot struct {
	telebot *telebot.Bot
	router  *Router
	log     *slog.Logger
}

// NewTelebot creates the Telegram client configured for polling or webhooks.
func NewTelebot(cfg config.BotConfig, log *slog.Logger) (*telebot.Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		Token: cfg.Token,
		OnError: func(err error, c telebot.Context) {
			log.Error("telebot error", slog.Any("error", err))
		},
	}

	if cfg.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen: cfg.WebhookListen,
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	return tb, nil
}

// New registers the router on tb.
func New(tb *telebot.Bot, cfg config.Config, deps Deps, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}

	b := &Bot{
		telebot: tb,
		router:  NewAppRouter(cfg, deps, log),
		log:     log,
	}

	if tb != nil {
		tb.Handle(telebot.OnText, b.router.Route)
		tb.Handle(telebot.OnCallback, b.router.Route)
	}

	return b
}

// NewAppRouter builds the router with the full middleware chain and every
// command, callback and text handler registered.
func NewAppRouter(cfg config.Config, deps Deps, log *slog.Logger) *Router {
	router := NewRouter(log)
	errHandler := errors.NewHandler(log, cfg.Sentry.Enabled)
	kb := keyboard.NewBuilder(log)
	links := DenyLinksFromConfig(cfg)

	router.Use(RecoveryMiddleware(log, errHandler, deps.Catalog))
	router.Use(ContextMiddleware(cfg.Bot.UpdateTimeout))
	router.Use(LoggingMiddleware(log))
	router.Use(middleware.Metrics)
	router.Use(middleware.Idempotency(deps.Idempotency, log))
	router.Use(ErrorHandlingMiddleware(errHandler, deps.Catalog))
	if deps.RateLimit != nil {
		router.Use(deps.RateLimit.Handle)
	}

	router.RegisterCommand(CommandStart, handlers.NewStartHandler(deps.Gate, kb, deps.Catalog, links, log))
	router.RegisterCommand(CommandCancel, handlers.NewCancelHandler(deps.Gate, deps.Sessions, deps.Catalog, links, log))
	router.RegisterCallback(keyboard.ModeCallback, handlers.NewModeCallback(deps.Gate, deps.Sessions, deps.Catalog, links, log))
	router.SetDefault(handlers.NewLookupHandler(deps.Gate, deps.Sessions, deps.Lookups, deps.Catalog, links, log))

	adminOnly := AdminOnly(deps.Gate.IsAdmin, log)
	stats := adminOnly(handlers.NewStatsHandler(deps.Stats, deps.Catalog))
	maintenanceOn := adminOnly(handlers.NewMaintenanceHandler(deps.Gate, true, deps.Catalog))
	maintenanceOff := adminOnly(handlers.NewMaintenanceHandler(deps.Gate, false, deps.Catalog))

	router.RegisterCommand(CommandPremium, adminOnly(handlers.NewPremiumHandler(deps.Gate, deps.Catalog, log)))
	router.RegisterCommand(CommandStats, stats)
	router.RegisterCommand(CommandStatics, stats)
	router.RegisterCommand(CommandMaintenance, maintenanceOn)
	router.RegisterCommand(CommandClosed, maintenanceOn)
	router.RegisterCommand(CommandResume, maintenanceOff)
	router.RegisterCommand(CommandAsten, maintenanceOff)

	return router
}

// DenyLinksFromConfig derives the join link from the configured channel when
// no explicit URL is set.
func DenyLinksFromConfig(cfg config.Config) handlers.DenyLinks {
	channel := strings.TrimSpace(cfg.Access.Channel)
	url := cfg.Access.ChannelURL
	if url == "" && strings.HasPrefix(channel, "@") {
		url = "https://t.me/" + strings.TrimPrefix(channel, "@")
	}

	return handlers.DenyLinks{
		ChannelURL:     url,
		ChannelName:    channel,
		SupportContact: cfg.Bot.SupportContact,
	}
}

// Start runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}
