package handlers

import (
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gatekeeper-bot/internal/i18n"
	"github.com/Proton-105/gatekeeper-bot/internal/store"
)

const premiumDateLayout = "2006-01-02 15:04 MST"

// NewPremiumHandler handles "/premium <user_id>".
func NewPremiumHandler(admin AdminGate, catalog *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		tr := Translator(catalog, c)

		args := c.Args()
		if len(args) == 0 {
			return c.Send(tr.T("admin.premium_usage"), telebot.ModeHTML)
		}

		grant, err := admin.GrantPremium(RequestContext(c), args[0])
		if errors.Is(err, store.ErrInvalidUserID) {
			return c.Send(tr.T("admin.premium_invalid"))
		}
		if err != nil {
			return err
		}

		log.Info("premium granted",
			slog.Int64("admin_id", c.Sender().ID),
			slog.Int64("target_id", grant.UserID),
			slog.Time("until", grant.Until),
		)

		return c.Send(tr.Tf("admin.premium_granted",
			store.UserKey(grant.UserID),
			grant.Until.UTC().Format(premiumDateLayout),
		))
	}
}

// NewStatsHandler reports the user statistics.
func NewStatsHandler(stats StatsProvider, catalog *i18n.Manager) Handler {
	return func(c telebot.Context) error {
		s, err := stats.Stats(RequestContext(c))
		if err != nil {
			return err
		}

		return c.Send(Translator(catalog, c).Tf("admin.stats",
			s.CreatedDate, s.Total, s.Active, s.Deleted, s.Premium,
		))
	}
}

// NewMaintenanceHandler switches maintenance mode on or off.
func NewMaintenanceHandler(admin AdminGate, enabled bool, catalog *i18n.Manager) Handler {
	key := "admin.maintenance_off"
	if enabled {
		key = "admin.maintenance_on"
	}

	return func(c telebot.Context) error {
		if err := admin.SetMaintenance(RequestContext(c), enabled); err != nil {
			return err
		}
		return c.Send(Translator(catalog, c).T(key), telebot.ModeHTML)
	}
}
