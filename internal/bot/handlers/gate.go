package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gatekeeper-bot/internal/access"
	"github.com/Proton-105/gatekeeper-bot/internal/i18n"
	"github.com/Proton-105/gatekeeper-bot/pkg/metrics"
)

// DenyLinks fills the placeholders of the deny messages.
type DenyLinks struct {
	ChannelURL     string
	ChannelName    string
	SupportContact string
}

func (l DenyLinks) message(tr i18n.Translator, decision access.Decision) string {
	switch decision {
	case access.DecisionMaintenance:
		return tr.T("gate.maintenance")
	case access.DecisionNotJoined:
		return tr.Tf("gate.not_joined", l.ChannelURL, l.ChannelName)
	case access.DecisionTrialExpired:
		return tr.Tf("gate.trial_expired", l.SupportContact)
	default:
		return tr.T("error.generic")
	}
}

// admit records the gate decision and answers denied users. It reports
// whether the handler may continue.
func admit(c telebot.Context, tr i18n.Translator, links DenyLinks, log *slog.Logger, decision access.Decision, err error) (bool, error) {
	if err != nil {
		metrics.RecordGateDecision("error")
		return false, err
	}

	metrics.RecordGateDecision(decision.String())
	if decision.Allowed() {
		return true, nil
	}

	log.Info("access denied",
		slog.Int64("user_id", c.Sender().ID),
		slog.String("decision", decision.String()),
	)

	return false, c.Send(links.message(tr, decision), telebot.ModeHTML, telebot.NoPreview)
}
