package bot

// Command constants for Telegram bot commands.
const (
	CommandStart       = "/start"
	CommandCancel      = "/cancel"
	CommandPremium     = "/premium"
	CommandStats       = "/stats"
	CommandStatics     = "/statics"
	CommandMaintenance = "/maintenance"
	CommandClosed      = "/closed"
	CommandResume      = "/resume"
	CommandAsten       = "/asten"
)
