package access

// Decision is the outcome of an access check. Deny decisions are distinct so
// each can be answered with its own message.
type Decision int

const (
	// DecisionAllowed permits the action.
	DecisionAllowed Decision = iota
	// DecisionMaintenance denies everything while the bot is in maintenance.
	DecisionMaintenance
	// DecisionNotJoined denies users who are not members of the required channel,
	// including users whose membership could not be verified.
	DecisionNotJoined
	// DecisionTrialExpired denies users whose trial window is over and who have no premium.
	DecisionTrialExpired
)

// Allowed reports whether the decision permits the action.
func (d Decision) Allowed() bool {
	return d == DecisionAllowed
}

func (d Decision) String() string {
	switch d {
	case DecisionAllowed:
		return "allowed"
	case DecisionMaintenance:
		return "maintenance"
	case DecisionNotJoined:
		return "not_joined"
	case DecisionTrialExpired:
		return "trial_expired"
	default:
		return "unknown"
	}
}
