package rewards

// Engine event types. Accrued fires after a reward commits; skipped fires on
// policy rejections with a reason attribute.
const (
	EventRewardAccrued = "reward.accrued"
	EventRewardSkipped = "reward.skipped"
)

// Skip reasons attached to EventRewardSkipped.
const (
	SkipDailyLimit     = "daily_limit_reached"
	SkipAlreadyLogged  = "already_logged_in"
	SkipWelcomeClaimed = "welcome_already_claimed"
)

// Event is a structured record of an engine decision.
type Event struct {
	Type       string
	Attributes map[string]string
}

// EventSink receives engine events. Implementations must tolerate concurrent
// calls; a nil sink disables emission.
type EventSink interface {
	AppendEvent(evt *Event)
}

func (e *Engine) emitAccrued(reward *Reward) {
	if e.events == nil || reward == nil {
		return
	}
	e.events.AppendEvent(&Event{
		Type: EventRewardAccrued,
		Attributes: map[string]string{
			"player": reward.PlayerID,
			"game":   string(reward.Game),
			"amount": formatAmount(reward.Amount),
			"id":     reward.ID.String(),
		},
	})
}

func (e *Engine) emitSkipped(playerID string, game GameKind, reason string) {
	if e.events == nil {
		return
	}
	e.events.AppendEvent(&Event{
		Type: EventRewardSkipped,
		Attributes: map[string]string{
			"player": playerID,
			"game":   string(game),
			"reason": reason,
		},
	})
}
