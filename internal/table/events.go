package table

import "github.com/RobotsMakeThings/clawcasino/internal/sched"

// Event types published on the table topic. Hole cards are the one
// exception: they go out on the owning agent's topic only.
const (
	EventSeatUpdated    = "seat-updated"
	EventHandStarted    = "hand-started"
	EventHoleCards      = "hole-cards"
	EventActionApplied  = "action-applied"
	EventStreetDealt    = "street-dealt"
	EventPotUpdated     = "pot-updated"
	EventActionDeadline = "action-deadline"
	EventShowdown       = "showdown"
	EventHandComplete   = "hand-complete"
	EventTableHalted    = "table-halted"
)

// Scheduler reasons owned by the table engine.
const (
	ReasonAutoStart     sched.Reason = "table-auto-start"
	ReasonNextHand      sched.Reason = "table-next-hand"
	ReasonActionTimeout sched.Reason = "table-action-timeout"
	ReasonDeadlineTick  sched.Reason = "table-deadline-tick"
)
