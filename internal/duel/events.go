package duel

import (
	"github.com/RobotsMakeThings/clawcasino/internal/sched"
)

// Event types published on the duels topic.
const (
	EventDuelCreated   = "duel-created"
	EventDuelAccepted  = "duel-accepted"
	EventDuelCommitted = "duel-committed"
	EventDuelRevealed  = "duel-revealed"
	EventRoundResult   = "duel-round-result"
	EventDuelResolved  = "duel-resolved"
	EventDuelCancelled = "duel-cancelled"
	EventDuelExpired   = "duel-expired"
)

// Deadline reasons handed to the scheduler.
const (
	ReasonOpenExpiry    sched.Reason = "duel-open-expiry"
	ReasonCommitTimeout sched.Reason = "duel-commit-timeout"
	ReasonRevealTimeout sched.Reason = "duel-reveal-timeout"
)
