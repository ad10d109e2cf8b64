package table

import (
	"time"

	errorsmod "cosmossdk.io/errors"

	"github.com/RobotsMakeThings/clawcasino/internal/cards"
	"github.com/RobotsMakeThings/clawcasino/internal/money"
	"github.com/RobotsMakeThings/clawcasino/internal/rake"
)

// Street identifies the betting round of a hand.
type Street string

const (
	StreetPreflop Street = "preflop"
	StreetFlop    Street = "flop"
	StreetTurn    Street = "turn"
	StreetRiver   Street = "river"
)

// Actions accepted by Act. Raise covers the opening bet as well; the
// amount is always the raise-to target for the street.
const (
	ActionFold  = "fold"
	ActionCheck = "check"
	ActionCall  = "call"
	ActionBet   = "bet"
	ActionRaise = "raise"
	ActionAllIn = "allin"
)

// Pot is one settlement tier: the chips in it and the seats that can
// win it. Folded money lands in the earliest tiers with no claim on
// later ones.
type Pot struct {
	Amount   int64
	Eligible []int
}

// Seat is one occupied chair. Chips are integer cents.
type Seat struct {
	AgentID     string
	DisplayName string
	Chips       int64
	Hole        [2]cards.Card
	HasHole     bool
	LastAction  string
}

// Hand is the state of the hand in progress. Betting follows the
// interval model: IntervalID increments on every full raise, and a seat
// owes action while its last-acted interval is stale or its street
// commitment is short of BetTo. A short all-in raises BetTo without
// opening a new interval, so matched players get no fresh action.
type Hand struct {
	No     uint64
	Street Street

	Button         int
	SmallBlindSeat int
	BigBlindSeat   int

	// ActionOn is -1 when no seat can act (all-in runout, settlement).
	ActionOn       int
	ActionDeadline time.Time

	BetTo        int64
	MinRaiseSize int64

	IntervalID        uint32
	LastIntervalActed []int

	StreetCommit []int64
	TotalCommit  []int64

	InHand []bool
	Folded []bool
	AllIn  []bool

	Deck       []cards.Card
	DeckCursor int
	Board      []cards.Card

	// Seed is revealed when the hand completes; its hash is public from
	// the hand-started event onward.
	Seed     []byte
	SeedHash string

	Pots []Pot
}

// Config fixes one cash table. All money fields are integer cents.
type Config struct {
	ID       string
	Name     string
	Currency string
	MaxSeats int

	SmallBlind int64
	BigBlind   int64
	MinBuyIn   int64
	MaxBuyIn   int64

	ActionTimeout time.Duration
	StartDelay    time.Duration

	RakeCaps *rake.CapTable
}

func (c Config) validate() error {
	if c.ID == "" {
		return errorsmod.Wrap(ErrInvalidConfig, "missing table id")
	}
	if c.Currency == "" {
		return errorsmod.Wrap(ErrInvalidConfig, "missing currency")
	}
	if c.MaxSeats < 2 || c.MaxSeats > 6 {
		return errorsmod.Wrapf(ErrInvalidConfig, "max seats %d, want 2..6", c.MaxSeats)
	}
	if c.SmallBlind <= 0 || c.BigBlind <= 0 || c.BigBlind < c.SmallBlind {
		return errorsmod.Wrapf(ErrInvalidConfig, "blinds %d/%d", c.SmallBlind, c.BigBlind)
	}
	if c.MinBuyIn <= 0 || c.MaxBuyIn <= 0 || c.MaxBuyIn < c.MinBuyIn {
		return errorsmod.Wrapf(ErrInvalidConfig, "buy-in range %d..%d", c.MinBuyIn, c.MaxBuyIn)
	}
	if c.MinBuyIn < c.BigBlind {
		return errorsmod.Wrapf(ErrInvalidConfig, "min buy-in %d below big blind %d", c.MinBuyIn, c.BigBlind)
	}
	return nil
}

// level is the blind-level key used for rake cap lookups, e.g. "0.50/1.00".
func (c Config) level() string {
	return money.Format(money.FromCents(c.SmallBlind)) + "/" + money.Format(money.FromCents(c.BigBlind))
}
