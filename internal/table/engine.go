package table

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RobotsMakeThings/clawcasino/internal/bus"
	"github.com/RobotsMakeThings/clawcasino/internal/cards"
	"github.com/RobotsMakeThings/clawcasino/internal/holdem"
	"github.com/RobotsMakeThings/clawcasino/internal/money"
	"github.com/RobotsMakeThings/clawcasino/internal/rake"
	"github.com/RobotsMakeThings/clawcasino/internal/sched"
	"github.com/RobotsMakeThings/clawcasino/internal/shuffle"
	"github.com/RobotsMakeThings/clawcasino/internal/store"
)

// AggregatePrefix namespaces table ids on the deadline wheel.
const AggregatePrefix = "table:"

// AggregateID is the scheduler key for one table.
func AggregateID(id string) string { return AggregatePrefix + id }

const deadlineTickEvery = 5 * time.Second

// Bank is the ledger surface the table needs. Chips only cross this
// boundary at buy-in, cash-out and rake collection; everything between
// is internal chip movement.
type Bank interface {
	TableBuyIn(ctx context.Context, agentID, currency string, amount decimal.Decimal, ref string) error
	TableCashOut(ctx context.Context, agentID, currency string, amount decimal.Decimal, ref string) error
	TableRake(ctx context.Context, currency string, fee, pot decimal.Decimal, ref string) error
}

// Publisher pushes events onto the realtime bus.
type Publisher interface {
	Publish(topic, typ string, data any)
}

// Scheduler books and cancels the table's deadlines.
type Scheduler interface {
	Schedule(aggregate string, reason sched.Reason, at time.Time)
	Cancel(aggregate string, reason sched.Reason)
	CancelAggregate(aggregate string)
}

// Archiver receives durable snapshots and finished hand records.
type Archiver interface {
	SaveTable(ctx context.Context, snap store.TableSnapshot) error
	SaveHand(ctx context.Context, rec store.HandRecord) error
}

// Table is one cash game aggregate. Every mutation happens under mu,
// making the table a single-writer region; scheduler expiries take the
// same lock as commands.
type Table struct {
	logger log.Logger
	bank   Bank
	pub    Publisher
	wheel  Scheduler
	arch   Archiver
	clock  func() time.Time
	rand   io.Reader
	cfg    Config
	lvl    string

	mu         sync.Mutex
	seats      []*Seat
	button     int
	nextHandNo uint64
	hand       *Hand
	halted     bool
}

// New wires a table. Nil dependencies are programmer errors and panic;
// a bad config is an operator error and returns one.
func New(logger log.Logger, bank Bank, pub Publisher, wheel Scheduler, arch Archiver, cfg Config) (*Table, error) {
	if logger == nil {
		panic("table: nil logger")
	}
	if bank == nil {
		panic("table: nil bank")
	}
	if pub == nil {
		panic("table: nil publisher")
	}
	if wheel == nil {
		panic("table: nil scheduler")
	}
	if arch == nil {
		panic("table: nil archiver")
	}
	if cfg.ActionTimeout == 0 {
		cfg.ActionTimeout = 30 * time.Second
	}
	if cfg.StartDelay == 0 {
		cfg.StartDelay = 3 * time.Second
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Table{
		logger:     logger.With("module", ModuleName, "table", cfg.ID),
		bank:       bank,
		pub:        pub,
		wheel:      wheel,
		arch:       arch,
		clock:      time.Now,
		rand:       rand.Reader,
		cfg:        cfg,
		lvl:        cfg.level(),
		seats:      make([]*Seat, cfg.MaxSeats),
		button:     -1,
		nextHandNo: 1,
	}, nil
}

// SetClock swaps the time source for tests.
func (t *Table) SetClock(clock func() time.Time) { t.clock = clock }

// SetEntropy swaps the shuffle seed source for tests.
func (t *Table) SetEntropy(r io.Reader) { t.rand = r }

// ID returns the table's identifier.
func (t *Table) ID() string { return t.cfg.ID }

// View returns the table as seen by forAgent; the empty id yields the
// public view with every hole card hidden.
func (t *Table) View(forAgent string) View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view(forAgent)
}

// Currency returns the table's money currency.
func (t *Table) Currency() string { return t.cfg.Currency }

func (t *Table) aggregate() string { return AggregateID(t.cfg.ID) }

func (t *Table) handRef(handNo uint64) string {
	return fmt.Sprintf("%s#%d", t.cfg.ID, handNo)
}

// Sit buys an agent onto the lowest free seat. The wallet debit and the
// seat credit are one atomic movement through the ledger. A player who
// sits during a hand waits it out.
func (t *Table) Sit(ctx context.Context, agentID, name string, buyIn decimal.Decimal) (View, error) {
	cents, err := money.ToCents(buyIn)
	if err != nil {
		return View{}, errorsmod.Wrap(ErrInvalidAmount, err.Error())
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.halted {
		return View{}, errorsmod.Wrap(ErrTableHalted, t.cfg.ID)
	}
	if t.seatOf(agentID) >= 0 {
		return View{}, errorsmod.Wrapf(ErrAlreadySeated, "agent %s at table %s", agentID, t.cfg.ID)
	}
	if cents < t.cfg.MinBuyIn || cents > t.cfg.MaxBuyIn {
		return View{}, errorsmod.Wrapf(ErrBuyInRange, "buy-in %s, want %s..%s",
			money.Format(buyIn), fmtCents(t.cfg.MinBuyIn), fmtCents(t.cfg.MaxBuyIn))
	}
	seat := -1
	for i, s := range t.seats {
		if s == nil {
			seat = i
			break
		}
	}
	if seat < 0 {
		return View{}, errorsmod.Wrap(ErrTableFull, t.cfg.ID)
	}
	if err := t.bank.TableBuyIn(ctx, agentID, t.cfg.Currency, buyIn, t.cfg.ID); err != nil {
		return View{}, err
	}

	t.seats[seat] = &Seat{AgentID: agentID, DisplayName: name, Chips: cents}
	t.pub.Publish(bus.TableTopic(t.cfg.ID), EventSeatUpdated, SeatEvent{
		Seat: seat, Agent: agentID, Change: "sat", Table: t.view(""),
	})
	if t.hand == nil && len(t.fundedSeats()) >= 2 {
		t.wheel.Schedule(t.aggregate(), ReasonAutoStart, t.clock().UTC().Add(t.cfg.StartDelay))
	}
	t.persist(ctx)
	t.logger.Info("player sat", "agent", agentID, "seat", seat, "buy_in", money.Format(buyIn))
	return t.view(agentID), nil
}

// Leave cashes a seat out back to the wallet. A seat that is dealt into
// the live hand and has not folded must finish the hand first.
func (t *Table) Leave(ctx context.Context, agentID string) (View, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.halted {
		return View{}, errorsmod.Wrap(ErrTableHalted, t.cfg.ID)
	}
	seat := t.seatOf(agentID)
	if seat < 0 {
		return View{}, errorsmod.Wrapf(ErrNotSeated, "agent %s at table %s", agentID, t.cfg.ID)
	}
	if t.hand != nil && t.hand.InHand[seat] && !t.hand.Folded[seat] {
		return View{}, errorsmod.Wrap(ErrHandInProgress, "cannot leave during an active hand")
	}

	chips := t.seats[seat].Chips
	if err := t.bank.TableCashOut(ctx, agentID, t.cfg.Currency, money.FromCents(chips), t.cfg.ID); err != nil {
		return View{}, err
	}
	t.seats[seat] = nil
	if t.hand == nil && len(t.fundedSeats()) < 2 {
		t.wheel.Cancel(t.aggregate(), ReasonAutoStart)
		t.wheel.Cancel(t.aggregate(), ReasonNextHand)
	}
	t.pub.Publish(bus.TableTopic(t.cfg.ID), EventSeatUpdated, SeatEvent{
		Seat: seat, Agent: agentID, Change: "left", Table: t.view(""),
	})
	t.persist(ctx)
	t.logger.Info("player left", "agent", agentID, "seat", seat, "cash_out", fmtCents(chips))
	return t.view(""), nil
}

// Act applies the acting seat's decision. The amount is the raise-to
// target for bet and raise and is ignored for everything else.
func (t *Table) Act(ctx context.Context, agentID, action string, amount decimal.Decimal) (View, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.halted {
		return View{}, errorsmod.Wrap(ErrTableHalted, t.cfg.ID)
	}
	h := t.hand
	if h == nil {
		return View{}, errorsmod.Wrap(ErrNoActiveHand, t.cfg.ID)
	}
	if h.ActionOn < 0 || t.seats[h.ActionOn] == nil {
		return View{}, errorsmod.Wrap(ErrIllegalAction, "no action pending")
	}
	seat := h.ActionOn
	if t.seats[seat].AgentID != agentID {
		return View{}, errorsmod.Wrapf(ErrNotYourTurn, "action is on seat %d", seat)
	}

	if err := t.applyAction(h, seat, action, amount); err != nil {
		return View{}, err
	}
	t.seats[seat].LastAction = action
	now := t.clock().UTC()
	t.resolveTurn(now)
	t.pub.Publish(bus.TableTopic(t.cfg.ID), EventActionApplied, ActionEvent{
		Seat: seat, Agent: agentID, Action: action,
		Amount: fmtCents(h.StreetCommit[seat]), Table: t.view(""),
	})
	t.settleIfDone(ctx, now)
	t.persist(ctx)
	return t.view(agentID), nil
}

// applyAction validates and executes one action for the acting seat.
// Called under mu.
func (t *Table) applyAction(h *Hand, seat int, action string, amount decimal.Decimal) error {
	switch action {
	case ActionFold:
		applyFold(h, seat)
		return nil
	case ActionCheck:
		return applyCheck(h, seat)
	case ActionCall:
		return t.applyCall(h, seat)
	case ActionBet:
		if h.BetTo != 0 {
			return errorsmod.Wrap(ErrIllegalAction, "facing a bet; raise instead")
		}
		return t.applyBetTo(h, seat, t.actionCents(amount))
	case ActionRaise:
		if h.BetTo == 0 {
			return errorsmod.Wrap(ErrIllegalAction, "no bet to raise; bet instead")
		}
		return t.applyBetTo(h, seat, t.actionCents(amount))
	case ActionAllIn:
		s := t.seats[seat]
		if s.Chips == 0 {
			return errorsmod.Wrap(ErrIllegalAction, "no chips to move in")
		}
		desired := h.StreetCommit[seat] + s.Chips
		if desired > h.BetTo {
			return t.applyBetTo(h, seat, desired)
		}
		return t.applyCall(h, seat)
	default:
		return errorsmod.Wrap(ErrUnknownAction, action)
	}
}

// actionCents converts a raise-to amount, mapping junk to an impossible
// target so applyBetTo rejects it with its own message.
func (t *Table) actionCents(amount decimal.Decimal) int64 {
	cents, err := money.ToCents(amount)
	if err != nil || cents <= 0 {
		return -1
	}
	return cents
}

// resolveTurn moves the action pointer to the next seat that owes a
// decision, or parks it at -1 when this street has no further action.
// Called under mu right after an action lands, before any event goes
// out, so published views never show a stale turn.
func (t *Table) resolveTurn(now time.Time) {
	h := t.hand
	if h == nil {
		return
	}
	if countNotFolded(h) <= 1 || streetComplete(h) {
		h.ActionOn = -1
		t.clearActionDeadline()
		return
	}
	h.ActionOn = t.nextActiveToAct(h, h.ActionOn)
	if h.ActionOn >= 0 {
		t.armActionDeadline(now)
	}
}

// settleIfDone finishes the hand or seals the street once no seat has a
// pending decision: fold-to-one win, showdown on the river, a runout
// when the betting is exhausted, or the next street. Called under mu
// after resolveTurn.
func (t *Table) settleIfDone(ctx context.Context, now time.Time) {
	h := t.hand
	if h == nil || h.ActionOn >= 0 {
		return
	}
	if countNotFolded(h) <= 1 {
		t.completeByFolds(ctx, now)
		return
	}

	t.returnUncalledExcess(h)
	t.pub.Publish(bus.TableTopic(t.cfg.ID), EventPotUpdated, PotEvent{
		Street: h.Street, Pot: fmtCents(potTotal(h)),
	})

	if h.Street == StreetRiver {
		t.settleShowdown(ctx, now)
		return
	}
	if t.countWithChips(h) < 2 {
		t.runoutAndSettle(ctx, now)
		return
	}
	t.advanceStreet(now)
	if t.hand != nil && t.hand.ActionOn == -1 {
		t.runoutAndSettle(ctx, now)
	}
}

// advanceStreet seals the current street and deals the next one. First
// to act after the deal is the first live seat clockwise from the
// button. Called under mu.
func (t *Table) advanceStreet(now time.Time) {
	h := t.hand
	var deal int
	var next Street
	switch h.Street {
	case StreetPreflop:
		deal, next = 3, StreetFlop
	case StreetFlop:
		deal, next = 1, StreetTurn
	case StreetTurn:
		deal, next = 1, StreetRiver
	default:
		return
	}
	dealt := t.revealBoard(h, deal)
	h.Street = next
	h.BetTo = 0
	h.MinRaiseSize = t.cfg.BigBlind
	h.IntervalID = 0
	for i := range h.StreetCommit {
		h.StreetCommit[i] = 0
		h.LastIntervalActed[i] = -1
	}
	h.ActionOn = t.nextActiveToAct(h, h.Button)

	t.pub.Publish(bus.TableTopic(t.cfg.ID), EventStreetDealt, StreetEvent{
		Street: next, Cards: dealt, Pot: fmtCents(potTotal(h)), Table: t.view(""),
	})
	if h.ActionOn >= 0 {
		t.armActionDeadline(now)
	}
}

func (t *Table) revealBoard(h *Hand, n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n && h.DeckCursor < len(h.Deck); i++ {
		c := h.Deck[h.DeckCursor]
		h.DeckCursor++
		h.Board = append(h.Board, c)
		out = append(out, c.String())
	}
	return out
}

func potTotal(h *Hand) int64 {
	var sum int64
	for _, v := range h.TotalCommit {
		sum += v
	}
	return sum
}

// startHand opens the next hand: rotate the button, commit a fresh
// shuffle, post blinds, deal and hand action to the seat left of the
// big blind. Called under mu.
func (t *Table) startHand(ctx context.Context, now time.Time) {
	if t.halted || t.hand != nil {
		return
	}
	active := t.fundedSeats()
	if len(active) < 2 {
		return
	}
	com, err := shuffle.New(t.rand)
	if err != nil {
		t.logger.Error("shuffle seed failed", "err", err)
		t.wheel.Schedule(t.aggregate(), ReasonNextHand, now.Add(t.cfg.StartDelay))
		return
	}
	if t.button < 0 {
		t.button = active[0]
	} else {
		t.button = t.nextFundedSeat(t.button)
	}

	n := t.cfg.MaxSeats
	h := &Hand{
		No:                t.nextHandNo,
		Street:            StreetPreflop,
		Button:            t.button,
		ActionOn:          -1,
		MinRaiseSize:      t.cfg.BigBlind,
		LastIntervalActed: make([]int, n),
		StreetCommit:      make([]int64, n),
		TotalCommit:       make([]int64, n),
		InHand:            make([]bool, n),
		Folded:            make([]bool, n),
		AllIn:             make([]bool, n),
		Deck:              shuffle.Deck(com.Seed),
		Seed:              com.Seed,
		SeedHash:          com.Hash,
	}
	t.nextHandNo++
	for i := range h.LastIntervalActed {
		h.LastIntervalActed[i] = -1
	}
	for i, s := range t.seats {
		if s == nil {
			continue
		}
		s.Hole = [2]cards.Card{}
		s.HasHole = false
		s.LastAction = ""
		if s.Chips > 0 {
			h.InHand[i] = true
		}
	}
	t.hand = h

	sb, bb := t.blindSeats()
	if sb < 0 || bb < 0 {
		t.hand = nil
		return
	}
	h.SmallBlindSeat, h.BigBlindSeat = sb, bb
	if err := t.postBlind(h, sb, t.cfg.SmallBlind); err != nil {
		t.rollbackHand(h)
		t.logger.Error("small blind failed", "err", err)
		return
	}
	if err := t.postBlind(h, bb, t.cfg.BigBlind); err != nil {
		t.rollbackHand(h)
		t.logger.Error("big blind failed", "err", err)
		return
	}
	t.seats[sb].LastAction = "small-blind"
	t.seats[bb].LastAction = "big-blind"
	// A short-stacked big blind can post less than the small blind did;
	// the live bet is whichever blind commitment is larger.
	h.BetTo = maxStreetCommit(h)
	h.MinRaiseSize = t.cfg.BigBlind

	t.dealHoleCards(h)
	h.ActionOn = t.nextActiveToAct(h, bb)

	t.pub.Publish(bus.TableTopic(t.cfg.ID), EventHandStarted, HandStartedEvent{
		HandNo: h.No, Button: h.Button,
		SmallBlindSeat: sb, BigBlindSeat: bb,
		SeedHash: h.SeedHash, Table: t.view(""),
	})
	for i, s := range t.seats {
		if s == nil || !h.InHand[i] {
			continue
		}
		t.pub.Publish(bus.AgentTopic(s.AgentID), EventHoleCards, HoleCardsEvent{
			TableID: t.cfg.ID, HandNo: h.No, Seat: i,
			Cards: [2]string{s.Hole[0].String(), s.Hole[1].String()},
		})
	}
	t.logger.Info("hand started", "hand", h.No, "button", h.Button,
		"small_blind", sb, "big_blind", bb, "players", countInHand(h))

	if h.ActionOn >= 0 {
		t.armActionDeadline(now)
		t.persist(ctx)
		return
	}
	// Blinds already put everyone all-in.
	t.runoutAndSettle(ctx, now)
	t.persist(ctx)
}

// rollbackHand puts committed chips back on the stacks and discards the
// hand before it ever became live. Called under mu.
func (t *Table) rollbackHand(h *Hand) {
	for i, amt := range h.TotalCommit {
		if s := t.seats[i]; s != nil {
			s.Chips += amt
			h.AllIn[i] = false
		}
	}
	t.hand = nil
}

// completeByFolds wins the whole pot for the last unfolded seat. No
// community card dealt means no rake. Called under mu.
func (t *Table) completeByFolds(ctx context.Context, now time.Time) {
	h := t.hand
	winner := -1
	for i := range h.InHand {
		if h.InHand[i] && !h.Folded[i] {
			winner = i
			break
		}
	}
	if winner < 0 || t.seats[winner] == nil {
		t.abortAndHalt(ctx, "no fold winner", nil)
		return
	}
	t.returnUncalledExcess(h)

	pot := potTotal(h)
	fee := rake.Poker(money.FromCents(pot), t.lvl, countInHand(h), len(h.Board) > 0, t.cfg.RakeCaps)
	feeCents, err := money.ToCents(fee)
	if err != nil {
		t.abortAndHalt(ctx, "rake conversion", err)
		return
	}
	t.seats[winner].Chips += pot - feeCents
	if feeCents > 0 {
		if err := t.bank.TableRake(ctx, t.cfg.Currency, fee, money.FromCents(pot), t.handRef(h.No)); err != nil {
			// Chips already moved; the audit will surface the gap.
			t.logger.Error("rake collection failed", "hand", h.No, "err", err)
		}
	}

	results := []PotResult{{
		Amount: fmtCents(pot), Fee: money.Format(fee),
		Eligible: []int{winner}, Winners: []int{winner},
	}}
	t.finishHand(ctx, now, "all-folded", results, fee)
}

// runoutAndSettle deals the remaining board with no further betting and
// settles. Called under mu.
func (t *Table) runoutAndSettle(ctx context.Context, now time.Time) {
	h := t.hand
	h.ActionOn = -1
	t.clearActionDeadline()
	t.returnUncalledExcess(h)
	for h.Street != StreetRiver || len(h.Board) < 5 {
		switch h.Street {
		case StreetPreflop:
			cardsDealt := t.revealBoard(h, 3)
			h.Street = StreetFlop
			t.pub.Publish(bus.TableTopic(t.cfg.ID), EventStreetDealt, StreetEvent{
				Street: StreetFlop, Cards: cardsDealt, Pot: fmtCents(potTotal(h)), Table: t.view(""),
			})
		case StreetFlop:
			cardsDealt := t.revealBoard(h, 1)
			h.Street = StreetTurn
			t.pub.Publish(bus.TableTopic(t.cfg.ID), EventStreetDealt, StreetEvent{
				Street: StreetTurn, Cards: cardsDealt, Pot: fmtCents(potTotal(h)), Table: t.view(""),
			})
		case StreetTurn:
			cardsDealt := t.revealBoard(h, 1)
			h.Street = StreetRiver
			t.pub.Publish(bus.TableTopic(t.cfg.ID), EventStreetDealt, StreetEvent{
				Street: StreetRiver, Cards: cardsDealt, Pot: fmtCents(potTotal(h)), Table: t.view(""),
			})
		default:
			t.settleShowdown(ctx, now)
			return
		}
	}
	t.settleShowdown(ctx, now)
}

// settleShowdown slices the pot, evaluates every tier and pays winners
// net of rake. The chip sheet must balance to the cent or the table
// halts. Called under mu.
func (t *Table) settleShowdown(ctx context.Context, now time.Time) {
	h := t.hand
	h.ActionOn = -1
	t.clearActionDeadline()
	t.returnUncalledExcess(h)

	if len(h.Board) < 5 {
		t.abortAndHalt(ctx, "short board at showdown", nil)
		return
	}
	board5 := h.Board[:5]

	eligible := make([]bool, t.cfg.MaxSeats)
	for i := range h.InHand {
		eligible[i] = h.InHand[i] && !h.Folded[i]
	}
	pots, err := buildPots(h.TotalCommit, eligible)
	if err != nil {
		t.abortAndHalt(ctx, "pot build", err)
		return
	}
	h.Pots = pots

	players := countInHand(h)
	awards := make([]int64, t.cfg.MaxSeats)
	results := make([]PotResult, 0, len(pots))
	rakeTotal := decimal.Zero
	var awarded, raked int64

	for _, pot := range pots {
		if pot.Amount == 0 || len(pot.Eligible) == 0 {
			continue
		}
		fee := rake.Poker(money.FromCents(pot.Amount), t.lvl, players, true, t.cfg.RakeCaps)
		feeCents, err := money.ToCents(fee)
		if err != nil {
			t.abortAndHalt(ctx, "rake conversion", err)
			return
		}

		var winners []int
		var rankName string
		if len(pot.Eligible) == 1 {
			winners = []int{pot.Eligible[0]}
		} else {
			holeBySeat := make(map[int][2]cards.Card, len(pot.Eligible))
			for _, seat := range pot.Eligible {
				if s := t.seats[seat]; s != nil && s.HasHole {
					holeBySeat[seat] = s.Hole
				}
			}
			var ranks map[int]holdem.HandRank
			winners, ranks, err = holdem.Winners(board5, holeBySeat)
			if err != nil {
				t.abortAndHalt(ctx, "showdown evaluation", err)
				return
			}
			rankName = ranks[winners[0]].Category.String()
		}

		distributable := pot.Amount - feeCents
		share := distributable / int64(len(winners))
		remainder := distributable % int64(len(winners))
		first := t.earliestPostflop(winners)
		for _, w := range winners {
			awards[w] += share
			if w == first {
				awards[w] += remainder
			}
		}
		awarded += distributable
		raked += feeCents
		rakeTotal = rakeTotal.Add(fee)

		results = append(results, PotResult{
			Amount:   fmtCents(pot.Amount),
			Fee:      money.Format(fee),
			Eligible: append([]int(nil), pot.Eligible...),
			Winners:  append([]int(nil), winners...),
			Rank:     rankName,
		})
		if feeCents > 0 {
			if err := t.bank.TableRake(ctx, t.cfg.Currency, fee, money.FromCents(pot.Amount), t.handRef(h.No)); err != nil {
				t.logger.Error("rake collection failed", "hand", h.No, "err", err)
			}
		}
	}

	if awarded+raked != potTotal(h) {
		t.abortAndHalt(ctx, "settlement imbalance",
			fmt.Errorf("awarded %d + rake %d != pot %d", awarded, raked, potTotal(h)))
		return
	}
	for seat, amt := range awards {
		if amt == 0 {
			continue
		}
		if s := t.seats[seat]; s != nil {
			s.Chips += amt
		}
	}

	reveals := make([]ShowdownSeat, 0, players)
	for i, s := range t.seats {
		if s == nil || !eligible[i] || !s.HasHole {
			continue
		}
		rank := holdem.Evaluate7(append(append([]cards.Card(nil), board5...), s.Hole[0], s.Hole[1]))
		reveals = append(reveals, ShowdownSeat{
			Seat: i, Agent: s.AgentID,
			Cards: [2]string{s.Hole[0].String(), s.Hole[1].String()},
			Rank:  rank.Category.String(),
		})
	}
	t.pub.Publish(bus.TableTopic(t.cfg.ID), EventShowdown, ShowdownEvent{
		HandNo: h.No, Board: cards.Strings(board5), Pots: results, Reveals: reveals,
	})
	t.finishHand(ctx, now, "showdown", results, rakeTotal)
}

// earliestPostflop picks, among the given seats, the first to act after
// the flop: the closest clockwise from the button. Remainder cents from
// split pots land there.
func (t *Table) earliestPostflop(seats []int) int {
	h := t.hand
	n := t.cfg.MaxSeats
	best, bestOrder := -1, n
	for _, s := range seats {
		order := (s - h.Button - 1 + n) % n
		if order < bestOrder {
			best, bestOrder = s, order
		}
	}
	return best
}

// finishHand archives the hand, reveals the shuffle seed and books the
// next deal. Called under mu.
func (t *Table) finishHand(ctx context.Context, now time.Time, reason string, results []PotResult, rakeTotal decimal.Decimal) {
	h := t.hand
	summary, err := json.Marshal(handSummary{Reason: reason, Pots: results})
	if err != nil {
		t.logger.Error("hand summary marshal failed", "hand", h.No, "err", err)
		summary = nil
	}
	rec := store.HandRecord{
		ID:       uuid.New(),
		TableID:  t.cfg.ID,
		HandNo:   h.No,
		Currency: t.cfg.Currency,
		SeedHash: h.SeedHash,
		Seed:     hex.EncodeToString(h.Seed),
		Board:    cards.Strings(h.Board),
		Summary:  summary,
		Rake:     rakeTotal,
		PlayedAt: now,
	}
	if err := t.arch.SaveHand(ctx, rec); err != nil {
		t.logger.Error("hand record save failed", "hand", h.No, "err", err)
	}

	for _, s := range t.seats {
		if s == nil {
			continue
		}
		s.Hole = [2]cards.Card{}
		s.HasHole = false
	}
	handNo, seed, seedHash := h.No, hex.EncodeToString(h.Seed), h.SeedHash
	t.hand = nil
	t.clearActionDeadline()

	t.pub.Publish(bus.TableTopic(t.cfg.ID), EventHandComplete, HandCompleteEvent{
		HandNo: handNo, Reason: reason,
		Seed: seed, SeedHash: seedHash,
		Rake: money.Format(rakeTotal), Table: t.view(""),
	})
	t.logger.Info("hand complete", "hand", handNo, "reason", reason, "rake", money.Format(rakeTotal))

	if len(t.fundedSeats()) >= 2 {
		t.wheel.Schedule(t.aggregate(), ReasonNextHand, now.Add(t.cfg.StartDelay))
	}
	t.persist(ctx)
}

// abortAndHalt refunds every live commitment to the stacks, freezes the
// table and drops its deadlines. A halted table refuses commands until
// an operator has reconciled it. Called under mu.
func (t *Table) abortAndHalt(ctx context.Context, cause string, err error) {
	if h := t.hand; h != nil {
		for i, amt := range h.TotalCommit {
			if s := t.seats[i]; s != nil {
				s.Chips += amt
			}
		}
		for _, s := range t.seats {
			if s == nil {
				continue
			}
			s.Hole = [2]cards.Card{}
			s.HasHole = false
		}
		t.hand = nil
	}
	t.halted = true
	t.wheel.CancelAggregate(t.aggregate())
	t.logger.Error("table halted", "cause", cause, "err", err)
	t.pub.Publish(bus.TableTopic(t.cfg.ID), EventTableHalted, HaltEvent{Cause: cause})
	t.persist(ctx)
}

// armActionDeadline books the timeout for the acting seat and the first
// countdown tick. Called under mu with an acting seat set.
func (t *Table) armActionDeadline(now time.Time) {
	h := t.hand
	h.ActionDeadline = now.Add(t.cfg.ActionTimeout)
	t.wheel.Schedule(t.aggregate(), ReasonActionTimeout, h.ActionDeadline)
	if tick := now.Add(deadlineTickEvery); tick.Before(h.ActionDeadline) {
		t.wheel.Schedule(t.aggregate(), ReasonDeadlineTick, tick)
	} else {
		t.wheel.Cancel(t.aggregate(), ReasonDeadlineTick)
	}
}

func (t *Table) clearActionDeadline() {
	if h := t.hand; h != nil {
		h.ActionDeadline = time.Time{}
	}
	t.wheel.Cancel(t.aggregate(), ReasonActionTimeout)
	t.wheel.Cancel(t.aggregate(), ReasonDeadlineTick)
}

// HandleExpiry applies a due table deadline. Stale fires are harmless:
// every branch re-checks the state it is about to change.
func (t *Table) HandleExpiry(ctx context.Context, ev sched.Event) {
	id, ok := strings.CutPrefix(ev.Aggregate, AggregatePrefix)
	if !ok || id != t.cfg.ID {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.halted {
		return
	}
	now := t.clock().UTC()

	switch ev.Reason {
	case ReasonAutoStart, ReasonNextHand:
		t.startHand(ctx, now)
	case ReasonActionTimeout:
		t.timeoutAction(ctx, now)
	case ReasonDeadlineTick:
		t.deadlineTick(now)
	}
}

// timeoutAction plays the acting seat's default: check when free, fold
// when facing a bet. Called under mu.
func (t *Table) timeoutAction(ctx context.Context, now time.Time) {
	h := t.hand
	if h == nil || h.ActionOn < 0 || t.seats[h.ActionOn] == nil {
		return
	}
	if h.ActionDeadline.IsZero() || now.Before(h.ActionDeadline) {
		return
	}
	seat := h.ActionOn
	s := t.seats[seat]
	action := ActionFold
	if toCall(h, seat) == 0 {
		action = ActionCheck
	}
	if action == ActionCheck {
		if err := applyCheck(h, seat); err != nil {
			return
		}
	} else {
		applyFold(h, seat)
	}
	s.LastAction = action
	t.resolveTurn(now)
	t.pub.Publish(bus.TableTopic(t.cfg.ID), EventActionApplied, ActionEvent{
		Seat: seat, Agent: s.AgentID, Action: action, Auto: true, Table: t.view(""),
	})
	t.logger.Info("action timed out", "hand", h.No, "seat", seat, "agent", s.AgentID, "action", action)
	t.settleIfDone(ctx, now)
	t.persist(ctx)
}

// deadlineTick publishes the countdown for the acting seat and books the
// next tick while time remains. Called under mu.
func (t *Table) deadlineTick(now time.Time) {
	h := t.hand
	if h == nil || h.ActionOn < 0 || t.seats[h.ActionOn] == nil || h.ActionDeadline.IsZero() {
		return
	}
	remaining := h.ActionDeadline.Sub(now)
	if remaining <= 0 {
		return
	}
	t.pub.Publish(bus.TableTopic(t.cfg.ID), EventActionDeadline, DeadlineEvent{
		Seat: h.ActionOn, Agent: t.seats[h.ActionOn].AgentID,
		Deadline: h.ActionDeadline, RemainingSecs: int(remaining / time.Second),
	})
	if next := now.Add(deadlineTickEvery); next.Before(h.ActionDeadline) {
		t.wheel.Schedule(t.aggregate(), ReasonDeadlineTick, next)
	}
}

// persist snapshots the table. Failures are logged, never fatal: the
// in-memory aggregate stays authoritative. Called under mu.
func (t *Table) persist(ctx context.Context) {
	v := t.view("")
	state, err := json.Marshal(v)
	if err != nil {
		t.logger.Error("snapshot marshal failed", "err", err)
		return
	}
	snap := store.TableSnapshot{
		ID:       t.cfg.ID,
		Name:     t.cfg.Name,
		Currency: t.cfg.Currency,
		HandNo:   t.nextHandNo,
		State:    state,
	}
	for i, s := range t.seats {
		if s == nil {
			continue
		}
		snap.Seats = append(snap.Seats, store.SeatSnapshot{
			Seat: i, AgentID: s.AgentID, DisplayName: s.DisplayName,
			Chips: money.FromCents(s.Chips),
		})
	}
	if err := t.arch.SaveTable(ctx, snap); err != nil {
		t.logger.Error("snapshot save failed", "err", err)
	}
}
