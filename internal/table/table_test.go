package table_test

import (
	"context"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"cosmossdk.io/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/RobotsMakeThings/clawcasino/internal/cards"
	"github.com/RobotsMakeThings/clawcasino/internal/ledger"
	"github.com/RobotsMakeThings/clawcasino/internal/money"
	"github.com/RobotsMakeThings/clawcasino/internal/sched"
	"github.com/RobotsMakeThings/clawcasino/internal/shuffle"
	"github.com/RobotsMakeThings/clawcasino/internal/store"
	"github.com/RobotsMakeThings/clawcasino/internal/table"
)

// recorder captures published events with their topics and payloads.
type recorder struct {
	mu     sync.Mutex
	events []busEvent
}

type busEvent struct {
	Topic string
	Type  string
	Data  any
}

func (r *recorder) Publish(topic, typ string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, busEvent{Topic: topic, Type: typ, Data: data})
}

func (r *recorder) ofType(typ string) []busEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []busEvent
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) last(t *testing.T, typ string) busEvent {
	t.Helper()
	evs := r.ofType(typ)
	require.NotEmpty(t, evs, "no %s event published", typ)
	return evs[len(evs)-1]
}

type fixture struct {
	ctx    context.Context
	clock  *sched.ManualClock
	bank   *ledger.Ledger
	mem    *store.Memory
	arch   *store.Memory
	wheel  *sched.Wheel
	tbl    *table.Table
	events *recorder
}

func newFixture(t *testing.T, mutate func(*table.Config)) *fixture {
	t.Helper()
	logger := log.NewNopLogger()
	ctx := context.Background()
	clock := sched.NewManualClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	mem := store.NewMemory()
	bank := ledger.New(logger, mem, ledger.Config{Currencies: []string{"USD"}})
	bank.SetClock(clock.Now)
	require.NoError(t, bank.Init(ctx))

	events := &recorder{}
	arch := store.NewMemory()
	var tbl *table.Table
	wheel := sched.NewWheel(logger, clock, func(ev sched.Event) {
		tbl.HandleExpiry(ctx, ev)
	})

	cfg := table.Config{
		ID: "t1", Name: "Claw Room", Currency: "USD",
		MaxSeats: 3, SmallBlind: 50, BigBlind: 100,
		MinBuyIn: 200, MaxBuyIn: 10000,
		ActionTimeout: 30 * time.Second, StartDelay: 3 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	var err error
	tbl, err = table.New(logger, bank, events, wheel, arch, cfg)
	require.NoError(t, err)
	tbl.SetClock(clock.Now)

	return &fixture{
		ctx: ctx, clock: clock, bank: bank, mem: mem, arch: arch,
		wheel: wheel, tbl: tbl, events: events,
	}
}

func (f *fixture) fund(t *testing.T, id, wallet, amount string) {
	t.Helper()
	_, err := f.bank.Register(f.ctx, id, wallet, id)
	require.NoError(t, err)
	_, err = f.bank.Deposit(f.ctx, id, "USD", money.MustParse(amount))
	require.NoError(t, err)
}

func (f *fixture) sit(t *testing.T, agent, amount string) table.View {
	t.Helper()
	v, err := f.tbl.Sit(f.ctx, agent, agent, money.MustParse(amount))
	require.NoError(t, err)
	return v
}

func (f *fixture) act(t *testing.T, agent, action, amount string) table.View {
	t.Helper()
	amt := decimal.Zero
	if amount != "" {
		amt = money.MustParse(amount)
	}
	v, err := f.tbl.Act(f.ctx, agent, action, amt)
	require.NoError(t, err, "%s %s %s", agent, action, amount)
	return v
}

func (f *fixture) balance(t *testing.T, id string) string {
	t.Helper()
	b, err := f.bank.Balance(f.ctx, id, "USD")
	require.NoError(t, err)
	return money.Format(b)
}

// fire advances the clock and dispatches every due deadline.
func (f *fixture) fire(t *testing.T, d time.Duration) int {
	t.Helper()
	f.clock.Advance(d)
	return f.wheel.Tick(f.clock.Now())
}

func (f *fixture) requireBalanced(t *testing.T) {
	t.Helper()
	audit, err := f.bank.TakeAudit(f.ctx, "USD")
	require.NoError(t, err)
	require.True(t, audit.Balanced, "audit off by %s", audit.Difference.String())
}

// seat finds a seat view by index.
func seat(t *testing.T, v table.View, idx int) table.SeatView {
	t.Helper()
	for _, s := range v.Seats {
		if s.Seat == idx {
			return s
		}
	}
	t.Fatalf("seat %d not in view", idx)
	return table.SeatView{}
}

// stackTotal sums the chip stacks currently on the table.
func stackTotal(t *testing.T, v table.View) decimal.Decimal {
	t.Helper()
	sum := decimal.Zero
	for _, s := range v.Seats {
		sum = sum.Add(money.MustParse(s.Chips))
	}
	return sum
}

func TestConfigValidation(t *testing.T) {
	logger := log.NewNopLogger()
	bank := ledger.New(logger, store.NewMemory(), ledger.Config{})
	events := &recorder{}
	arch := store.NewMemory()
	wheel := sched.NewWheel(logger, sched.NewManualClock(time.Now()), func(sched.Event) {})

	good := table.Config{
		ID: "t1", Currency: "USD", MaxSeats: 6,
		SmallBlind: 50, BigBlind: 100, MinBuyIn: 200, MaxBuyIn: 10000,
	}
	_, err := table.New(logger, bank, events, wheel, arch, good)
	require.NoError(t, err)

	for name, mutate := range map[string]func(*table.Config){
		"missing id":        func(c *table.Config) { c.ID = "" },
		"missing currency":  func(c *table.Config) { c.Currency = "" },
		"one seat":          func(c *table.Config) { c.MaxSeats = 1 },
		"seven seats":       func(c *table.Config) { c.MaxSeats = 7 },
		"zero small blind":  func(c *table.Config) { c.SmallBlind = 0 },
		"blinds inverted":   func(c *table.Config) { c.BigBlind = 25 },
		"buy-in below big":  func(c *table.Config) { c.MinBuyIn = 50 },
		"buy-ins inverted":  func(c *table.Config) { c.MaxBuyIn = 100; c.MinBuyIn = 500 },
	} {
		cfg := good
		mutate(&cfg)
		_, err := table.New(logger, bank, events, wheel, arch, cfg)
		require.ErrorIs(t, err, table.ErrInvalidConfig, name)
	}

	require.Panics(t, func() {
		_, _ = table.New(nil, bank, events, wheel, arch, good)
	})
}

func TestHeadsUpHandLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(t, "alice", "0xAAA", "50.00")
	f.fund(t, "bob", "0xBBB", "50.00")

	v := f.sit(t, "alice", "10.00")
	require.Len(t, v.Seats, 1)
	require.Equal(t, "10.00", seat(t, v, 0).Chips)
	require.Equal(t, "sitting-out", seat(t, v, 0).Status)
	require.Equal(t, "40.00", f.balance(t, "alice"))
	require.Equal(t, 0, f.wheel.Pending(), "one player must not start a hand")

	f.sit(t, "bob", "10.00")
	require.Equal(t, 1, f.wheel.Pending(), "two funded players arm the auto start")

	require.GreaterOrEqual(t, f.fire(t, 3*time.Second), 1)

	// Heads-up: the button posts the small blind and acts first preflop.
	started, ok := f.events.last(t, table.EventHandStarted).Data.(table.HandStartedEvent)
	require.True(t, ok)
	require.Equal(t, uint64(1), started.HandNo)
	require.Equal(t, 0, started.Button)
	require.Equal(t, 0, started.SmallBlindSeat)
	require.Equal(t, 1, started.BigBlindSeat)
	require.Len(t, started.SeedHash, 64)

	holes := f.events.ofType(table.EventHoleCards)
	require.Len(t, holes, 2)
	require.Equal(t, "agent:alice", holes[0].Topic)
	require.Equal(t, "agent:bob", holes[1].Topic)

	pub := f.tbl.View("")
	require.NotNil(t, pub.Hand)
	require.Equal(t, table.StreetPreflop, pub.Hand.Street)
	require.Equal(t, "1.00", pub.Hand.BetTo)
	require.Equal(t, "2.00", pub.Hand.MinRaiseTo)
	require.Equal(t, 0, pub.Hand.ActionOn)
	require.Equal(t, "alice", pub.Hand.ActionAgent)
	require.Equal(t, "0.50", pub.Hand.ToCall)
	require.Equal(t, []string{"fold", "call", "raise", "allin"}, pub.Hand.LegalActions)
	require.NotNil(t, pub.Hand.ActionDeadline)
	require.Equal(t, f.clock.Now().Add(30*time.Second), *pub.Hand.ActionDeadline)
	require.Equal(t, "9.50", seat(t, pub, 0).Chips)
	require.Equal(t, "0.50", seat(t, pub, 0).StreetBet)
	require.Equal(t, "9.00", seat(t, pub, 1).Chips)
	require.Equal(t, "1.00", seat(t, pub, 1).StreetBet)

	// Hole cards are private to the seat owner.
	require.Equal(t, 2, seat(t, pub, 0).HoleCount)
	require.Empty(t, seat(t, pub, 0).Hole)
	own := f.tbl.View("alice")
	require.Len(t, seat(t, own, 0).Hole, 2)
	require.Empty(t, seat(t, own, 1).Hole)

	// Calling the blind leaves the big blind with the option to raise.
	f.act(t, "alice", "call", "")
	v = f.tbl.View("")
	require.Equal(t, "bob", v.Hand.ActionAgent)
	require.Equal(t, []string{"fold", "check", "raise", "allin"}, v.Hand.LegalActions)

	// The check seals preflop; heads-up the big blind acts first postflop.
	f.act(t, "bob", "check", "")
	flop, ok := f.events.last(t, table.EventStreetDealt).Data.(table.StreetEvent)
	require.True(t, ok)
	require.Equal(t, table.StreetFlop, flop.Street)
	require.Len(t, flop.Cards, 3)
	require.Equal(t, "2.00", flop.Pot)
	require.Equal(t, "bob", f.tbl.View("").Hand.ActionAgent)

	f.act(t, "bob", "check", "")
	f.act(t, "alice", "check", "")
	require.Equal(t, table.StreetTurn, f.tbl.View("").Hand.Street)
	f.act(t, "bob", "check", "")
	f.act(t, "alice", "check", "")
	require.Equal(t, table.StreetRiver, f.tbl.View("").Hand.Street)
	f.act(t, "bob", "check", "")
	f.act(t, "alice", "check", "")

	// Showdown: the pot pays out net of rake and the seed goes public.
	sd, ok := f.events.last(t, table.EventShowdown).Data.(table.ShowdownEvent)
	require.True(t, ok)
	require.Len(t, sd.Board, 5)
	require.Len(t, sd.Pots, 1)
	require.Equal(t, "2.00", sd.Pots[0].Amount)
	require.Equal(t, "0.10", sd.Pots[0].Fee)
	require.Len(t, sd.Reveals, 2)
	for _, r := range sd.Reveals {
		require.NotEmpty(t, r.Rank)
	}

	done, ok := f.events.last(t, table.EventHandComplete).Data.(table.HandCompleteEvent)
	require.True(t, ok)
	require.Equal(t, "showdown", done.Reason)
	require.Equal(t, "0.10", done.Rake)

	// The revealed seed reproduces the commitment and the exact deal:
	// four hole cards for two seats, then the five board cards.
	seed, err := hex.DecodeString(done.Seed)
	require.NoError(t, err)
	require.True(t, shuffle.Verify(seed, done.SeedHash))
	deck := shuffle.Deck(seed)
	require.Equal(t, sd.Board, cards.Strings(deck[4:9]))

	final := f.tbl.View("")
	require.Nil(t, final.Hand)
	require.Equal(t, "19.90", money.Format(stackTotal(t, final)))
	require.Equal(t, "0.10", f.balance(t, ledger.HouseAgent))
	require.Equal(t, 1, f.wheel.Pending(), "next hand must be booked")
	f.requireBalanced(t)
}

func TestSitGuards(t *testing.T) {
	f := newFixture(t, func(c *table.Config) { c.MaxSeats = 2 })
	f.fund(t, "alice", "0xAAA", "50.00")
	f.fund(t, "bob", "0xBBB", "50.00")
	f.fund(t, "carol", "0xCCC", "50.00")
	f.fund(t, "dave", "0xDDD", "0.50")

	_, err := f.tbl.Sit(f.ctx, "alice", "alice", money.MustParse("1.99"))
	require.ErrorIs(t, err, table.ErrBuyInRange)
	_, err = f.tbl.Sit(f.ctx, "alice", "alice", money.MustParse("100.01"))
	require.ErrorIs(t, err, table.ErrBuyInRange)

	f.sit(t, "alice", "10.00")
	_, err = f.tbl.Sit(f.ctx, "alice", "alice", money.MustParse("10.00"))
	require.ErrorIs(t, err, table.ErrAlreadySeated)

	// A failed debit must not leave a half-seated player.
	_, err = f.tbl.Sit(f.ctx, "dave", "dave", money.MustParse("10.00"))
	require.ErrorIs(t, err, store.ErrInsufficientFunds)
	require.Len(t, f.tbl.View("").Seats, 1)
	require.Equal(t, "0.50", f.balance(t, "dave"))

	f.sit(t, "bob", "10.00")
	_, err = f.tbl.Sit(f.ctx, "carol", "carol", money.MustParse("10.00"))
	require.ErrorIs(t, err, table.ErrTableFull)
	f.requireBalanced(t)
}

func TestFoldEndsHandWithoutRake(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(t, "alice", "0xAAA", "50.00")
	f.fund(t, "bob", "0xBBB", "50.00")
	f.sit(t, "alice", "10.00")
	f.sit(t, "bob", "10.00")
	f.fire(t, 3*time.Second)

	// Button folds preflop: no community card, so no rake.
	f.act(t, "alice", "fold", "")

	done, ok := f.events.last(t, table.EventHandComplete).Data.(table.HandCompleteEvent)
	require.True(t, ok)
	require.Equal(t, "all-folded", done.Reason)
	require.Equal(t, "0.00", done.Rake)

	v := f.tbl.View("")
	require.Nil(t, v.Hand)
	require.Equal(t, "9.50", seat(t, v, 0).Chips)
	require.Equal(t, "10.50", seat(t, v, 1).Chips)
	require.Equal(t, "0.00", f.balance(t, ledger.HouseAgent))

	rows, err := f.mem.RakeRows(f.ctx, "USD", 10)
	require.NoError(t, err)
	require.Empty(t, rows, "no flop, no drop")

	// The button passes to the other seat for the next deal.
	f.fire(t, 3*time.Second)
	started, ok := f.events.last(t, table.EventHandStarted).Data.(table.HandStartedEvent)
	require.True(t, ok)
	require.Equal(t, uint64(2), started.HandNo)
	require.Equal(t, 1, started.Button)
	require.Equal(t, 1, started.SmallBlindSeat)
	require.Equal(t, 0, started.BigBlindSeat)
	require.Equal(t, "bob", f.tbl.View("").Hand.ActionAgent)
	f.requireBalanced(t)
}

func TestUncalledBetReturnedAndFlopPotRaked(t *testing.T) {
	f := newFixture(t, nil)
	for _, a := range []string{"alice", "bob", "carol"} {
		f.fund(t, a, "0x"+a, "50.00")
		f.sit(t, a, "10.00")
	}
	f.fire(t, 3*time.Second)

	// Button 0: alice opens the action, blinds are bob and carol.
	f.act(t, "alice", "call", "")
	f.act(t, "bob", "call", "")
	f.act(t, "carol", "check", "")
	require.Equal(t, table.StreetFlop, f.tbl.View("").Hand.Street)

	// Bob's flop bet chases everyone out; the bet comes back untouched
	// but the called preflop pot was raked because the flop was dealt.
	f.act(t, "bob", "bet", "2.00")
	f.act(t, "carol", "fold", "")
	f.act(t, "alice", "fold", "")

	done, ok := f.events.last(t, table.EventHandComplete).Data.(table.HandCompleteEvent)
	require.True(t, ok)
	require.Equal(t, "all-folded", done.Reason)
	require.Equal(t, "0.15", done.Rake)

	v := f.tbl.View("")
	require.Equal(t, "9.00", seat(t, v, 0).Chips)
	require.Equal(t, "11.85", seat(t, v, 1).Chips)
	require.Equal(t, "9.00", seat(t, v, 2).Chips)
	require.Equal(t, "0.15", f.balance(t, ledger.HouseAgent))

	rows, err := f.mem.RakeRows(f.ctx, "USD", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "poker", rows[0].Game)
	require.Equal(t, "3.00", money.Format(rows[0].Pot))
	require.Equal(t, "0.15", money.Format(rows[0].Fee))
	require.Equal(t, "t1#1", rows[0].Reference)
	f.requireBalanced(t)
}

func TestShortAllInDoesNotReopenBetting(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(t, "alice", "0xAAA", "50.00")
	f.fund(t, "bob", "0xBBB", "50.00")
	f.fund(t, "carol", "0xCCC", "50.00")
	f.sit(t, "alice", "10.00")
	f.sit(t, "bob", "10.00")
	f.sit(t, "carol", "2.50")
	f.fire(t, 3*time.Second)

	// Alice raises to 2.00, bob calls, carol shoves 2.50 total. The
	// half-blind extra moves the price but does not reopen the raising.
	f.act(t, "alice", "raise", "2.00")
	f.act(t, "bob", "call", "")
	f.act(t, "carol", "allin", "")

	v := f.tbl.View("")
	require.Equal(t, "2.50", v.Hand.BetTo)
	require.Equal(t, "all-in", seat(t, v, 2).Status)
	require.Equal(t, []string{"fold", "call"}, v.Hand.LegalActions,
		"matched raisers get no fresh action after a short all-in")

	_, err := f.tbl.Act(f.ctx, "alice", "raise", money.MustParse("4.00"))
	require.ErrorIs(t, err, table.ErrIllegalAction)
	_, err = f.tbl.Act(f.ctx, "alice", "allin", decimal.Zero)
	require.ErrorIs(t, err, table.ErrIllegalAction)

	f.act(t, "alice", "call", "")
	_, err = f.tbl.Act(f.ctx, "bob", "raise", money.MustParse("4.00"))
	require.ErrorIs(t, err, table.ErrIllegalAction)
	f.act(t, "bob", "call", "")

	// Carol is all-in; the other two check it down to showdown.
	for f.tbl.View("").Hand != nil {
		h := f.tbl.View("").Hand
		f.act(t, h.ActionAgent, "check", "")
	}

	sd, ok := f.events.last(t, table.EventShowdown).Data.(table.ShowdownEvent)
	require.True(t, ok)
	require.Len(t, sd.Pots, 1)
	require.Equal(t, "7.50", sd.Pots[0].Amount)
	require.Equal(t, "0.38", sd.Pots[0].Fee)
	require.ElementsMatch(t, []int{0, 1, 2}, sd.Pots[0].Eligible)

	final := f.tbl.View("")
	require.Equal(t, "22.12", money.Format(stackTotal(t, final)))
	require.Equal(t, "0.38", f.balance(t, ledger.HouseAgent))
	f.requireBalanced(t)
}

func TestThreeWayAllInBuildsSidePots(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(t, "alice", "0xAAA", "50.00")
	f.fund(t, "bob", "0xBBB", "50.00")
	f.fund(t, "carol", "0xCCC", "50.00")
	f.sit(t, "alice", "10.00")
	f.sit(t, "bob", "25.00")
	f.sit(t, "carol", "25.00")
	f.fire(t, 3*time.Second)

	// Everyone in for their whole stack; the short stack caps the main
	// pot and the two deep stacks contest the side pot.
	f.act(t, "alice", "allin", "")
	f.act(t, "bob", "allin", "")
	f.act(t, "carol", "allin", "")

	sd, ok := f.events.last(t, table.EventShowdown).Data.(table.ShowdownEvent)
	require.True(t, ok)
	require.Len(t, sd.Pots, 2)
	require.Equal(t, "30.00", sd.Pots[0].Amount)
	require.ElementsMatch(t, []int{0, 1, 2}, sd.Pots[0].Eligible)
	require.Equal(t, "30.00", sd.Pots[1].Amount)
	require.ElementsMatch(t, []int{1, 2}, sd.Pots[1].Eligible)
	require.Equal(t, "1.50", sd.Pots[0].Fee)
	require.Equal(t, "1.50", sd.Pots[1].Fee)
	require.Subset(t, []int{1, 2}, sd.Pots[1].Winners,
		"the short stack can never win the side pot")
	require.Len(t, sd.Reveals, 3)

	done, ok := f.events.last(t, table.EventHandComplete).Data.(table.HandCompleteEvent)
	require.True(t, ok)
	require.Equal(t, "3.00", done.Rake)

	final := f.tbl.View("")
	require.Equal(t, "57.00", money.Format(stackTotal(t, final)))
	require.Equal(t, "3.00", f.balance(t, ledger.HouseAgent))
	f.requireBalanced(t)

	// The archived record carries everything needed to audit the deal:
	// six hole cards for three seats, then the board, all from the seed.
	recs, err := f.arch.HandRecords(f.ctx, "t1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, uint64(1), recs[0].HandNo)
	require.Equal(t, "3.00", money.Format(recs[0].Rake))
	require.Len(t, recs[0].Board, 5)
	require.NotEmpty(t, recs[0].Summary)
	seed, err := hex.DecodeString(recs[0].Seed)
	require.NoError(t, err)
	require.True(t, shuffle.Verify(seed, recs[0].SeedHash))
	deck := shuffle.Deck(seed)
	require.Equal(t, recs[0].Board, cards.Strings(deck[6:11]))
}

func TestActionTimeoutFoldsWhenFacingABet(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(t, "alice", "0xAAA", "50.00")
	f.fund(t, "bob", "0xBBB", "50.00")
	f.sit(t, "alice", "10.00")
	f.sit(t, "bob", "10.00")
	f.fire(t, 3*time.Second)

	// Countdown ticks keep the clients informed while the clock runs.
	f.fire(t, 5*time.Second)
	tick, ok := f.events.last(t, table.EventActionDeadline).Data.(table.DeadlineEvent)
	require.True(t, ok)
	require.Equal(t, 0, tick.Seat)
	require.Equal(t, 25, tick.RemainingSecs)

	// The deadline passes with the small blind owing a call: auto fold.
	f.fire(t, 25*time.Second)
	auto, ok := f.events.last(t, table.EventActionApplied).Data.(table.ActionEvent)
	require.True(t, ok)
	require.True(t, auto.Auto)
	require.Equal(t, "fold", auto.Action)
	require.Equal(t, "alice", auto.Agent)

	v := f.tbl.View("")
	require.Nil(t, v.Hand)
	require.Equal(t, "9.50", seat(t, v, 0).Chips)
	require.Equal(t, "10.50", seat(t, v, 1).Chips)
	f.requireBalanced(t)
}

func TestActionTimeoutChecksWhenFree(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(t, "alice", "0xAAA", "50.00")
	f.fund(t, "bob", "0xBBB", "50.00")
	f.sit(t, "alice", "10.00")
	f.sit(t, "bob", "10.00")
	f.fire(t, 3*time.Second)

	// The big blind owes nothing after a limp, so the timeout checks and
	// keeps the seat in the hand.
	f.act(t, "alice", "call", "")
	f.fire(t, 30*time.Second)

	auto, ok := f.events.last(t, table.EventActionApplied).Data.(table.ActionEvent)
	require.True(t, ok)
	require.True(t, auto.Auto)
	require.Equal(t, "check", auto.Action)
	require.Equal(t, "bob", auto.Agent)

	v := f.tbl.View("")
	require.NotNil(t, v.Hand)
	require.Equal(t, table.StreetFlop, v.Hand.Street)
	require.Equal(t, "active", seat(t, v, 1).Status)

	// Left alone, the table plays the hand out by itself.
	for f.tbl.View("").Hand != nil {
		require.GreaterOrEqual(t, f.fire(t, 30*time.Second), 1)
	}
	done, ok := f.events.last(t, table.EventHandComplete).Data.(table.HandCompleteEvent)
	require.True(t, ok)
	require.Equal(t, "showdown", done.Reason)
	require.Equal(t, "19.90", money.Format(stackTotal(t, f.tbl.View(""))))
	require.Equal(t, "0.10", f.balance(t, ledger.HouseAgent))
	f.requireBalanced(t)
}

func TestLeaveRules(t *testing.T) {
	f := newFixture(t, nil)
	for _, a := range []string{"alice", "bob", "carol"} {
		f.fund(t, a, "0x"+a, "50.00")
		f.sit(t, a, "10.00")
	}
	f.fire(t, 3*time.Second)

	_, err := f.tbl.Leave(f.ctx, "dave")
	require.ErrorIs(t, err, table.ErrNotSeated)

	// A live, unfolded seat cannot walk away from the pot.
	_, err = f.tbl.Leave(f.ctx, "bob")
	require.ErrorIs(t, err, table.ErrHandInProgress)

	// Folding frees the seat to leave mid-hand with its full stack.
	f.act(t, "alice", "fold", "")
	_, err = f.tbl.Leave(f.ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "50.00", f.balance(t, "alice"))
	require.Len(t, f.tbl.View("").Seats, 2)

	// Bob folds the small blind, carol collects, and both cash out.
	f.act(t, "bob", "fold", "")
	require.Nil(t, f.tbl.View("").Hand)
	_, err = f.tbl.Leave(f.ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, "49.50", f.balance(t, "bob"))

	// One seat left: the booked next hand must not fire.
	require.Equal(t, 0, f.wheel.Pending())
	f.fire(t, 3*time.Second)
	require.Nil(t, f.tbl.View("").Hand)

	_, err = f.tbl.Leave(f.ctx, "carol")
	require.NoError(t, err)
	require.Equal(t, "50.50", f.balance(t, "carol"))
	require.Empty(t, f.tbl.View("").Seats)
	require.Equal(t, "0.00", f.balance(t, ledger.HouseAgent))
	f.requireBalanced(t)
}

func TestSitDuringHandWaitsForNextDeal(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(t, "alice", "0xAAA", "50.00")
	f.fund(t, "bob", "0xBBB", "50.00")
	f.fund(t, "carol", "0xCCC", "50.00")
	f.sit(t, "alice", "10.00")
	f.sit(t, "bob", "10.00")
	f.fire(t, 3*time.Second)

	// Carol sits into a live hand and waits it out.
	f.sit(t, "carol", "10.00")
	v := f.tbl.View("")
	require.Equal(t, "sitting-out", seat(t, v, 2).Status)
	require.Zero(t, seat(t, v, 2).HoleCount)

	_, err := f.tbl.Act(f.ctx, "carol", "fold", decimal.Zero)
	require.ErrorIs(t, err, table.ErrNotYourTurn)

	f.act(t, "alice", "fold", "")
	f.fire(t, 3*time.Second)

	v = f.tbl.View("")
	require.NotNil(t, v.Hand)
	for _, idx := range []int{0, 1, 2} {
		require.NotEqual(t, "sitting-out", seat(t, v, idx).Status)
	}
	f.requireBalanced(t)
}

func TestActionGuards(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(t, "alice", "0xAAA", "50.00")
	f.fund(t, "bob", "0xBBB", "50.00")

	_, err := f.tbl.Act(f.ctx, "alice", "fold", decimal.Zero)
	require.ErrorIs(t, err, table.ErrNoActiveHand)

	f.sit(t, "alice", "10.00")
	f.sit(t, "bob", "10.00")
	f.fire(t, 3*time.Second)

	_, err = f.tbl.Act(f.ctx, "bob", "fold", decimal.Zero)
	require.ErrorIs(t, err, table.ErrNotYourTurn)
	_, err = f.tbl.Act(f.ctx, "alice", "jam", decimal.Zero)
	require.ErrorIs(t, err, table.ErrUnknownAction)

	// Facing the big blind: no checking, no betting, no undersized raise.
	_, err = f.tbl.Act(f.ctx, "alice", "check", decimal.Zero)
	require.ErrorIs(t, err, table.ErrIllegalAction)
	_, err = f.tbl.Act(f.ctx, "alice", "bet", money.MustParse("2.00"))
	require.ErrorIs(t, err, table.ErrIllegalAction)
	_, err = f.tbl.Act(f.ctx, "alice", "raise", money.MustParse("1.50"))
	require.ErrorIs(t, err, table.ErrIllegalAction)
	_, err = f.tbl.Act(f.ctx, "alice", "raise", money.MustParse("0.25"))
	require.ErrorIs(t, err, table.ErrIllegalAction)

	f.act(t, "alice", "call", "")
	f.act(t, "bob", "check", "")

	// Unopened flop: no calling, no raising, no sub-blind bet.
	_, err = f.tbl.Act(f.ctx, "bob", "call", decimal.Zero)
	require.ErrorIs(t, err, table.ErrIllegalAction)
	_, err = f.tbl.Act(f.ctx, "bob", "raise", money.MustParse("2.00"))
	require.ErrorIs(t, err, table.ErrIllegalAction)
	_, err = f.tbl.Act(f.ctx, "bob", "bet", money.MustParse("0.50"))
	require.ErrorIs(t, err, table.ErrIllegalAction)

	f.act(t, "bob", "bet", "1.00")
	v := f.tbl.View("")
	require.Equal(t, "1.00", v.Hand.BetTo)
	require.Equal(t, "2.00", v.Hand.MinRaiseTo)
	f.requireBalanced(t)
}
