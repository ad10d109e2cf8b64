package app_test

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/log"
	"github.com/stretchr/testify/require"

	"github.com/RobotsMakeThings/clawcasino/internal/app"
	"github.com/RobotsMakeThings/clawcasino/internal/bus"
	"github.com/RobotsMakeThings/clawcasino/internal/duel"
	"github.com/RobotsMakeThings/clawcasino/internal/ledger"
	"github.com/RobotsMakeThings/clawcasino/internal/money"
	"github.com/RobotsMakeThings/clawcasino/internal/sched"
	"github.com/RobotsMakeThings/clawcasino/internal/store"
	"github.com/RobotsMakeThings/clawcasino/internal/table"
)

type fixture struct {
	ctx    context.Context
	clock  *sched.ManualClock
	bank   *ledger.Ledger
	events *bus.Bus
	casino *app.Casino
}

func mainTable() table.Config {
	return table.Config{
		ID: "main", Name: "Main Floor", Currency: "USD",
		MaxSeats: 6, SmallBlind: 50, BigBlind: 100,
		MinBuyIn: 200, MaxBuyIn: 10000,
		ActionTimeout: 30 * time.Second, StartDelay: 3 * time.Second,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := log.NewNopLogger()
	ctx := context.Background()
	clock := sched.NewManualClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	mem := store.NewMemory()
	bank := ledger.New(logger, mem, ledger.Config{Currencies: []string{"USD"}})
	bank.SetClock(clock.Now)
	require.NoError(t, bank.Init(ctx))

	events := bus.New(logger)
	casino, err := app.New(logger, clock, bank, events, mem, app.Config{
		Tables: []table.Config{mainTable()},
	})
	require.NoError(t, err)

	return &fixture{ctx: ctx, clock: clock, bank: bank, events: events, casino: casino}
}

func (f *fixture) join(t *testing.T, agent, wallet, deposit, buyIn string) {
	t.Helper()
	_, err := f.casino.Register(f.ctx, agent, wallet, agent)
	require.NoError(t, err)
	_, err = f.casino.Deposit(f.ctx, agent, "USD", money.MustParse(deposit))
	require.NoError(t, err)
	_, err = f.casino.Join(f.ctx, "main", agent, agent, money.MustParse(buyIn))
	require.NoError(t, err)
}

// fire advances the clock and dispatches every due deadline through the
// casino's expiry routing.
func (f *fixture) fire(t *testing.T, d time.Duration) int {
	t.Helper()
	f.clock.Advance(d)
	return f.casino.Wheel().Tick(f.clock.Now())
}

func (f *fixture) balance(t *testing.T, agent string) string {
	t.Helper()
	b, err := f.bank.Balance(f.ctx, agent, "USD")
	require.NoError(t, err)
	return money.Format(b)
}

func drain(sub *bus.Subscription) map[string]int {
	counts := map[string]int{}
	for {
		select {
		case ev := <-sub.C():
			counts[ev.Type]++
		default:
			return counts
		}
	}
}

func TestCasinoEndToEnd(t *testing.T) {
	f := newFixture(t)
	sub := f.casino.Bus().Subscribe(128, "table:main", bus.DuelsTopic, "agent:alice")
	defer sub.Close()

	f.join(t, "alice", "0xAAA", "50.00", "10.00")
	f.join(t, "bob", "0xBBB", "50.00", "10.00")
	require.Equal(t, "40.00", f.balance(t, "alice"))

	// The booked auto start routes through the casino into the table.
	require.Equal(t, 1, f.fire(t, 3*time.Second))
	v, err := f.casino.TableView("main", "")
	require.NoError(t, err)
	require.NotNil(t, v.Hand)
	require.Equal(t, "alice", v.Hand.ActionAgent)

	// Button folds; heads-up the hand ends on the spot.
	v, err = f.casino.Act(f.ctx, "main", "alice", "fold", money.Zero)
	require.NoError(t, err)
	require.Nil(t, v.Hand)

	_, err = f.casino.LeaveTable(f.ctx, "main", "alice")
	require.NoError(t, err)
	_, err = f.casino.LeaveTable(f.ctx, "main", "bob")
	require.NoError(t, err)
	require.Equal(t, "49.50", f.balance(t, "alice"))
	require.Equal(t, "50.50", f.balance(t, "bob"))

	// Same wallets, different game: a coinflip settles through the same
	// ledger the table used.
	dv, err := f.casino.CreateCoinflip(f.ctx, "bob", "0xBBB", "bob", "USD", money.MustParse("1.00"))
	require.NoError(t, err)
	require.Len(t, f.casino.OpenDuels(duel.KindCoinflip), 1)

	got, err := f.casino.AcceptDuel(f.ctx, duel.KindCoinflip, dv.ID, "alice", "0xAAA", "alice")
	require.NoError(t, err)
	require.Equal(t, duel.StatusCompleted, got.Status)
	require.Equal(t, "0.08", got.Fee)
	require.Equal(t, "0.08", f.balance(t, ledger.HouseAgent))

	audit, err := f.casino.Audit(f.ctx, "USD")
	require.NoError(t, err)
	require.True(t, audit.Balanced, "audit off by %s", audit.Difference.String())

	// Every stage above hit the wire.
	counts := drain(sub)
	for _, typ := range []string{
		table.EventSeatUpdated, table.EventHandStarted, table.EventHoleCards,
		table.EventActionApplied, table.EventHandComplete,
		duel.EventDuelCreated, duel.EventDuelAccepted, duel.EventDuelResolved,
	} {
		require.Positive(t, counts[typ], "missing %s", typ)
	}
	require.Zero(t, sub.Dropped())
}

func TestWithdrawalsRateLimited(t *testing.T) {
	f := newFixture(t)
	_, err := f.casino.Register(f.ctx, "alice", "0xAAA", "alice")
	require.NoError(t, err)
	_, err = f.casino.Deposit(f.ctx, "alice", "USD", money.MustParse("50.00"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.casino.Withdraw(f.ctx, "alice", "USD", money.MustParse("1.00"), "0xAAA")
		require.NoError(t, err)
	}
	_, err = f.casino.Withdraw(f.ctx, "alice", "USD", money.MustParse("1.00"), "0xAAA")
	require.ErrorIs(t, err, ledger.ErrRateLimited)

	// The window rolls: an hour later the quota is back.
	f.clock.Advance(time.Hour + time.Second)
	_, err = f.casino.Withdraw(f.ctx, "alice", "USD", money.MustParse("1.00"), "0xAAA")
	require.NoError(t, err)
	require.Equal(t, "46.00", f.balance(t, "alice"))
}

func TestDuelExpiryRoutedThroughCasino(t *testing.T) {
	f := newFixture(t)
	_, err := f.casino.Register(f.ctx, "bob", "0xBBB", "bob")
	require.NoError(t, err)
	_, err = f.casino.Deposit(f.ctx, "bob", "USD", money.MustParse("10.00"))
	require.NoError(t, err)

	dv, err := f.casino.CreateCoinflip(f.ctx, "bob", "0xBBB", "bob", "USD", money.MustParse("1.00"))
	require.NoError(t, err)
	require.Equal(t, "9.00", f.balance(t, "bob"))

	require.Equal(t, 1, f.fire(t, 5*time.Minute))
	got, err := f.casino.Duel(dv.ID)
	require.NoError(t, err)
	require.Equal(t, duel.StatusExpired, got.Status)
	require.Equal(t, "10.00", f.balance(t, "bob"))

	audit, err := f.casino.Audit(f.ctx, "USD")
	require.NoError(t, err)
	require.True(t, audit.Balanced)
}

func TestTableRegistry(t *testing.T) {
	f := newFixture(t)

	_, err := f.casino.TableView("nope", "")
	require.ErrorIs(t, err, app.ErrTableNotFound)
	_, err = f.casino.Join(f.ctx, "nope", "alice", "alice", money.MustParse("10.00"))
	require.ErrorIs(t, err, app.ErrTableNotFound)

	_, err = f.casino.OpenTable(f.ctx, mainTable())
	require.ErrorIs(t, err, app.ErrTableExists)

	vip := mainTable()
	vip.ID = "vip"
	vip.SmallBlind, vip.BigBlind = 500, 1000
	vip.MinBuyIn, vip.MaxBuyIn = 2000, 100000
	v, err := f.casino.OpenTable(f.ctx, vip)
	require.NoError(t, err)
	require.Equal(t, "5.00/10.00", v.Blinds)

	views := f.casino.Tables()
	require.Len(t, views, 2)
	require.Equal(t, "main", views[0].ID)
	require.Equal(t, "vip", views[1].ID)

	bad := mainTable()
	bad.ID = "bad"
	bad.BigBlind = 10
	_, err = f.casino.OpenTable(f.ctx, bad)
	require.ErrorIs(t, err, table.ErrInvalidConfig)
}
