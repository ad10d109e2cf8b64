package ledger_test

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/log"
	"github.com/stretchr/testify/require"

	"github.com/RobotsMakeThings/clawcasino/internal/ledger"
	"github.com/RobotsMakeThings/clawcasino/internal/money"
	"github.com/RobotsMakeThings/clawcasino/internal/store"
)

func newLedger(t *testing.T) (*ledger.Ledger, context.Context) {
	t.Helper()
	l := ledger.New(log.NewNopLogger(), store.NewMemory(), ledger.Config{
		Currencies: []string{"USD", "CLAW"},
		MinDeposit: money.MustParse("0.01"),
	})
	ctx := context.Background()
	require.NoError(t, l.Init(ctx))
	for _, id := range []string{"alice", "bob", "carol"} {
		_, err := l.Register(ctx, id, "wallet-"+id, id)
		require.NoError(t, err)
	}
	return l, ctx
}

func TestRegisterIdempotent(t *testing.T) {
	l, ctx := newLedger(t)

	a, err := l.Register(ctx, "alice", "wallet-alice", "Alice Prime")
	require.NoError(t, err)
	require.Equal(t, "Alice Prime", a.DisplayName)

	_, err = l.Register(ctx, "", "w", "")
	require.ErrorIs(t, err, ledger.ErrInvalidAgent)
	_, err = l.Register(ctx, "house", "w", "")
	require.ErrorIs(t, err, ledger.ErrInvalidAgent)
}

func TestDepositRules(t *testing.T) {
	l, ctx := newLedger(t)

	txn, err := l.Deposit(ctx, "alice", "USD", money.MustParse("25.00"))
	require.NoError(t, err)
	require.Equal(t, store.KindDeposit, txn.Kind)
	require.Equal(t, "25.00", money.Format(txn.Balance))

	_, err = l.Deposit(ctx, "alice", "USD", money.MustParse("0.00"))
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)
	_, err = l.Deposit(ctx, "alice", "USD", money.MustParse("-5.00"))
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)
	_, err = l.Deposit(ctx, "alice", "EUR", money.MustParse("5.00"))
	require.ErrorIs(t, err, ledger.ErrUnknownCurrency)
	_, err = l.Deposit(ctx, "ghost", "USD", money.MustParse("5.00"))
	require.ErrorIs(t, err, store.ErrAgentNotFound)
}

func TestWithdrawRateLimit(t *testing.T) {
	l, ctx := newLedger(t)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return now })

	_, err := l.Deposit(ctx, "alice", "USD", money.MustParse("100.00"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := l.Withdraw(ctx, "alice", "USD", money.MustParse("1.00"), "dest")
		require.NoError(t, err)
	}
	_, err = l.Withdraw(ctx, "alice", "USD", money.MustParse("1.00"), "dest")
	require.ErrorIs(t, err, ledger.ErrRateLimited)

	// The window rolls: an hour later the oldest three no longer count.
	now = now.Add(61 * time.Minute)
	txn, err := l.Withdraw(ctx, "alice", "USD", money.MustParse("1.00"), "dest")
	require.NoError(t, err)
	require.Equal(t, "96.00", money.Format(txn.Balance))

	// Other agents are unaffected.
	_, err = l.Deposit(ctx, "bob", "USD", money.MustParse("10.00"))
	require.NoError(t, err)
	_, err = l.Withdraw(ctx, "bob", "USD", money.MustParse("1.00"), "dest")
	require.NoError(t, err)
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	l, ctx := newLedger(t)

	_, err := l.Withdraw(ctx, "alice", "USD", money.MustParse("1.00"), "dest")
	require.ErrorIs(t, err, store.ErrInsufficientFunds)
}

func TestCurrencyIsolation(t *testing.T) {
	l, ctx := newLedger(t)

	_, err := l.Deposit(ctx, "alice", "USD", money.MustParse("10.00"))
	require.NoError(t, err)

	require.ErrorIs(t, l.Escrow(ctx, "alice", "CLAW", money.MustParse("1.00"), "d1"), store.ErrInsufficientFunds)

	bals, err := l.Balances(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "10.00", money.Format(bals["USD"]))
	require.True(t, bals["CLAW"].IsZero())
}

func TestRakeCollection(t *testing.T) {
	l, ctx := newLedger(t)

	require.NoError(t, l.DuelRake(ctx, "coinflip", "USD", money.MustParse("0.08"), money.MustParse("2.00"), "duel-1"))
	require.NoError(t, l.TableRake(ctx, "USD", money.MustParse("0.40"), money.MustParse("10.00"), "t1-h1-pot0"))

	// Zero fees write neither a transaction nor a log row.
	require.NoError(t, l.TableRake(ctx, "USD", money.Zero, money.MustParse("3.00"), "t1-h2-pot0"))

	rows, err := l.RakeRows(ctx, "USD", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "poker", rows[0].Game)
	require.Equal(t, "coinflip", rows[1].Game)

	house, err := l.Balance(ctx, ledger.HouseAgent, "USD")
	require.NoError(t, err)
	require.Equal(t, "0.48", money.Format(house))
}

// The conservation identity must hold after any interleaving of wallet,
// table and duel movements.
func TestAuditBalancesAfterMixedActivity(t *testing.T) {
	l, ctx := newLedger(t)

	deposit := func(agent, amt string) {
		_, err := l.Deposit(ctx, agent, "USD", money.MustParse(amt))
		require.NoError(t, err)
	}
	deposit("alice", "100.00")
	deposit("bob", "80.00")
	deposit("carol", "60.00")

	_, err := l.Withdraw(ctx, "carol", "USD", money.MustParse("10.00"), "dest")
	require.NoError(t, err)

	// Poker: two buy-ins, one hand raked, one cash-out.
	require.NoError(t, l.TableBuyIn(ctx, "alice", "USD", money.MustParse("50.00"), "t1"))
	require.NoError(t, l.TableBuyIn(ctx, "bob", "USD", money.MustParse("50.00"), "t1"))
	require.NoError(t, l.TableRake(ctx, "USD", money.MustParse("0.35"), money.MustParse("7.00"), "t1-h1-pot0"))
	require.NoError(t, l.TableCashOut(ctx, "bob", "USD", money.MustParse("46.65"), "t1"))

	// Coinflip: both stakes escrowed, winner paid less 4%.
	require.NoError(t, l.Escrow(ctx, "alice", "USD", money.MustParse("1.00"), "cf-1"))
	require.NoError(t, l.Escrow(ctx, "carol", "USD", money.MustParse("1.00"), "cf-1"))
	require.NoError(t, l.Payout(ctx, "carol", "USD", money.MustParse("1.92"), "cf-1"))
	require.NoError(t, l.DuelRake(ctx, "coinflip", "USD", money.MustParse("0.08"), money.MustParse("2.00"), "cf-1"))

	// An RPS game that fizzles out refunds both stakes.
	require.NoError(t, l.Escrow(ctx, "bob", "USD", money.MustParse("2.00"), "rps-1"))
	require.NoError(t, l.Escrow(ctx, "carol", "USD", money.MustParse("2.00"), "rps-1"))
	require.NoError(t, l.Refund(ctx, "bob", "USD", money.MustParse("2.00"), "rps-1"))
	require.NoError(t, l.Refund(ctx, "carol", "USD", money.MustParse("2.00"), "rps-1"))

	a, err := l.TakeAudit(ctx, "USD")
	require.NoError(t, err)
	require.True(t, a.Balanced, "difference %s", money.Format(a.Difference))
	require.Equal(t, "240.00", money.Format(a.Deposits))
	require.Equal(t, "10.00", money.Format(a.Withdrawals))
	require.Equal(t, "0.43", money.Format(a.Rake))

	// Table still holds chips for the seat that never cashed out.
	require.Equal(t, "53.00", money.Format(a.TableChips))
	require.True(t, a.DuelEscrows.IsZero())
}
