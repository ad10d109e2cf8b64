// Package ledger is the shared multi-currency account book. Every agent
// holds one balance per currency, every mutation appends a transaction
// with its post balance, and the whole history satisfies a single audit
// identity: deposits minus withdrawals equals wallets plus table chips
// plus duel escrows plus rake.
package ledger

import (
	"context"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/shopspring/decimal"

	"github.com/RobotsMakeThings/clawcasino/internal/money"
	"github.com/RobotsMakeThings/clawcasino/internal/store"
)

// HouseAgent is the sink that accumulates rake. It is excluded from the
// wallet aggregate so collected rake is counted exactly once.
const HouseAgent = "house"

// Config carries the ledger policy knobs.
type Config struct {
	Currencies     []string
	MinDeposit     decimal.Decimal
	WithdrawMax    int
	WithdrawWindow time.Duration
}

// Ledger mediates every money movement. Balance atomicity lives in the
// store's Adjust; the ledger owns policy, kinds and the rake log.
type Ledger struct {
	logger     log.Logger
	store      store.Store
	clock      func() time.Time
	currencies map[string]bool
	minDeposit decimal.Decimal

	withdrawMax    int
	withdrawWindow time.Duration
}

// New wires a ledger over a store. It panics on nil dependencies, which
// are programmer errors, and applies policy defaults for zero values.
func New(logger log.Logger, st store.Store, cfg Config) *Ledger {
	if logger == nil {
		panic("ledger: nil logger")
	}
	if st == nil {
		panic("ledger: nil store")
	}
	if len(cfg.Currencies) == 0 {
		cfg.Currencies = []string{"USD"}
	}
	if cfg.MinDeposit.IsZero() {
		cfg.MinDeposit = decimal.New(1, -2)
	}
	if cfg.WithdrawMax == 0 {
		cfg.WithdrawMax = 3
	}
	if cfg.WithdrawWindow == 0 {
		cfg.WithdrawWindow = time.Hour
	}
	currencies := make(map[string]bool, len(cfg.Currencies))
	for _, c := range cfg.Currencies {
		currencies[c] = true
	}
	return &Ledger{
		logger:         logger.With("module", ModuleName),
		store:          st,
		clock:          time.Now,
		currencies:     currencies,
		minDeposit:     cfg.MinDeposit,
		withdrawMax:    cfg.WithdrawMax,
		withdrawWindow: cfg.WithdrawWindow,
	}
}

// SetClock swaps the time source. Tests pin it alongside the scheduler
// clock so rate-limit windows line up.
func (l *Ledger) SetClock(clock func() time.Time) {
	l.clock = clock
	if m, ok := l.store.(*store.Memory); ok {
		m.Clock = clock
	}
}

// Init makes sure the house sink exists. Call once at startup.
func (l *Ledger) Init(ctx context.Context) error {
	err := l.store.CreateAgent(ctx, store.Agent{ID: HouseAgent, Wallet: HouseAgent, DisplayName: "House"})
	if err != nil && !errorsmod.IsOf(err, store.ErrAgentExists) {
		return err
	}
	return nil
}

// Currencies lists the configured currencies in no particular order.
func (l *Ledger) Currencies() []string {
	out := make([]string, 0, len(l.currencies))
	for c := range l.currencies {
		out = append(out, c)
	}
	return out
}

// KnownCurrency reports whether the ledger accepts the currency.
func (l *Ledger) KnownCurrency(currency string) bool {
	return l.currencies[currency]
}

// Register creates an agent, or refreshes the wallet and display name of
// an existing one. Registration is idempotent.
func (l *Ledger) Register(ctx context.Context, id, wallet, displayName string) (store.Agent, error) {
	id = strings.TrimSpace(id)
	wallet = strings.TrimSpace(wallet)
	if id == "" || wallet == "" {
		return store.Agent{}, errorsmod.Wrap(ErrInvalidAgent, "agent id and wallet are required")
	}
	if id == HouseAgent {
		return store.Agent{}, errorsmod.Wrapf(ErrInvalidAgent, "%s is reserved", HouseAgent)
	}
	if displayName == "" {
		displayName = id
	}
	a := store.Agent{ID: id, Wallet: wallet, DisplayName: displayName}
	err := l.store.CreateAgent(ctx, a)
	switch {
	case err == nil:
		l.logger.Info("agent registered", "agent", id, "wallet", wallet)
	case errorsmod.IsOf(err, store.ErrAgentExists):
		if err := l.store.UpdateAgent(ctx, a); err != nil {
			return store.Agent{}, err
		}
	default:
		return store.Agent{}, err
	}
	return l.store.GetAgent(ctx, id)
}

// Agent returns a registered agent.
func (l *Ledger) Agent(ctx context.Context, id string) (store.Agent, error) {
	return l.store.GetAgent(ctx, id)
}

// Balance returns one balance; missing rows read as zero.
func (l *Ledger) Balance(ctx context.Context, agentID, currency string) (decimal.Decimal, error) {
	if !l.KnownCurrency(currency) {
		return decimal.Zero, errorsmod.Wrapf(ErrUnknownCurrency, "currency %q", currency)
	}
	return l.store.Balance(ctx, agentID, currency)
}

// Balances returns the agent's balance in every configured currency.
func (l *Ledger) Balances(ctx context.Context, agentID string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(l.currencies))
	for c := range l.currencies {
		bal, err := l.store.Balance(ctx, agentID, c)
		if err != nil {
			return nil, err
		}
		out[c] = bal
	}
	return out, nil
}

// History returns the agent's transactions, newest first.
func (l *Ledger) History(ctx context.Context, agentID, currency string, limit int) ([]store.Transaction, error) {
	if !l.KnownCurrency(currency) {
		return nil, errorsmod.Wrapf(ErrUnknownCurrency, "currency %q", currency)
	}
	return l.store.Transactions(ctx, agentID, currency, limit)
}

// Deposit credits external funds into an agent's wallet.
func (l *Ledger) Deposit(ctx context.Context, agentID, currency string, amount decimal.Decimal) (store.Transaction, error) {
	if err := l.checkAmount(currency, amount); err != nil {
		return store.Transaction{}, err
	}
	if amount.LessThan(l.minDeposit) {
		return store.Transaction{}, errorsmod.Wrapf(ErrBelowMinDeposit,
			"deposit %s, minimum %s", money.Format(amount), money.Format(l.minDeposit))
	}
	txn, err := l.store.Adjust(ctx, agentID, currency, amount, store.KindDeposit, "", "")
	if err != nil {
		return store.Transaction{}, err
	}
	l.logger.Info("deposit", "agent", agentID, "currency", currency, "amount", money.Format(amount))
	return txn, nil
}

// Withdraw debits an agent's wallet toward an external destination. A
// rolling window limits how often any one agent can withdraw.
func (l *Ledger) Withdraw(ctx context.Context, agentID, currency string, amount decimal.Decimal, destination string) (store.Transaction, error) {
	if err := l.checkAmount(currency, amount); err != nil {
		return store.Transaction{}, err
	}
	since := l.clock().Add(-l.withdrawWindow)
	n, err := l.store.CountKindSince(ctx, agentID, store.KindWithdraw, since)
	if err != nil {
		return store.Transaction{}, err
	}
	if n >= l.withdrawMax {
		return store.Transaction{}, errorsmod.Wrapf(ErrRateLimited,
			"%d withdrawals in the last %s", n, l.withdrawWindow)
	}
	txn, err := l.store.Adjust(ctx, agentID, currency, amount.Neg(), store.KindWithdraw, "", destination)
	if err != nil {
		return store.Transaction{}, err
	}
	l.logger.Info("withdraw", "agent", agentID, "currency", currency,
		"amount", money.Format(amount), "destination", destination)
	return txn, nil
}

// TableBuyIn moves wallet funds onto a poker table.
func (l *Ledger) TableBuyIn(ctx context.Context, agentID, currency string, amount decimal.Decimal, ref string) error {
	if err := l.checkAmount(currency, amount); err != nil {
		return err
	}
	_, err := l.store.Adjust(ctx, agentID, currency, amount.Neg(), store.KindTableBuyIn, ref, "")
	return err
}

// TableCashOut returns a leaving player's chips to their wallet.
func (l *Ledger) TableCashOut(ctx context.Context, agentID, currency string, amount decimal.Decimal, ref string) error {
	if !l.KnownCurrency(currency) {
		return errorsmod.Wrapf(ErrUnknownCurrency, "currency %q", currency)
	}
	if amount.IsNegative() {
		return errorsmod.Wrapf(ErrInvalidAmount, "cash out %s", money.Format(amount))
	}
	if amount.IsZero() {
		return nil
	}
	_, err := l.store.Adjust(ctx, agentID, currency, amount, store.KindTableCashOut, ref, "")
	return err
}

// Escrow locks a duel stake out of the agent's wallet.
func (l *Ledger) Escrow(ctx context.Context, agentID, currency string, stake decimal.Decimal, ref string) error {
	if err := l.checkAmount(currency, stake); err != nil {
		return err
	}
	_, err := l.store.Adjust(ctx, agentID, currency, stake.Neg(), store.KindDuelEscrow, ref, "")
	return err
}

// Payout releases a duel pot, less rake, to the winner.
func (l *Ledger) Payout(ctx context.Context, agentID, currency string, amount decimal.Decimal, ref string) error {
	if err := l.checkAmount(currency, amount); err != nil {
		return err
	}
	_, err := l.store.Adjust(ctx, agentID, currency, amount, store.KindDuelPayout, ref, "")
	return err
}

// Refund returns an escrowed stake untouched.
func (l *Ledger) Refund(ctx context.Context, agentID, currency string, amount decimal.Decimal, ref string) error {
	if err := l.checkAmount(currency, amount); err != nil {
		return err
	}
	_, err := l.store.Adjust(ctx, agentID, currency, amount, store.KindDuelRefund, ref, "")
	return err
}

// TableRake credits one poker pot's fee to the house and records it in
// the rake log. A zero fee writes nothing.
func (l *Ledger) TableRake(ctx context.Context, currency string, fee, pot decimal.Decimal, ref string) error {
	return l.collectRake(ctx, "poker", store.KindRakeTable, currency, fee, pot, ref)
}

// DuelRake credits a duel fee to the house and records it in the rake
// log under the duel's game name.
func (l *Ledger) DuelRake(ctx context.Context, game, currency string, fee, pot decimal.Decimal, ref string) error {
	return l.collectRake(ctx, game, store.KindRakeDuel, currency, fee, pot, ref)
}

func (l *Ledger) collectRake(ctx context.Context, game string, kind store.Kind, currency string, fee, pot decimal.Decimal, ref string) error {
	if fee.IsNegative() {
		return errorsmod.Wrapf(ErrInvalidAmount, "rake %s", money.Format(fee))
	}
	if fee.IsZero() {
		return nil
	}
	if _, err := l.store.Adjust(ctx, HouseAgent, currency, fee, kind, ref, ""); err != nil {
		return err
	}
	if _, err := l.store.AppendRake(ctx, store.RakeRow{
		Game:      game,
		Currency:  currency,
		Pot:       pot,
		Fee:       fee,
		Reference: ref,
	}); err != nil {
		return err
	}
	l.logger.Debug("rake collected", "game", game, "currency", currency,
		"fee", money.Format(fee), "pot", money.Format(pot), "ref", ref)
	return nil
}

// RakeRows returns the newest rake log entries.
func (l *Ledger) RakeRows(ctx context.Context, currency string, limit int) ([]store.RakeRow, error) {
	return l.store.RakeRows(ctx, currency, limit)
}

func (l *Ledger) checkAmount(currency string, amount decimal.Decimal) error {
	if !l.KnownCurrency(currency) {
		return errorsmod.Wrapf(ErrUnknownCurrency, "currency %q", currency)
	}
	if amount.Sign() <= 0 {
		return errorsmod.Wrapf(ErrInvalidAmount, "amount %s must be positive", money.Format(amount))
	}
	if !amount.Equal(money.Round2(amount)) {
		return errorsmod.Wrapf(ErrInvalidAmount, "amount %s has sub-cent precision", amount)
	}
	return nil
}

// Audit is the money-conservation report for one currency.
type Audit struct {
	Currency    string
	Deposits    decimal.Decimal
	Withdrawals decimal.Decimal
	Wallets     decimal.Decimal
	TableChips  decimal.Decimal
	DuelEscrows decimal.Decimal
	Rake        decimal.Decimal
	Difference  decimal.Decimal
	Balanced    bool
}

// TakeAudit recomputes the conservation identity from the transaction
// history: Deposits - Withdrawals = Wallets + TableChips + DuelEscrows +
// Rake. Difference is the left side minus the right side and must be zero.
func (l *Ledger) TakeAudit(ctx context.Context, currency string) (Audit, error) {
	if !l.KnownCurrency(currency) {
		return Audit{}, errorsmod.Wrapf(ErrUnknownCurrency, "currency %q", currency)
	}
	sums, err := l.store.SumByKind(ctx, currency)
	if err != nil {
		return Audit{}, err
	}
	wallets, err := l.store.SumBalances(ctx, currency, HouseAgent)
	if err != nil {
		return Audit{}, err
	}

	a := Audit{
		Currency:    currency,
		Deposits:    sums[store.KindDeposit],
		Withdrawals: sums[store.KindWithdraw].Neg(),
		Wallets:     wallets,
		TableChips: sums[store.KindTableBuyIn].
			Add(sums[store.KindTableCashOut]).
			Add(sums[store.KindRakeTable]).Neg(),
		DuelEscrows: sums[store.KindDuelEscrow].
			Add(sums[store.KindDuelPayout]).
			Add(sums[store.KindDuelRefund]).
			Add(sums[store.KindRakeDuel]).Neg(),
		Rake: sums[store.KindRakeTable].Add(sums[store.KindRakeDuel]),
	}
	a.Difference = a.Deposits.Sub(a.Withdrawals).
		Sub(a.Wallets).Sub(a.TableChips).Sub(a.DuelEscrows).Sub(a.Rake)
	a.Balanced = a.Difference.IsZero()
	return a, nil
}
