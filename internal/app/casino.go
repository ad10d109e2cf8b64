// Package app assembles the game engines behind one command surface.
// The Casino owns every aggregate: each table and each duel is a
// single-writer region guarded by its own lock, the ledger serializes
// money movement per row, and the deadline wheel feeds expiries back
// through the same locks the command path takes.
package app

import (
	"context"
	"sort"
	"strings"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/shopspring/decimal"

	"github.com/RobotsMakeThings/clawcasino/internal/bus"
	"github.com/RobotsMakeThings/clawcasino/internal/duel"
	"github.com/RobotsMakeThings/clawcasino/internal/ledger"
	"github.com/RobotsMakeThings/clawcasino/internal/sched"
	"github.com/RobotsMakeThings/clawcasino/internal/store"
	"github.com/RobotsMakeThings/clawcasino/internal/table"
)

// Config declares the rooms the casino opens at boot.
type Config struct {
	Duel   duel.Config
	Tables []table.Config
}

// Casino is the application core. Every external command lands on one
// of its methods; transports stay glue.
type Casino struct {
	logger  log.Logger
	root    log.Logger
	clock   sched.Clock
	bank    *ledger.Ledger
	events  *bus.Bus
	wheel   *sched.Wheel
	archive store.Store
	duels   *duel.Engine

	mu     sync.RWMutex
	tables map[string]*table.Table
}

// New wires the casino. Nil dependencies are programmer errors and
// panic; a bad table definition is an operator error and returns one.
func New(logger log.Logger, clock sched.Clock, bank *ledger.Ledger, events *bus.Bus, archive store.Store, cfg Config) (*Casino, error) {
	if logger == nil {
		panic("app: nil logger")
	}
	if clock == nil {
		panic("app: nil clock")
	}
	if bank == nil {
		panic("app: nil ledger")
	}
	if events == nil {
		panic("app: nil bus")
	}
	if archive == nil {
		panic("app: nil store")
	}
	c := &Casino{
		logger:  logger.With("module", ModuleName),
		root:    logger,
		clock:   clock,
		bank:    bank,
		events:  events,
		archive: archive,
		tables:  make(map[string]*table.Table),
	}
	c.wheel = sched.NewWheel(logger, clock, c.HandleExpiry)

	c.duels = duel.New(logger, bank, events, c.wheel, archive, cfg.Duel)
	c.duels.SetClock(clock.Now)

	for _, tcfg := range cfg.Tables {
		if _, err := c.OpenTable(context.Background(), tcfg); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Run dispatches deadlines until the context ends.
func (c *Casino) Run(ctx context.Context) { c.wheel.Run(ctx) }

// Wheel exposes the deadline wheel so callers can drive time directly.
func (c *Casino) Wheel() *sched.Wheel { return c.wheel }

// Bus exposes the event bus for stream subscriptions.
func (c *Casino) Bus() *bus.Bus { return c.events }

// HandleExpiry routes a due deadline to the aggregate that booked it.
func (c *Casino) HandleExpiry(ev sched.Event) {
	ctx := context.Background()
	switch {
	case strings.HasPrefix(ev.Aggregate, table.AggregatePrefix):
		id := strings.TrimPrefix(ev.Aggregate, table.AggregatePrefix)
		c.mu.RLock()
		tbl := c.tables[id]
		c.mu.RUnlock()
		if tbl == nil {
			c.logger.Error("deadline for unknown table", "aggregate", ev.Aggregate, "reason", ev.Reason)
			return
		}
		tbl.HandleExpiry(ctx, ev)
	case strings.HasPrefix(ev.Aggregate, duel.AggregatePrefix):
		c.duels.HandleExpiry(ctx, ev)
	default:
		c.logger.Error("deadline for unknown aggregate", "aggregate", ev.Aggregate, "reason", ev.Reason)
	}
}

// OpenTable creates a cash table and registers it for deadline routing.
func (c *Casino) OpenTable(_ context.Context, cfg table.Config) (table.View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[cfg.ID]; ok {
		return table.View{}, errorsmod.Wrap(ErrTableExists, cfg.ID)
	}
	tbl, err := table.New(c.root, c.bank, c.events, c.wheel, c.archive, cfg)
	if err != nil {
		return table.View{}, err
	}
	tbl.SetClock(c.clock.Now)
	c.tables[cfg.ID] = tbl
	c.logger.Info("table opened", "table", cfg.ID, "currency", cfg.Currency)
	return tbl.View(""), nil
}

func (c *Casino) table(id string) (*table.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tbl, ok := c.tables[id]
	if !ok {
		return nil, errorsmod.Wrap(ErrTableNotFound, id)
	}
	return tbl, nil
}

// Tables lists every table's public view, ordered by id.
func (c *Casino) Tables() []table.View {
	c.mu.RLock()
	tbls := make([]*table.Table, 0, len(c.tables))
	for _, tbl := range c.tables {
		tbls = append(tbls, tbl)
	}
	c.mu.RUnlock()

	sort.Slice(tbls, func(i, j int) bool { return tbls[i].ID() < tbls[j].ID() })
	out := make([]table.View, 0, len(tbls))
	for _, tbl := range tbls {
		out = append(out, tbl.View(""))
	}
	return out
}

// TableView renders one table as seen by forAgent; empty means public.
func (c *Casino) TableView(id, forAgent string) (table.View, error) {
	tbl, err := c.table(id)
	if err != nil {
		return table.View{}, err
	}
	return tbl.View(forAgent), nil
}

// Join buys an agent onto a table seat.
func (c *Casino) Join(ctx context.Context, tableID, agentID, name string, buyIn decimal.Decimal) (table.View, error) {
	tbl, err := c.table(tableID)
	if err != nil {
		return table.View{}, err
	}
	return tbl.Sit(ctx, agentID, name, buyIn)
}

// LeaveTable cashes an agent's seat out.
func (c *Casino) LeaveTable(ctx context.Context, tableID, agentID string) (table.View, error) {
	tbl, err := c.table(tableID)
	if err != nil {
		return table.View{}, err
	}
	return tbl.Leave(ctx, agentID)
}

// Act applies a betting action on the agent's table.
func (c *Casino) Act(ctx context.Context, tableID, agentID, action string, amount decimal.Decimal) (table.View, error) {
	tbl, err := c.table(tableID)
	if err != nil {
		return table.View{}, err
	}
	return tbl.Act(ctx, agentID, action, amount)
}

// Duel commands.

func (c *Casino) CreateCoinflip(ctx context.Context, agentID, wallet, name, currency string, stake decimal.Decimal) (duel.View, error) {
	return c.duels.CreateCoinflip(ctx, agentID, wallet, name, currency, stake)
}

func (c *Casino) CreateRPS(ctx context.Context, agentID, wallet, name, currency string, stake decimal.Decimal, rounds int) (duel.View, error) {
	return c.duels.CreateRPS(ctx, agentID, wallet, name, currency, stake, rounds)
}

func (c *Casino) AcceptDuel(ctx context.Context, kind duel.Kind, id, agentID, wallet, name string) (duel.View, error) {
	return c.duels.Accept(ctx, kind, id, agentID, wallet, name)
}

func (c *Casino) CancelDuel(ctx context.Context, id, agentID string) (duel.View, error) {
	return c.duels.Cancel(ctx, id, agentID)
}

func (c *Casino) CommitDuel(ctx context.Context, id, agentID, commitment string) (duel.View, error) {
	return c.duels.Commit(ctx, id, agentID, commitment)
}

func (c *Casino) RevealDuel(ctx context.Context, id, agentID string, choice duel.Choice, nonce string) (duel.View, error) {
	return c.duels.Reveal(ctx, id, agentID, choice, nonce)
}

func (c *Casino) Duel(id string) (duel.View, error) { return c.duels.Get(id) }

func (c *Casino) OpenDuels(kind duel.Kind) []duel.View { return c.duels.ListOpen(kind) }

func (c *Casino) DuelHistory(agentID string, kind duel.Kind, limit int) []duel.View {
	return c.duels.HistoryFor(agentID, kind, limit)
}

// Wallet commands.

func (c *Casino) Register(ctx context.Context, agentID, wallet, displayName string) (store.Agent, error) {
	return c.bank.Register(ctx, agentID, wallet, displayName)
}

func (c *Casino) Deposit(ctx context.Context, agentID, currency string, amount decimal.Decimal) (store.Transaction, error) {
	return c.bank.Deposit(ctx, agentID, currency, amount)
}

func (c *Casino) Withdraw(ctx context.Context, agentID, currency string, amount decimal.Decimal, destination string) (store.Transaction, error) {
	return c.bank.Withdraw(ctx, agentID, currency, amount, destination)
}

func (c *Casino) Balances(ctx context.Context, agentID string) (map[string]decimal.Decimal, error) {
	return c.bank.Balances(ctx, agentID)
}

func (c *Casino) History(ctx context.Context, agentID, currency string, limit int) ([]store.Transaction, error) {
	return c.bank.History(ctx, agentID, currency, limit)
}

func (c *Casino) Audit(ctx context.Context, currency string) (ledger.Audit, error) {
	return c.bank.TakeAudit(ctx, currency)
}

func (c *Casino) Currencies() []string { return c.bank.Currencies() }
