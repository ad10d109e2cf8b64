// Package store persists agents, the append-only ledger, the rake log and
// aggregate snapshots. Two implementations share the contract: an
// in-memory store for tests and single-node play, and a Postgres store
// for durable deployments.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Agent is a registered player, or the house sink.
type Agent struct {
	ID          string
	Wallet      string
	DisplayName string
	CreatedAt   time.Time
}

// Kind labels a ledger transaction.
type Kind string

const (
	KindDeposit      Kind = "deposit"
	KindWithdraw     Kind = "withdraw"
	KindTableBuyIn   Kind = "table-buy-in"
	KindTableCashOut Kind = "table-cash-out"
	KindDuelEscrow   Kind = "duel-escrow"
	KindDuelPayout   Kind = "duel-payout"
	KindDuelRefund   Kind = "duel-refund"
	KindRakeTable    Kind = "rake-table"
	KindRakeDuel     Kind = "rake-duel"
)

// Transaction is one append-only ledger row. Amount is signed from the
// agent's point of view and Balance is the agent's balance after the row
// was applied.
type Transaction struct {
	ID        uuid.UUID
	AgentID   string
	Currency  string
	Amount    decimal.Decimal
	Balance   decimal.Decimal
	Kind      Kind
	Reference string
	Note      string
	CreatedAt time.Time
}

// RakeRow records one collected house fee alongside the pot it came from.
type RakeRow struct {
	ID        uuid.UUID
	Game      string
	Currency  string
	Pot       decimal.Decimal
	Fee       decimal.Decimal
	Reference string
	CreatedAt time.Time
}

// SeatSnapshot is one occupied seat inside a table snapshot.
type SeatSnapshot struct {
	Seat        int
	AgentID     string
	DisplayName string
	Chips       decimal.Decimal
	SittingOut  bool
}

// TableSnapshot is the durable write-through of a poker table.
type TableSnapshot struct {
	ID       string
	Name     string
	Currency string
	HandNo   uint64
	Seats    []SeatSnapshot
	State    []byte
}

// DuelSnapshot is the durable write-through of a coinflip or RPS game.
type DuelSnapshot struct {
	ID       string
	Kind     string
	Status   string
	Currency string
	State    []byte
}

// HandRecord archives one completed poker hand, including the revealed
// shuffle seed so the deal can be replayed.
type HandRecord struct {
	ID       uuid.UUID
	TableID  string
	HandNo   uint64
	Currency string
	SeedHash string
	Seed     string
	Board    []string
	Summary  []byte
	Rake     decimal.Decimal
	PlayedAt time.Time
}

// Store is the persistence surface used by the ledger and the game
// aggregates. Adjust is the only money mutation and must apply its
// balance check and write atomically per (agent, currency).
type Store interface {
	CreateAgent(ctx context.Context, a Agent) error
	UpdateAgent(ctx context.Context, a Agent) error
	GetAgent(ctx context.Context, id string) (Agent, error)
	ListAgents(ctx context.Context) ([]Agent, error)

	Adjust(ctx context.Context, agentID, currency string, amount decimal.Decimal, kind Kind, reference, note string) (Transaction, error)
	Balance(ctx context.Context, agentID, currency string) (decimal.Decimal, error)
	Transactions(ctx context.Context, agentID, currency string, limit int) ([]Transaction, error)
	CountKindSince(ctx context.Context, agentID string, kind Kind, since time.Time) (int, error)

	SumByKind(ctx context.Context, currency string) (map[Kind]decimal.Decimal, error)
	SumBalances(ctx context.Context, currency string, excludeAgents ...string) (decimal.Decimal, error)

	AppendRake(ctx context.Context, row RakeRow) (RakeRow, error)
	RakeRows(ctx context.Context, currency string, limit int) ([]RakeRow, error)

	SaveTable(ctx context.Context, snap TableSnapshot) error
	SaveDuel(ctx context.Context, snap DuelSnapshot) error
	SaveHand(ctx context.Context, rec HandRecord) error
	HandRecords(ctx context.Context, tableID string, limit int) ([]HandRecord, error)

	Close()
}
