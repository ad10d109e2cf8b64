package store

import (
	"context"
	"sort"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type balanceKey struct {
	agent    string
	currency string
}

// Memory is the in-process store used by tests and single-node play. All
// methods are safe for concurrent use.
type Memory struct {
	// Clock stamps new rows. Tests swap it for a fixed clock so windowed
	// queries line up with an injected scheduler clock.
	Clock func() time.Time

	mu       sync.RWMutex
	agents   map[string]Agent
	balances map[balanceKey]decimal.Decimal
	txns     []Transaction
	rakes    []RakeRow
	tables   map[string]TableSnapshot
	duels    map[string]DuelSnapshot
	hands    []HandRecord
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		Clock:    time.Now,
		agents:   make(map[string]Agent),
		balances: make(map[balanceKey]decimal.Decimal),
		tables:   make(map[string]TableSnapshot),
		duels:    make(map[string]DuelSnapshot),
	}
}

func (m *Memory) CreateAgent(_ context.Context, a Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[a.ID]; ok {
		return errorsmod.Wrapf(ErrAgentExists, "agent %s", a.ID)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = m.Clock().UTC()
	}
	m.agents[a.ID] = a
	return nil
}

func (m *Memory) UpdateAgent(_ context.Context, a Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.agents[a.ID]
	if !ok {
		return errorsmod.Wrapf(ErrAgentNotFound, "agent %s", a.ID)
	}
	cur.Wallet = a.Wallet
	cur.DisplayName = a.DisplayName
	m.agents[a.ID] = cur
	return nil
}

func (m *Memory) GetAgent(_ context.Context, id string) (Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[id]
	if !ok {
		return Agent{}, errorsmod.Wrapf(ErrAgentNotFound, "agent %s", id)
	}
	return a, nil
}

func (m *Memory) ListAgents(_ context.Context) ([]Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Adjust(_ context.Context, agentID, currency string, amount decimal.Decimal, kind Kind, reference, note string) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[agentID]; !ok {
		return Transaction{}, errorsmod.Wrapf(ErrAgentNotFound, "agent %s", agentID)
	}
	key := balanceKey{agent: agentID, currency: currency}
	next := m.balances[key].Add(amount)
	if next.IsNegative() {
		return Transaction{}, errorsmod.Wrapf(ErrInsufficientFunds,
			"agent %s has %s %s, adjust %s", agentID, m.balances[key], currency, amount)
	}
	m.balances[key] = next
	txn := Transaction{
		ID:        uuid.New(),
		AgentID:   agentID,
		Currency:  currency,
		Amount:    amount,
		Balance:   next,
		Kind:      kind,
		Reference: reference,
		Note:      note,
		CreatedAt: m.Clock().UTC(),
	}
	m.txns = append(m.txns, txn)
	return txn, nil
}

func (m *Memory) Balance(_ context.Context, agentID, currency string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.agents[agentID]; !ok {
		return decimal.Zero, errorsmod.Wrapf(ErrAgentNotFound, "agent %s", agentID)
	}
	return m.balances[balanceKey{agent: agentID, currency: currency}], nil
}

func (m *Memory) Transactions(_ context.Context, agentID, currency string, limit int) ([]Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Transaction
	for i := len(m.txns) - 1; i >= 0; i-- {
		t := m.txns[i]
		if t.AgentID != agentID || t.Currency != currency {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) CountKindSince(_ context.Context, agentID string, kind Kind, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.txns {
		if t.AgentID == agentID && t.Kind == kind && !t.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) SumByKind(_ context.Context, currency string) (map[Kind]decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sums := make(map[Kind]decimal.Decimal)
	for _, t := range m.txns {
		if t.Currency != currency {
			continue
		}
		sums[t.Kind] = sums[t.Kind].Add(t.Amount)
	}
	return sums, nil
}

func (m *Memory) SumBalances(_ context.Context, currency string, excludeAgents ...string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	excluded := make(map[string]bool, len(excludeAgents))
	for _, id := range excludeAgents {
		excluded[id] = true
	}
	sum := decimal.Zero
	for key, bal := range m.balances {
		if key.currency != currency || excluded[key.agent] {
			continue
		}
		sum = sum.Add(bal)
	}
	return sum, nil
}

func (m *Memory) AppendRake(_ context.Context, row RakeRow) (RakeRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = m.Clock().UTC()
	}
	m.rakes = append(m.rakes, row)
	return row, nil
}

func (m *Memory) RakeRows(_ context.Context, currency string, limit int) ([]RakeRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []RakeRow
	for i := len(m.rakes) - 1; i >= 0; i-- {
		if m.rakes[i].Currency != currency {
			continue
		}
		out = append(out, m.rakes[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) SaveTable(_ context.Context, snap TableSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.Seats = append([]SeatSnapshot(nil), snap.Seats...)
	snap.State = append([]byte(nil), snap.State...)
	m.tables[snap.ID] = snap
	return nil
}

func (m *Memory) SaveDuel(_ context.Context, snap DuelSnapshot) error {
	switch snap.Kind {
	case "coinflip", "rps":
	default:
		return errorsmod.Wrapf(ErrUnknownDuelKind, "kind %q", snap.Kind)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.State = append([]byte(nil), snap.State...)
	m.duels[snap.ID] = snap
	return nil
}

func (m *Memory) SaveHand(_ context.Context, rec HandRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.PlayedAt.IsZero() {
		rec.PlayedAt = m.Clock().UTC()
	}
	rec.Board = append([]string(nil), rec.Board...)
	rec.Summary = append([]byte(nil), rec.Summary...)
	m.hands = append(m.hands, rec)
	return nil
}

func (m *Memory) HandRecords(_ context.Context, tableID string, limit int) ([]HandRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []HandRecord
	for i := len(m.hands) - 1; i >= 0; i-- {
		if m.hands[i].TableID != tableID {
			continue
		}
		out = append(out, m.hands[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) Close() {}
