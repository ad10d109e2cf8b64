package store

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schemaSQL string

// Postgres is the durable store. Adjust serializes per (agent, currency)
// through a SELECT ... FOR UPDATE on the balance row.
type Postgres struct {
	// Clock stamps new rows, mirroring Memory.
	Clock func() time.Time

	pool *pgxpool.Pool
}

// NewPostgres connects, pings and applies the embedded schema.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Postgres{Clock: time.Now, pool: pool}, nil
}

func (s *Postgres) CreateAgent(ctx context.Context, a Agent) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.Clock().UTC()
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO agents (id, wallet, display_name, created_at)
		 VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
		a.ID, a.Wallet, a.DisplayName, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: create agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errorsmod.Wrapf(ErrAgentExists, "agent %s", a.ID)
	}
	return nil
}

func (s *Postgres) UpdateAgent(ctx context.Context, a Agent) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE agents SET wallet = $2, display_name = $3 WHERE id = $1`,
		a.ID, a.Wallet, a.DisplayName)
	if err != nil {
		return fmt.Errorf("store: update agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errorsmod.Wrapf(ErrAgentNotFound, "agent %s", a.ID)
	}
	return nil
}

func (s *Postgres) GetAgent(ctx context.Context, id string) (Agent, error) {
	var a Agent
	err := s.pool.QueryRow(ctx,
		`SELECT id, wallet, display_name, created_at FROM agents WHERE id = $1`, id).
		Scan(&a.ID, &a.Wallet, &a.DisplayName, &a.CreatedAt)
	if err == pgx.ErrNoRows {
		return Agent{}, errorsmod.Wrapf(ErrAgentNotFound, "agent %s", id)
	}
	if err != nil {
		return Agent{}, fmt.Errorf("store: get agent: %w", err)
	}
	return a, nil
}

func (s *Postgres) ListAgents(ctx context.Context) ([]Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, wallet, display_name, created_at FROM agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list agents: %w", err)
	}
	defer rows.Close()
	var out []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.Wallet, &a.DisplayName, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan agent: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Postgres) Adjust(ctx context.Context, agentID, currency string, amount decimal.Decimal, kind Kind, reference, note string) (Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Transaction{}, fmt.Errorf("store: begin adjust: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM agents WHERE id = $1)`, agentID).Scan(&exists); err != nil {
		return Transaction{}, fmt.Errorf("store: check agent: %w", err)
	}
	if !exists {
		return Transaction{}, errorsmod.Wrapf(ErrAgentNotFound, "agent %s", agentID)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO balances (agent_id, currency, balance) VALUES ($1, $2, 0)
		 ON CONFLICT (agent_id, currency) DO NOTHING`, agentID, currency); err != nil {
		return Transaction{}, fmt.Errorf("store: seed balance row: %w", err)
	}

	var balText string
	if err := tx.QueryRow(ctx,
		`SELECT balance::text FROM balances
		 WHERE agent_id = $1 AND currency = $2 FOR UPDATE`, agentID, currency).Scan(&balText); err != nil {
		return Transaction{}, fmt.Errorf("store: lock balance: %w", err)
	}
	bal, err := decimal.NewFromString(balText)
	if err != nil {
		return Transaction{}, fmt.Errorf("store: parse balance %q: %w", balText, err)
	}
	next := bal.Add(amount)
	if next.IsNegative() {
		return Transaction{}, errorsmod.Wrapf(ErrInsufficientFunds,
			"agent %s has %s %s, adjust %s", agentID, bal, currency, amount)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE balances SET balance = $3::numeric WHERE agent_id = $1 AND currency = $2`,
		agentID, currency, next.String()); err != nil {
		return Transaction{}, fmt.Errorf("store: write balance: %w", err)
	}

	txn := Transaction{
		ID:        uuid.New(),
		AgentID:   agentID,
		Currency:  currency,
		Amount:    amount,
		Balance:   next,
		Kind:      kind,
		Reference: reference,
		Note:      note,
		CreatedAt: s.Clock().UTC(),
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO transactions (id, agent_id, currency, amount, balance, kind, reference, note, created_at)
		 VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, $9)`,
		txn.ID, txn.AgentID, txn.Currency, txn.Amount.String(), txn.Balance.String(),
		string(txn.Kind), txn.Reference, txn.Note, txn.CreatedAt); err != nil {
		return Transaction{}, fmt.Errorf("store: append transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, fmt.Errorf("store: commit adjust: %w", err)
	}
	return txn, nil
}

func (s *Postgres) Balance(ctx context.Context, agentID, currency string) (decimal.Decimal, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM agents WHERE id = $1)`, agentID).Scan(&exists); err != nil {
		return decimal.Zero, fmt.Errorf("store: check agent: %w", err)
	}
	if !exists {
		return decimal.Zero, errorsmod.Wrapf(ErrAgentNotFound, "agent %s", agentID)
	}
	var balText string
	err := s.pool.QueryRow(ctx,
		`SELECT balance::text FROM balances WHERE agent_id = $1 AND currency = $2`,
		agentID, currency).Scan(&balText)
	if err == pgx.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("store: read balance: %w", err)
	}
	return decimal.NewFromString(balText)
}

func (s *Postgres) Transactions(ctx context.Context, agentID, currency string, limit int) ([]Transaction, error) {
	q := `SELECT id, agent_id, currency, amount::text, balance::text, kind, reference, note, created_at
	      FROM transactions WHERE agent_id = $1 AND currency = $2 ORDER BY created_at DESC, id DESC`
	args := []any{agentID, currency}
	if limit > 0 {
		q += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list transactions: %w", err)
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(rows pgx.Rows) (Transaction, error) {
	var t Transaction
	var amountText, balText, kind string
	if err := rows.Scan(&t.ID, &t.AgentID, &t.Currency, &amountText, &balText,
		&kind, &t.Reference, &t.Note, &t.CreatedAt); err != nil {
		return Transaction{}, fmt.Errorf("store: scan transaction: %w", err)
	}
	var err error
	if t.Amount, err = decimal.NewFromString(amountText); err != nil {
		return Transaction{}, fmt.Errorf("store: parse amount %q: %w", amountText, err)
	}
	if t.Balance, err = decimal.NewFromString(balText); err != nil {
		return Transaction{}, fmt.Errorf("store: parse balance %q: %w", balText, err)
	}
	t.Kind = Kind(kind)
	return t, nil
}

func (s *Postgres) CountKindSince(ctx context.Context, agentID string, kind Kind, since time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions
		 WHERE agent_id = $1 AND kind = $2 AND created_at >= $3`,
		agentID, string(kind), since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count transactions: %w", err)
	}
	return n, nil
}

func (s *Postgres) SumByKind(ctx context.Context, currency string) (map[Kind]decimal.Decimal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT kind, COALESCE(SUM(amount), 0)::text FROM transactions
		 WHERE currency = $1 GROUP BY kind`, currency)
	if err != nil {
		return nil, fmt.Errorf("store: sum by kind: %w", err)
	}
	defer rows.Close()
	sums := make(map[Kind]decimal.Decimal)
	for rows.Next() {
		var kind, sumText string
		if err := rows.Scan(&kind, &sumText); err != nil {
			return nil, fmt.Errorf("store: scan kind sum: %w", err)
		}
		d, err := decimal.NewFromString(sumText)
		if err != nil {
			return nil, fmt.Errorf("store: parse kind sum %q: %w", sumText, err)
		}
		sums[Kind(kind)] = d
	}
	return sums, rows.Err()
}

func (s *Postgres) SumBalances(ctx context.Context, currency string, excludeAgents ...string) (decimal.Decimal, error) {
	if excludeAgents == nil {
		excludeAgents = []string{}
	}
	var sumText string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(balance), 0)::text FROM balances
		 WHERE currency = $1 AND NOT (agent_id = ANY($2))`,
		currency, excludeAgents).Scan(&sumText)
	if err != nil {
		return decimal.Zero, fmt.Errorf("store: sum balances: %w", err)
	}
	return decimal.NewFromString(sumText)
}

func (s *Postgres) AppendRake(ctx context.Context, row RakeRow) (RakeRow, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = s.Clock().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO rake_log (id, game, currency, pot, fee, reference, created_at)
		 VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7)`,
		row.ID, row.Game, row.Currency, row.Pot.String(), row.Fee.String(),
		row.Reference, row.CreatedAt)
	if err != nil {
		return RakeRow{}, fmt.Errorf("store: append rake: %w", err)
	}
	return row, nil
}

func (s *Postgres) RakeRows(ctx context.Context, currency string, limit int) ([]RakeRow, error) {
	q := `SELECT id, game, currency, pot::text, fee::text, reference, created_at
	      FROM rake_log WHERE currency = $1 ORDER BY created_at DESC, id DESC`
	args := []any{currency}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list rake rows: %w", err)
	}
	defer rows.Close()
	var out []RakeRow
	for rows.Next() {
		var row RakeRow
		var potText, feeText string
		if err := rows.Scan(&row.ID, &row.Game, &row.Currency, &potText, &feeText,
			&row.Reference, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan rake row: %w", err)
		}
		if row.Pot, err = decimal.NewFromString(potText); err != nil {
			return nil, fmt.Errorf("store: parse pot %q: %w", potText, err)
		}
		if row.Fee, err = decimal.NewFromString(feeText); err != nil {
			return nil, fmt.Errorf("store: parse fee %q: %w", feeText, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Postgres) SaveTable(ctx context.Context, snap TableSnapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin save table: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO poker_tables (id, name, currency, hand_no, state, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, currency = EXCLUDED.currency,
		     hand_no = EXCLUDED.hand_no, state = EXCLUDED.state,
		     updated_at = EXCLUDED.updated_at`,
		snap.ID, snap.Name, snap.Currency, int64(snap.HandNo), snap.State, s.Clock().UTC()); err != nil {
		return fmt.Errorf("store: upsert table: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM poker_seated_players WHERE table_id = $1`, snap.ID); err != nil {
		return fmt.Errorf("store: clear seats: %w", err)
	}
	for _, seat := range snap.Seats {
		if _, err := tx.Exec(ctx,
			`INSERT INTO poker_seated_players (table_id, seat, agent_id, display_name, chips, sitting_out)
			 VALUES ($1, $2, $3, $4, $5::numeric, $6)`,
			snap.ID, seat.Seat, seat.AgentID, seat.DisplayName,
			seat.Chips.String(), seat.SittingOut); err != nil {
			return fmt.Errorf("store: insert seat: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Postgres) SaveDuel(ctx context.Context, snap DuelSnapshot) error {
	var q string
	switch snap.Kind {
	case "coinflip":
		q = `INSERT INTO coinflip_games (id, status, currency, state, updated_at)
		     VALUES ($1, $2, $3, $4, $5)
		     ON CONFLICT (id) DO UPDATE
		     SET status = EXCLUDED.status, state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`
	case "rps":
		q = `INSERT INTO rps_games (id, status, currency, state, updated_at)
		     VALUES ($1, $2, $3, $4, $5)
		     ON CONFLICT (id) DO UPDATE
		     SET status = EXCLUDED.status, state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`
	default:
		return errorsmod.Wrapf(ErrUnknownDuelKind, "kind %q", snap.Kind)
	}
	if _, err := s.pool.Exec(ctx, q, snap.ID, snap.Status, snap.Currency, snap.State, s.Clock().UTC()); err != nil {
		return fmt.Errorf("store: upsert duel: %w", err)
	}
	return nil
}

func (s *Postgres) SaveHand(ctx context.Context, rec HandRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.PlayedAt.IsZero() {
		rec.PlayedAt = s.Clock().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO poker_hands (id, table_id, hand_no, currency, seed_hash, seed, board, summary, rake, played_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10)`,
		rec.ID, rec.TableID, int64(rec.HandNo), rec.Currency, rec.SeedHash, rec.Seed,
		rec.Board, rec.Summary, rec.Rake.String(), rec.PlayedAt)
	if err != nil {
		return fmt.Errorf("store: save hand: %w", err)
	}
	return nil
}

func (s *Postgres) HandRecords(ctx context.Context, tableID string, limit int) ([]HandRecord, error) {
	q := `SELECT id, table_id, hand_no, currency, seed_hash, seed, board, summary, rake::text, played_at
	      FROM poker_hands WHERE table_id = $1 ORDER BY hand_no DESC`
	args := []any{tableID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list hands: %w", err)
	}
	defer rows.Close()
	var out []HandRecord
	for rows.Next() {
		var (
			rec      HandRecord
			handNo   int64
			rakeText string
		)
		if err := rows.Scan(&rec.ID, &rec.TableID, &handNo, &rec.Currency, &rec.SeedHash,
			&rec.Seed, &rec.Board, &rec.Summary, &rakeText, &rec.PlayedAt); err != nil {
			return nil, fmt.Errorf("store: scan hand: %w", err)
		}
		rec.HandNo = uint64(handNo)
		if rec.Rake, err = decimal.NewFromString(rakeText); err != nil {
			return nil, fmt.Errorf("store: parse rake %q: %w", rakeText, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Postgres) Close() {
	s.pool.Close()
}
