package duel

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RobotsMakeThings/clawcasino/internal/bus"
	"github.com/RobotsMakeThings/clawcasino/internal/money"
	"github.com/RobotsMakeThings/clawcasino/internal/rake"
	"github.com/RobotsMakeThings/clawcasino/internal/sched"
	"github.com/RobotsMakeThings/clawcasino/internal/shuffle"
	"github.com/RobotsMakeThings/clawcasino/internal/store"
)

// AggregatePrefix namespaces duel ids on the deadline wheel.
const AggregatePrefix = "duel:"

// AggregateID is the scheduler key for one game.
func AggregateID(id string) string { return AggregatePrefix + id }

// Bank is the ledger surface the engine needs.
type Bank interface {
	Escrow(ctx context.Context, agentID, currency string, stake decimal.Decimal, ref string) error
	Payout(ctx context.Context, agentID, currency string, amount decimal.Decimal, ref string) error
	Refund(ctx context.Context, agentID, currency string, amount decimal.Decimal, ref string) error
	DuelRake(ctx context.Context, game, currency string, fee, pot decimal.Decimal, ref string) error
}

// Publisher pushes events onto the realtime bus.
type Publisher interface {
	Publish(topic, typ string, data any)
}

// Scheduler books and cancels phase deadlines.
type Scheduler interface {
	Schedule(aggregate string, reason sched.Reason, at time.Time)
	Cancel(aggregate string, reason sched.Reason)
	CancelAggregate(aggregate string)
}

// Archiver receives durable snapshots after every transition.
type Archiver interface {
	SaveDuel(ctx context.Context, snap store.DuelSnapshot) error
}

// Config carries the duel policy knobs.
type Config struct {
	OpenWindow    time.Duration
	CommitTimeout time.Duration
	RevealTimeout time.Duration
	MinStake      decimal.Decimal
	MaxRounds     int
}

// ActionEvent is the payload for commit and reveal progress events.
type ActionEvent struct {
	Agent string `json:"agent"`
	Game  View   `json:"game"`
}

// RoundEvent is the payload for a scored (or tied) round.
type RoundEvent struct {
	Result RoundResult `json:"result"`
	Game   View        `json:"game"`
}

// Engine owns every duel aggregate. The engine map has its own lock;
// each game transitions under the game's lock only.
type Engine struct {
	logger log.Logger
	bank   Bank
	pub    Publisher
	wheel  Scheduler
	arch   Archiver
	clock  func() time.Time
	rand   io.Reader
	cfg    Config

	mu    sync.RWMutex
	games map[string]*Game
}

// New wires the engine. Nil dependencies are programmer errors and panic.
func New(logger log.Logger, bank Bank, pub Publisher, wheel Scheduler, arch Archiver, cfg Config) *Engine {
	if logger == nil {
		panic("duel: nil logger")
	}
	if bank == nil {
		panic("duel: nil bank")
	}
	if pub == nil {
		panic("duel: nil publisher")
	}
	if wheel == nil {
		panic("duel: nil scheduler")
	}
	if arch == nil {
		panic("duel: nil archiver")
	}
	if cfg.OpenWindow == 0 {
		cfg.OpenWindow = 5 * time.Minute
	}
	if cfg.CommitTimeout == 0 {
		cfg.CommitTimeout = time.Minute
	}
	if cfg.RevealTimeout == 0 {
		cfg.RevealTimeout = time.Minute
	}
	if cfg.MinStake.IsZero() {
		cfg.MinStake = decimal.New(1, -2)
	}
	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = 9
	}
	return &Engine{
		logger: logger.With("module", ModuleName),
		bank:   bank,
		pub:    pub,
		wheel:  wheel,
		arch:   arch,
		clock:  time.Now,
		rand:   rand.Reader,
		cfg:    cfg,
		games:  make(map[string]*Game),
	}
}

// SetClock swaps the time source for tests.
func (e *Engine) SetClock(clock func() time.Time) { e.clock = clock }

// SetEntropy swaps the seed source for tests.
func (e *Engine) SetEntropy(r io.Reader) { e.rand = r }

// CreateCoinflip escrows the creator's stake and opens a coinflip. The
// server commits to its secret before anyone can accept: the secret hash
// is public from the created event onward.
func (e *Engine) CreateCoinflip(ctx context.Context, agentID, wallet, name, currency string, stake decimal.Decimal) (View, error) {
	if err := e.checkStake(stake); err != nil {
		return View{}, err
	}
	com, err := shuffle.New(e.rand)
	if err != nil {
		return View{}, err
	}
	now := e.clock().UTC()
	g := &Game{
		ID:            uuid.NewString(),
		Kind:          KindCoinflip,
		Currency:      currency,
		Stake:         stake,
		Rounds:        1,
		Creator:       agentID,
		CreatorWallet: wallet,
		CreatorName:   name,
		Status:        StatusOpen,
		Secret:        com.Seed,
		SecretHash:    com.Hash,
		CreatedAt:     now,
		OpenUntil:     now.Add(e.cfg.OpenWindow),
	}
	return e.install(ctx, g)
}

// CreateRPS escrows the creator's stake and opens a best-of-rounds
// rock-paper-scissors match.
func (e *Engine) CreateRPS(ctx context.Context, agentID, wallet, name, currency string, stake decimal.Decimal, rounds int) (View, error) {
	if err := e.checkStake(stake); err != nil {
		return View{}, err
	}
	if rounds < 1 || rounds > e.cfg.MaxRounds || rounds%2 == 0 {
		return View{}, errorsmod.Wrapf(ErrInvalidRounds, "rounds %d, want odd 1..%d", rounds, e.cfg.MaxRounds)
	}
	now := e.clock().UTC()
	g := &Game{
		ID:            uuid.NewString(),
		Kind:          KindRPS,
		Currency:      currency,
		Stake:         stake,
		Rounds:        rounds,
		Creator:       agentID,
		CreatorWallet: wallet,
		CreatorName:   name,
		Status:        StatusOpen,
		CreatedAt:     now,
		OpenUntil:     now.Add(e.cfg.OpenWindow),
	}
	return e.install(ctx, g)
}

func (e *Engine) install(ctx context.Context, g *Game) (View, error) {
	if err := e.bank.Escrow(ctx, g.Creator, g.Currency, g.Stake, g.ID); err != nil {
		return View{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	e.mu.Lock()
	e.games[g.ID] = g
	e.mu.Unlock()
	e.wheel.Schedule(AggregateID(g.ID), ReasonOpenExpiry, g.OpenUntil)

	v := e.view(g)
	e.pub.Publish(bus.DuelsTopic, EventDuelCreated, v)
	e.persist(ctx, g, v)
	e.logger.Info("duel created", "game", g.ID, "kind", g.Kind,
		"creator", g.Creator, "stake", money.Format(g.Stake), "currency", g.Currency)
	return v, nil
}

// Accept joins an open game. A coinflip resolves on the spot; an RPS
// match moves to its first commit phase. Accepting a game that is no
// longer open is a conflict, which is how a second accept loses the race.
func (e *Engine) Accept(ctx context.Context, kind Kind, id, agentID, wallet, name string) (View, error) {
	g, err := e.lookup(id)
	if err != nil {
		return View{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Kind != kind {
		return View{}, errorsmod.Wrapf(ErrKindMismatch, "game %s is %s", id, g.Kind)
	}
	if g.Status != StatusOpen {
		return View{}, errorsmod.Wrapf(ErrNotOpen, "game %s is %s", id, g.Status)
	}
	if agentID == g.Creator {
		return View{}, errorsmod.Wrapf(ErrOwnGame, "game %s", id)
	}
	if err := e.bank.Escrow(ctx, agentID, g.Currency, g.Stake, g.ID); err != nil {
		return View{}, err
	}

	g.Acceptor = agentID
	g.AcceptorWallet = wallet
	g.AcceptorName = name
	e.wheel.Cancel(AggregateID(g.ID), ReasonOpenExpiry)

	now := e.clock().UTC()
	switch g.Kind {
	case KindCoinflip:
		hash, creatorWins := shuffle.CoinflipResult(g.Secret, g.CreatorWallet, g.AcceptorWallet)
		g.ResultHash = hash
		winnerIdx := 1
		if creatorWins {
			winnerIdx = 0
		}
		if err := e.close(ctx, g, winnerIdx, StatusCompleted, "coinflip", now); err != nil {
			return View{}, err
		}
	case KindRPS:
		g.Status = StatusCommitting
		g.Round = 1
		g.Deadline = now.Add(e.cfg.CommitTimeout)
		e.wheel.Schedule(AggregateID(g.ID), ReasonCommitTimeout, g.Deadline)
	}

	v := e.view(g)
	e.pub.Publish(bus.DuelsTopic, EventDuelAccepted, v)
	if g.Status.terminal() {
		e.pub.Publish(bus.DuelsTopic, EventDuelResolved, v)
	}
	e.persist(ctx, g, v)
	e.logger.Info("duel accepted", "game", g.ID, "acceptor", agentID, "status", g.Status)
	return v, nil
}

// Cancel lets the creator withdraw a game nobody has accepted.
func (e *Engine) Cancel(ctx context.Context, id, agentID string) (View, error) {
	g, err := e.lookup(id)
	if err != nil {
		return View{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Status != StatusOpen {
		return View{}, errorsmod.Wrapf(ErrNotOpen, "game %s is %s", id, g.Status)
	}
	if agentID != g.Creator {
		return View{}, errorsmod.Wrapf(ErrNotCreator, "game %s", id)
	}
	if err := e.bank.Refund(ctx, g.Creator, g.Currency, g.Stake, g.ID); err != nil {
		return View{}, err
	}
	g.Status = StatusCancelled
	g.Resolution = "cancelled-by-creator"
	g.CompletedAt = e.clock().UTC()
	e.wheel.CancelAggregate(AggregateID(g.ID))

	v := e.view(g)
	e.pub.Publish(bus.DuelsTopic, EventDuelCancelled, v)
	e.persist(ctx, g, v)
	return v, nil
}

// Commit locks in a hidden choice for the current RPS round.
func (e *Engine) Commit(ctx context.Context, id, agentID, commitment string) (View, error) {
	g, err := e.lookup(id)
	if err != nil {
		return View{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Kind != KindRPS {
		return View{}, errorsmod.Wrapf(ErrKindMismatch, "game %s is %s", id, g.Kind)
	}
	if g.Status != StatusCommitting {
		return View{}, errorsmod.Wrapf(ErrPhaseMismatch, "game %s is %s", id, g.Status)
	}
	idx, ok := g.participantIndex(agentID)
	if !ok {
		return View{}, errorsmod.Wrapf(ErrNotParticipant, "agent %s in game %s", agentID, id)
	}
	if !validCommitment(commitment) {
		return View{}, errorsmod.Wrap(ErrInvalidCommitment, commitment)
	}
	if g.commits[idx] != "" {
		return View{}, errorsmod.Wrapf(ErrAlreadyCommitted, "game %s round %d", id, g.Round)
	}

	g.commits[idx] = commitment
	if g.commits[0] != "" && g.commits[1] != "" {
		g.Status = StatusRevealing
		g.Deadline = e.clock().UTC().Add(e.cfg.RevealTimeout)
		e.wheel.Cancel(AggregateID(g.ID), ReasonCommitTimeout)
		e.wheel.Schedule(AggregateID(g.ID), ReasonRevealTimeout, g.Deadline)
	}

	v := e.view(g)
	e.pub.Publish(bus.DuelsTopic, EventDuelCommitted, ActionEvent{Agent: agentID, Game: v})
	e.persist(ctx, g, v)
	return v, nil
}

// Reveal opens a committed choice. A reveal that does not match its
// commitment forfeits the whole match to the opponent immediately.
func (e *Engine) Reveal(ctx context.Context, id, agentID string, choice Choice, nonce string) (View, error) {
	g, err := e.lookup(id)
	if err != nil {
		return View{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Kind != KindRPS {
		return View{}, errorsmod.Wrapf(ErrKindMismatch, "game %s is %s", id, g.Kind)
	}
	if g.Status != StatusRevealing {
		return View{}, errorsmod.Wrapf(ErrPhaseMismatch, "game %s is %s", id, g.Status)
	}
	idx, ok := g.participantIndex(agentID)
	if !ok {
		return View{}, errorsmod.Wrapf(ErrNotParticipant, "agent %s in game %s", agentID, id)
	}
	if !ValidChoice(choice) {
		return View{}, errorsmod.Wrap(ErrInvalidChoice, string(choice))
	}
	if g.reveals[idx] != nil {
		return View{}, errorsmod.Wrapf(ErrAlreadyRevealed, "game %s round %d", id, g.Round)
	}

	now := e.clock().UTC()
	if Commitment(choice, nonce) != g.commits[idx] {
		if err := e.close(ctx, g, 1-idx, StatusForfeited, "reveal-mismatch", now); err != nil {
			return View{}, err
		}
		v := e.view(g)
		e.pub.Publish(bus.DuelsTopic, EventDuelResolved, v)
		e.persist(ctx, g, v)
		e.logger.Info("duel forfeited on bad reveal", "game", g.ID, "agent", agentID, "round", g.Round)
		return v, errorsmod.Wrapf(ErrRevealMismatch, "game %s round %d", id, g.Round)
	}

	g.reveals[idx] = &reveal{choice: choice, nonce: nonce}
	v := e.view(g)
	e.pub.Publish(bus.DuelsTopic, EventDuelRevealed, ActionEvent{Agent: agentID, Game: v})

	if g.reveals[0] != nil && g.reveals[1] != nil {
		if err := e.scoreRound(ctx, g, now); err != nil {
			return View{}, err
		}
		v = e.view(g)
	}
	e.persist(ctx, g, v)
	return v, nil
}

// scoreRound settles a fully revealed round: a decisive round scores,
// a tie replays, and a majority ends the match. Called under g.mu.
func (e *Engine) scoreRound(ctx context.Context, g *Game, now time.Time) error {
	res := RoundResult{
		Round:          g.Round,
		CreatorChoice:  g.reveals[0].choice,
		AcceptorChoice: g.reveals[1].choice,
	}
	switch {
	case beats(res.CreatorChoice, res.AcceptorChoice):
		g.Scores[0]++
		res.Winner = g.Creator
	case beats(res.AcceptorChoice, res.CreatorChoice):
		g.Scores[1]++
		res.Winner = g.Acceptor
	}
	g.Played = append(g.Played, res)

	switch {
	case g.Scores[0] == g.majority():
		if err := e.close(ctx, g, 0, StatusCompleted, "majority", now); err != nil {
			return err
		}
	case g.Scores[1] == g.majority():
		if err := e.close(ctx, g, 1, StatusCompleted, "majority", now); err != nil {
			return err
		}
	default:
		g.Round++
		g.resetRound()
		g.Status = StatusCommitting
		g.Deadline = now.Add(e.cfg.CommitTimeout)
		e.wheel.Cancel(AggregateID(g.ID), ReasonRevealTimeout)
		e.wheel.Schedule(AggregateID(g.ID), ReasonCommitTimeout, g.Deadline)
	}

	e.pub.Publish(bus.DuelsTopic, EventRoundResult, RoundEvent{Result: res, Game: e.view(g)})
	if g.Status.terminal() {
		e.pub.Publish(bus.DuelsTopic, EventDuelResolved, e.view(g))
	}
	return nil
}

// HandleExpiry applies a due deadline. Events for games that already
// moved on are ignored; the status guard makes stale fires harmless.
func (e *Engine) HandleExpiry(ctx context.Context, ev sched.Event) {
	id, ok := strings.CutPrefix(ev.Aggregate, AggregatePrefix)
	if !ok {
		return
	}
	g, err := e.lookup(id)
	if err != nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Status.terminal() {
		return
	}
	now := e.clock().UTC()

	switch ev.Reason {
	case ReasonOpenExpiry:
		if g.Status != StatusOpen {
			return
		}
		e.expire(ctx, g, "open-window-expired", now)
	case ReasonCommitTimeout:
		if g.Status != StatusCommitting {
			return
		}
		e.timeoutPhase(ctx, g, g.commits[0] != "", g.commits[1] != "", "commit-timeout", now)
	case ReasonRevealTimeout:
		if g.Status != StatusRevealing {
			return
		}
		e.timeoutPhase(ctx, g, g.reveals[0] != nil, g.reveals[1] != nil, "reveal-timeout", now)
	}
}

// timeoutPhase resolves a commit or reveal deadline: both idle refunds
// and expires, one idle forfeits to the player who acted. Called under
// g.mu.
func (e *Engine) timeoutPhase(ctx context.Context, g *Game, creatorActed, acceptorActed bool, cause string, now time.Time) {
	switch {
	case !creatorActed && !acceptorActed:
		e.expire(ctx, g, cause, now)
	case creatorActed && !acceptorActed:
		e.forfeitTo(ctx, g, 0, cause, now)
	case acceptorActed && !creatorActed:
		e.forfeitTo(ctx, g, 1, cause, now)
	}
}

// expire refunds every escrowed stake and closes the game. Called under
// g.mu.
func (e *Engine) expire(ctx context.Context, g *Game, cause string, now time.Time) {
	if err := e.bank.Refund(ctx, g.Creator, g.Currency, g.Stake, g.ID); err != nil {
		e.logger.Error("refund failed", "game", g.ID, "agent", g.Creator, "err", err)
		return
	}
	if g.Acceptor != "" {
		if err := e.bank.Refund(ctx, g.Acceptor, g.Currency, g.Stake, g.ID); err != nil {
			e.logger.Error("refund failed", "game", g.ID, "agent", g.Acceptor, "err", err)
			return
		}
	}
	g.Status = StatusExpired
	g.Resolution = cause
	g.CompletedAt = now
	g.Deadline = time.Time{}
	e.wheel.CancelAggregate(AggregateID(g.ID))

	v := e.view(g)
	e.pub.Publish(bus.DuelsTopic, EventDuelExpired, v)
	e.persist(ctx, g, v)
	e.logger.Info("duel expired", "game", g.ID, "cause", cause)
}

func (e *Engine) forfeitTo(ctx context.Context, g *Game, winnerIdx int, cause string, now time.Time) {
	if err := e.close(ctx, g, winnerIdx, StatusForfeited, cause, now); err != nil {
		return
	}
	v := e.view(g)
	e.pub.Publish(bus.DuelsTopic, EventDuelResolved, v)
	e.persist(ctx, g, v)
	e.logger.Info("duel forfeited", "game", g.ID, "winner", g.Winner, "cause", cause)
}

// close pays the winner the pot less rake and moves the game to a
// terminal status. Called under g.mu.
func (e *Engine) close(ctx context.Context, g *Game, winnerIdx int, status Status, resolution string, now time.Time) error {
	pot := g.Stake.Mul(decimal.NewFromInt(2))
	var fee decimal.Decimal
	if g.Kind == KindCoinflip {
		fee = rake.Coinflip(pot)
	} else {
		fee = rake.RPS(pot)
	}
	payout := pot.Sub(fee)
	winner := g.participant(winnerIdx)

	if err := e.bank.Payout(ctx, winner, g.Currency, payout, g.ID); err != nil {
		e.logger.Error("payout failed", "game", g.ID, "winner", winner, "err", err)
		return err
	}
	if err := e.bank.DuelRake(ctx, string(g.Kind), g.Currency, fee, pot, g.ID); err != nil {
		// The winner is already paid; the audit will surface the gap.
		e.logger.Error("rake collection failed", "game", g.ID, "err", err)
	}

	g.Pot = pot
	g.Fee = fee
	g.Payout = payout
	g.Winner = winner
	if status == StatusForfeited {
		g.ForfeitedBy = g.participant(1 - winnerIdx)
	}
	g.Status = status
	g.Resolution = resolution
	g.CompletedAt = now
	g.Deadline = time.Time{}
	e.wheel.CancelAggregate(AggregateID(g.ID))
	return nil
}

// Get returns the public view of one game.
func (e *Engine) Get(id string) (View, error) {
	g, err := e.lookup(id)
	if err != nil {
		return View{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return e.view(g), nil
}

// ListOpen returns joinable games of one kind, oldest first.
func (e *Engine) ListOpen(kind Kind) []View {
	out := e.collect(func(g *Game) bool {
		return g.Kind == kind && g.Status == StatusOpen
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// HistoryFor returns an agent's finished games of one kind, newest first.
func (e *Engine) HistoryFor(agentID string, kind Kind, limit int) []View {
	out := e.collect(func(g *Game) bool {
		if g.Kind != kind || !g.Status.terminal() {
			return false
		}
		return g.Creator == agentID || g.Acceptor == agentID
	})
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].CompletedAt, out[j].CompletedAt
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		}
		return ti.After(*tj)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (e *Engine) collect(keep func(*Game) bool) []View {
	e.mu.RLock()
	games := make([]*Game, 0, len(e.games))
	for _, g := range e.games {
		games = append(games, g)
	}
	e.mu.RUnlock()

	var out []View
	for _, g := range games {
		g.mu.Lock()
		if keep(g) {
			out = append(out, e.view(g))
		}
		g.mu.Unlock()
	}
	return out
}

func (e *Engine) lookup(id string) (*Game, error) {
	e.mu.RLock()
	g, ok := e.games[id]
	e.mu.RUnlock()
	if !ok {
		return nil, errorsmod.Wrapf(ErrGameNotFound, "game %s", id)
	}
	return g, nil
}

func (e *Engine) checkStake(stake decimal.Decimal) error {
	if stake.LessThan(e.cfg.MinStake) {
		return errorsmod.Wrapf(ErrInvalidStake,
			"stake %s, minimum %s", money.Format(stake), money.Format(e.cfg.MinStake))
	}
	return nil
}

// view builds the public read model. Called under g.mu.
func (e *Engine) view(g *Game) View {
	v := View{
		ID:                g.ID,
		Kind:              g.Kind,
		Status:            g.Status,
		Currency:          g.Currency,
		Stake:             money.Format(g.Stake),
		Rounds:            g.Rounds,
		Round:             g.Round,
		Creator:           g.Creator,
		CreatorName:       g.CreatorName,
		Acceptor:          g.Acceptor,
		AcceptorName:      g.AcceptorName,
		CreatorScore:      g.Scores[0],
		AcceptorScore:     g.Scores[1],
		CreatorCommitted:  g.commits[0] != "",
		AcceptorCommitted: g.commits[1] != "",
		CreatorRevealed:   g.reveals[0] != nil,
		AcceptorRevealed:  g.reveals[1] != nil,
		Played:            append([]RoundResult(nil), g.Played...),
		Winner:            g.Winner,
		ForfeitedBy:       g.ForfeitedBy,
		Resolution:        g.Resolution,
		SecretHash:        g.SecretHash,
		ResultHash:        g.ResultHash,
		CreatedAt:         g.CreatedAt,
		OpenUntil:         timePtr(g.OpenUntil),
		Deadline:          timePtr(g.Deadline),
		CompletedAt:       timePtr(g.CompletedAt),
	}
	if g.Kind == KindCoinflip && g.Status.terminal() {
		v.Secret = hex.EncodeToString(g.Secret)
	}
	if g.Status.terminal() && !g.Pot.IsZero() {
		v.Pot = money.Format(g.Pot)
		v.Fee = money.Format(g.Fee)
		v.Payout = money.Format(g.Payout)
	}
	return v
}

// persist snapshots the view. Snapshot failures are logged, never fatal:
// the in-memory aggregate stays authoritative.
func (e *Engine) persist(ctx context.Context, g *Game, v View) {
	state, err := json.Marshal(v)
	if err != nil {
		e.logger.Error("snapshot marshal failed", "game", g.ID, "err", err)
		return
	}
	err = e.arch.SaveDuel(ctx, store.DuelSnapshot{
		ID:       g.ID,
		Kind:     string(g.Kind),
		Status:   string(g.Status),
		Currency: g.Currency,
		State:    state,
	})
	if err != nil {
		e.logger.Error("snapshot save failed", "game", g.ID, "err", err)
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
