// Package duel runs the head-to-head wagering games: the single-round
// committed coinflip and best-of-N rock-paper-scissors played under a
// commit-reveal protocol. Stakes are escrowed in the ledger the moment a
// game is created or accepted, so a game in flight can always pay out or
// refund without touching a player's wallet balance.
package duel

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Kind selects the game.
type Kind string

const (
	KindCoinflip Kind = "coinflip"
	KindRPS      Kind = "rps"
)

// Status is the game lifecycle phase.
type Status string

const (
	StatusOpen       Status = "open"
	StatusCommitting Status = "committing"
	StatusRevealing  Status = "revealing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusExpired    Status = "expired"
	StatusForfeited  Status = "forfeited"
)

// terminal reports whether no further transition can happen.
func (s Status) terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusExpired, StatusForfeited:
		return true
	}
	return false
}

// Choice is one rock-paper-scissors throw.
type Choice string

const (
	Rock     Choice = "rock"
	Paper    Choice = "paper"
	Scissors Choice = "scissors"
)

// ValidChoice reports whether c names a throw.
func ValidChoice(c Choice) bool {
	return c == Rock || c == Paper || c == Scissors
}

// beats reports whether a defeats b.
func beats(a, b Choice) bool {
	switch a {
	case Rock:
		return b == Scissors
	case Paper:
		return b == Rock
	case Scissors:
		return b == Paper
	}
	return false
}

// Commitment binds a choice to a nonce: hex SHA-256 of "choice:nonce".
// Players compute it client side; it is exported so tests and clients
// share one definition.
func Commitment(choice Choice, nonce string) string {
	sum := sha256.Sum256([]byte(string(choice) + ":" + nonce))
	return hex.EncodeToString(sum[:])
}

func validCommitment(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// RoundResult archives one played rock-paper-scissors round. Winner is
// empty on a tie; tied rounds are replayed and do not score.
type RoundResult struct {
	Round          int    `json:"round"`
	CreatorChoice  Choice `json:"creator_choice"`
	AcceptorChoice Choice `json:"acceptor_choice"`
	Winner         string `json:"winner,omitempty"`
}

type reveal struct {
	choice Choice
	nonce  string
}

// Game is one duel aggregate. Every mutation happens under mu, making
// each game its own single-writer region.
type Game struct {
	mu sync.Mutex

	ID       string
	Kind     Kind
	Currency string
	Stake    decimal.Decimal
	Rounds   int

	Creator        string
	CreatorWallet  string
	CreatorName    string
	Acceptor       string
	AcceptorWallet string
	AcceptorName   string

	Status  Status
	Round   int
	Scores  [2]int
	Played  []RoundResult
	commits [2]string
	reveals [2]*reveal

	Winner      string
	ForfeitedBy string
	Resolution  string

	// Coinflip fairness trail: the hash is public from creation, the
	// secret only after resolution.
	Secret     []byte
	SecretHash string
	ResultHash string

	Pot    decimal.Decimal
	Fee    decimal.Decimal
	Payout decimal.Decimal

	CreatedAt   time.Time
	OpenUntil   time.Time
	Deadline    time.Time
	CompletedAt time.Time
}

// participantIndex maps an agent to its side: 0 creator, 1 acceptor.
func (g *Game) participantIndex(agentID string) (int, bool) {
	switch agentID {
	case g.Creator:
		return 0, true
	case g.Acceptor:
		if g.Acceptor != "" {
			return 1, true
		}
	}
	return 0, false
}

func (g *Game) participant(idx int) string {
	if idx == 0 {
		return g.Creator
	}
	return g.Acceptor
}

func (g *Game) resetRound() {
	g.commits[0], g.commits[1] = "", ""
	g.reveals[0], g.reveals[1] = nil, nil
}

// majority is the score that ends a best-of-N match.
func (g *Game) majority() int {
	return g.Rounds/2 + 1
}

// View is the public read model of a game, also used as the durable
// snapshot payload and the resolved-event body.
type View struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	Status   Status `json:"status"`
	Currency string `json:"currency"`
	Stake    string `json:"stake"`
	Rounds   int    `json:"rounds"`
	Round    int    `json:"round,omitempty"`

	Creator      string `json:"creator"`
	CreatorName  string `json:"creator_name,omitempty"`
	Acceptor     string `json:"acceptor,omitempty"`
	AcceptorName string `json:"acceptor_name,omitempty"`

	CreatorScore      int  `json:"creator_score"`
	AcceptorScore     int  `json:"acceptor_score"`
	CreatorCommitted  bool `json:"creator_committed"`
	AcceptorCommitted bool `json:"acceptor_committed"`
	CreatorRevealed   bool `json:"creator_revealed"`
	AcceptorRevealed  bool `json:"acceptor_revealed"`

	Played []RoundResult `json:"played,omitempty"`

	Winner      string `json:"winner,omitempty"`
	ForfeitedBy string `json:"forfeited_by,omitempty"`
	Resolution  string `json:"resolution,omitempty"`

	SecretHash string `json:"secret_hash,omitempty"`
	Secret     string `json:"secret,omitempty"`
	ResultHash string `json:"result_hash,omitempty"`

	Pot    string `json:"pot,omitempty"`
	Fee    string `json:"fee,omitempty"`
	Payout string `json:"payout,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	OpenUntil   *time.Time `json:"open_until,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
