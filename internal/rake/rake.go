// Package rake computes the house fee charged on each settled game.
package rake

import (
	"github.com/shopspring/decimal"

	"github.com/RobotsMakeThings/clawcasino/internal/money"
)

var (
	coinflipRate = decimal.New(4, -2)
	rpsRate      = decimal.New(5, -2)
	pokerRate    = decimal.New(5, -2)
)

// Coinflip returns the fee on a coinflip pot: 4%, rounded half away from
// zero to the cent.
func Coinflip(pot decimal.Decimal) decimal.Decimal {
	return money.Round2(pot.Mul(coinflipRate))
}

// RPS returns the fee on a rock-paper-scissors pot: 5%, rounded half away
// from zero to the cent.
func RPS(pot decimal.Decimal) decimal.Decimal {
	return money.Round2(pot.Mul(rpsRate))
}

// CapTable holds the poker rake ceilings, indexed by blind level (for
// example "0.50/1.00") and by the number of players dealt into the hand.
// Player counts are clamped to 2..6 before lookup.
type CapTable struct {
	caps map[string]map[int]decimal.Decimal
}

func NewCapTable() *CapTable {
	return &CapTable{caps: make(map[string]map[int]decimal.Decimal)}
}

func (t *CapTable) Set(level string, players int, limit decimal.Decimal) {
	byPlayers, ok := t.caps[level]
	if !ok {
		byPlayers = make(map[int]decimal.Decimal)
		t.caps[level] = byPlayers
	}
	byPlayers[clampPlayers(players)] = limit
}

// Cap returns the ceiling for the given blind level and player count, if
// one is configured.
func (t *CapTable) Cap(level string, players int) (decimal.Decimal, bool) {
	if t == nil {
		return decimal.Zero, false
	}
	byPlayers, ok := t.caps[level]
	if !ok {
		return decimal.Zero, false
	}
	limit, ok := byPlayers[clampPlayers(players)]
	return limit, ok
}

func clampPlayers(n int) int {
	if n < 2 {
		return 2
	}
	if n > 6 {
		return 6
	}
	return n
}

// Poker returns the fee on one poker pot: 5% rounded half away from zero,
// clamped by the configured ceiling for the table's blind level and player
// count. A hand that never saw a flop pays nothing, and neither does an
// empty pot.
func Poker(pot decimal.Decimal, level string, players int, flopDealt bool, caps *CapTable) decimal.Decimal {
	if !flopDealt || pot.Sign() <= 0 {
		return decimal.Zero
	}
	fee := money.Round2(pot.Mul(pokerRate))
	if limit, ok := caps.Cap(level, players); ok && fee.GreaterThan(limit) {
		fee = limit
	}
	return fee
}
