// Package holdem evaluates seven-card Texas hold'em hands and picks
// showdown winners.
package holdem

import (
	"fmt"
	"sort"

	"github.com/RobotsMakeThings/clawcasino/internal/cards"
)

// HandCategory orders hand classes from weakest to strongest. A royal
// flush is its own category above the other straight flushes.
type HandCategory uint8

const (
	HighCard HandCategory = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var categoryNames = [...]string{
	"high-card",
	"pair",
	"two-pair",
	"three-of-a-kind",
	"straight",
	"flush",
	"full-house",
	"four-of-a-kind",
	"straight-flush",
	"royal-flush",
}

func (c HandCategory) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("HandCategory(%d)", uint8(c))
}

// HandRank is a fully ordered hand strength: category first, then the
// tiebreaker ranks in significance order. Equal ranks split the pot.
type HandRank struct {
	Category    HandCategory
	Tiebreakers []uint8
}

// CompareHandRank returns -1, 0 or 1 as a is weaker than, equal to or
// stronger than b.
func CompareHandRank(a, b HandRank) int {
	if a.Category != b.Category {
		if a.Category < b.Category {
			return -1
		}
		return 1
	}
	n := len(a.Tiebreakers)
	if len(b.Tiebreakers) < n {
		n = len(b.Tiebreakers)
	}
	for i := 0; i < n; i++ {
		if a.Tiebreakers[i] != b.Tiebreakers[i] {
			if a.Tiebreakers[i] < b.Tiebreakers[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// combos7Choose5 lists the 21 ways to pick five cards out of seven.
var combos7Choose5 = [21][5]int{
	{0, 1, 2, 3, 4}, {0, 1, 2, 3, 5}, {0, 1, 2, 3, 6}, {0, 1, 2, 4, 5},
	{0, 1, 2, 4, 6}, {0, 1, 2, 5, 6}, {0, 1, 3, 4, 5}, {0, 1, 3, 4, 6},
	{0, 1, 3, 5, 6}, {0, 1, 4, 5, 6}, {0, 2, 3, 4, 5}, {0, 2, 3, 4, 6},
	{0, 2, 3, 5, 6}, {0, 2, 4, 5, 6}, {0, 3, 4, 5, 6}, {1, 2, 3, 4, 5},
	{1, 2, 3, 4, 6}, {1, 2, 3, 5, 6}, {1, 2, 4, 5, 6}, {1, 3, 4, 5, 6},
	{2, 3, 4, 5, 6},
}

// Evaluate7 returns the best five-card rank among the 21 subsets of the
// seven given cards. It panics when the caller breaks the 7-card contract;
// the table engine always deals exactly two hole cards onto a five-card
// board.
func Evaluate7(seven []cards.Card) HandRank {
	if len(seven) != 7 {
		panic(fmt.Sprintf("holdem: Evaluate7 needs 7 cards, got %d", len(seven)))
	}
	var best HandRank
	first := true
	for _, combo := range combos7Choose5 {
		var five [5]cards.Card
		for i, idx := range combo {
			five[i] = seven[idx]
		}
		r := evaluate5(five)
		if first || CompareHandRank(r, best) > 0 {
			best = r
			first = false
		}
	}
	return best
}

type rankGroup struct {
	rank  uint8
	count int
}

func evaluate5(five [5]cards.Card) HandRank {
	var desc [5]uint8
	for i, c := range five {
		desc[i] = c.Rank()
	}
	sort.Slice(desc[:], func(i, j int) bool { return desc[i] > desc[j] })

	flush := true
	for i := 1; i < 5; i++ {
		if five[i].Suit() != five[0].Suit() {
			flush = false
			break
		}
	}
	high, straight := straightHigh(desc)

	if straight && flush {
		if high == 14 {
			// All royal flushes tie, so no tiebreakers.
			return HandRank{Category: RoyalFlush}
		}
		return HandRank{Category: StraightFlush, Tiebreakers: []uint8{high}}
	}

	counts := make(map[uint8]int, 5)
	for _, r := range desc {
		counts[r]++
	}
	groups := make([]rankGroup, 0, 5)
	for r, n := range counts {
		groups = append(groups, rankGroup{rank: r, count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	switch {
	case groups[0].count == 4:
		return HandRank{Category: FourOfAKind, Tiebreakers: []uint8{groups[0].rank, groups[1].rank}}
	case groups[0].count == 3 && groups[1].count == 2:
		return HandRank{Category: FullHouse, Tiebreakers: []uint8{groups[0].rank, groups[1].rank}}
	case flush:
		return HandRank{Category: Flush, Tiebreakers: desc[:]}
	case straight:
		return HandRank{Category: Straight, Tiebreakers: []uint8{high}}
	case groups[0].count == 3:
		return HandRank{Category: ThreeOfAKind, Tiebreakers: []uint8{groups[0].rank, groups[1].rank, groups[2].rank}}
	case groups[0].count == 2 && groups[1].count == 2:
		return HandRank{Category: TwoPair, Tiebreakers: []uint8{groups[0].rank, groups[1].rank, groups[2].rank}}
	case groups[0].count == 2:
		return HandRank{Category: Pair, Tiebreakers: []uint8{groups[0].rank, groups[1].rank, groups[2].rank, groups[3].rank}}
	default:
		return HandRank{Category: HighCard, Tiebreakers: desc[:]}
	}
}

// straightHigh reports whether the descending ranks form a straight and
// returns its high card. The wheel A-2-3-4-5 counts as a five-high straight.
func straightHigh(desc [5]uint8) (uint8, bool) {
	for i := 1; i < 5; i++ {
		if desc[i] == desc[i-1] {
			return 0, false
		}
	}
	if desc[0]-desc[4] == 4 {
		return desc[0], true
	}
	if desc[0] == 14 && desc[1] == 5 && desc[2] == 4 && desc[3] == 3 && desc[4] == 2 {
		return 5, true
	}
	return 0, false
}

// Winners evaluates every contender's hole cards against a complete board
// and returns the tied-for-best seats in ascending seat order, plus each
// contender's rank for showdown reporting.
func Winners(board []cards.Card, holeBySeat map[int][2]cards.Card) ([]int, map[int]HandRank, error) {
	if len(board) != 5 {
		return nil, nil, fmt.Errorf("holdem: board has %d cards, want 5", len(board))
	}
	if len(holeBySeat) == 0 {
		return nil, nil, fmt.Errorf("holdem: no contenders")
	}

	ranks := make(map[int]HandRank, len(holeBySeat))
	var winners []int
	var best HandRank
	for seat, hole := range holeBySeat {
		seven := make([]cards.Card, 0, 7)
		seven = append(seven, board...)
		seven = append(seven, hole[0], hole[1])
		r := Evaluate7(seven)
		ranks[seat] = r
		switch {
		case len(winners) == 0:
			winners = []int{seat}
			best = r
		default:
			switch CompareHandRank(r, best) {
			case 1:
				winners = []int{seat}
				best = r
			case 0:
				winners = append(winners, seat)
			}
		}
	}
	sort.Ints(winners)
	return winners, ranks, nil
}
