// Package cards holds the playing-card primitives shared by the shuffler,
// the hand evaluator and the table engine.
package cards

import (
	"fmt"
	"strings"
)

// Card is one playing card encoded as 0..51.
//
//	rank = id%13 + 2   (2..14, ace high)
//	suit = id/13       (0 clubs, 1 diamonds, 2 hearts, 3 spades)
type Card uint8

const (
	rankChars = "23456789TJQKA"
	suitChars = "cdhs"
)

// Rank returns the card rank, 2..14 with 14 the ace.
func (c Card) Rank() uint8 { return uint8(c)%13 + 2 }

// Suit returns the card suit, 0..3.
func (c Card) Suit() uint8 { return uint8(c) / 13 }

// String renders the card in wire form, rank then suit, e.g. "Ah" or "Tc".
func (c Card) String() string {
	if c > 51 {
		return fmt.Sprintf("Card(%d)", uint8(c))
	}
	return string([]byte{rankChars[c.Rank()-2], suitChars[c.Suit()]})
}

// Parse is the inverse of String. It accepts exactly two characters and
// rejects anything that does not name a card.
func Parse(s string) (Card, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("card %q: want <rank><suit>", s)
	}
	r := strings.IndexByte(rankChars, s[0])
	if r < 0 {
		return 0, fmt.Errorf("card %q: unknown rank %q", s, s[0])
	}
	u := strings.IndexByte(suitChars, s[1])
	if u < 0 {
		return 0, fmt.Errorf("card %q: unknown suit %q", s, s[1])
	}
	return Card(u*13 + r), nil
}

// MustParse parses a hard-coded card and panics on error. Test fixtures only.
func MustParse(s string) Card {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// NewDeck returns the 52 cards in encoding order.
func NewDeck() []Card {
	deck := make([]Card, 52)
	for i := range deck {
		deck[i] = Card(i)
	}
	return deck
}

// Strings renders a slice of cards for views and events.
func Strings(cs []Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}
