// Package cards implements the standard 52-card deck used by Autobus:
// ranks, suits, ace-high values, Fisher-Yates shuffling and the fixed
// 15-card pyramid layout.
package cards

import (
	"fmt"

	"klovn-bot/internal/game"
)

// DeckSize is the number of cards in a standard deck.
const DeckSize = 52

// Ranks in ascending order.
var Ranks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

// Suits. Stored as the same glyphs the mini-app renders.
var Suits = []string{"♠️", "♥️", "♦️", "♣️"}

var rankValues = map[string]int{
	"2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8, "9": 9, "10": 10,
	"J": 11, "Q": 12, "K": 13, "A": 14,
}

// Card is an immutable rank/suit pair.
type Card struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

// String renders the card as rank followed by suit, e.g. "10♥️".
func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// Value returns the ace-high numeric value (2..14), or 0 for an unknown rank.
func (c Card) Value() int {
	return rankValues[c.Rank]
}

// Valid reports whether the card has a known rank and suit.
func (c Card) Valid() bool {
	if _, ok := rankValues[c.Rank]; !ok {
		return false
	}
	for _, s := range Suits {
		if s == c.Suit {
			return true
		}
	}
	return false
}

// SameRank reports whether two cards share a rank. Suits are ignored.
func SameRank(a, b Card) bool {
	return a.Rank == b.Rank
}

// Canonical returns the 52 rank×suit combinations in rank-major order.
func Canonical() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, rank := range Ranks {
		for _, suit := range Suits {
			deck = append(deck, Card{Rank: rank, Suit: suit})
		}
	}
	return deck
}

// NewDeck returns a freshly shuffled 52-card deck.
func NewDeck(r game.Rand) []Card {
	return Shuffle(Canonical(), r)
}

// Shuffle returns a Fisher-Yates shuffled copy of deck.
// The input is not modified.
func Shuffle(deck []Card, r game.Rand) []Card {
	r = game.OrDefault(r)
	out := make([]Card, len(deck))
	copy(out, deck)
	for i := len(out) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Index returns the position of card in cards, or -1.
// Both rank and suit must match.
func Index(cards []Card, card Card) int {
	for i, c := range cards {
		if c == card {
			return i
		}
	}
	return -1
}

// Remove returns a copy of cards without the element at i.
func Remove(cards []Card, i int) []Card {
	out := make([]Card, 0, len(cards)-1)
	out = append(out, cards[:i]...)
	return append(out, cards[i+1:]...)
}

// Clone returns a copy of cards; nil stays nil.
func Clone(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}
