package cards

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestNewDeckIsPermutationProperty checks that every shuffled deck holds the
// 52 canonical cards exactly once.
func TestNewDeckIsPermutationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Int64().Draw(t, "seed")
		deck := NewDeck(rand.New(rand.NewSource(seed)))

		if len(deck) != DeckSize {
			t.Fatalf("deck has %d cards, want %d", len(deck), DeckSize)
		}

		seen := make(map[Card]bool, DeckSize)
		for _, c := range deck {
			if !c.Valid() {
				t.Fatalf("invalid card %v", c)
			}
			if seen[c] {
				t.Fatalf("duplicate card %v", c)
			}
			seen[c] = true
		}
		for _, c := range Canonical() {
			if !seen[c] {
				t.Fatalf("missing card %v", c)
			}
		}
	})
}

func TestShuffleDoesNotMutateInput(t *testing.T) {
	canonical := Canonical()
	before := Clone(canonical)

	_ = Shuffle(canonical, rand.New(rand.NewSource(7)))

	assert.Equal(t, before, canonical)
}

func TestShuffleIsDeterministicForSeed(t *testing.T) {
	a := NewDeck(rand.New(rand.NewSource(42)))
	b := NewDeck(rand.New(rand.NewSource(42)))
	assert.Equal(t, a, b)
}

func TestShuffleWithNilRand(t *testing.T) {
	deck := NewDeck(nil)
	assert.Len(t, deck, DeckSize)
}

func TestCardValue(t *testing.T) {
	tests := []struct {
		rank string
		want int
	}{
		{"2", 2}, {"9", 9}, {"10", 10},
		{"J", 11}, {"Q", 12}, {"K", 13}, {"A", 14},
		{"1", 0}, {"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.rank, func(t *testing.T) {
			assert.Equal(t, tt.want, Card{Rank: tt.rank, Suit: "♠️"}.Value())
		})
	}
}

func TestSameRankIgnoresSuitProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rank := rapid.SampledFrom(Ranks).Draw(t, "rank")
		other := rapid.SampledFrom(Ranks).Draw(t, "other")
		suitA := rapid.SampledFrom(Suits).Draw(t, "suitA")
		suitB := rapid.SampledFrom(Suits).Draw(t, "suitB")

		a := Card{Rank: rank, Suit: suitA}
		b := Card{Rank: rank, Suit: suitB}
		if !SameRank(a, b) || !SameRank(b, a) {
			t.Fatalf("%v and %v should match", a, b)
		}

		c := Card{Rank: other, Suit: suitB}
		if SameRank(a, c) != (rank == other) {
			t.Fatalf("SameRank(%v, %v) = %v", a, c, SameRank(a, c))
		}
	})
}

func TestSameRankExamples(t *testing.T) {
	assert.True(t, SameRank(Card{Rank: "7", Suit: "♠️"}, Card{Rank: "7", Suit: "♥️"}))
	assert.False(t, SameRank(Card{Rank: "7", Suit: "♠️"}, Card{Rank: "8", Suit: "♠️"}))
}

func TestRemoveAndIndex(t *testing.T) {
	hand := []Card{{"2", "♠️"}, {"K", "♥️"}, {"A", "♣️"}}

	i := Index(hand, Card{"K", "♥️"})
	require.Equal(t, 1, i)
	assert.Equal(t, -1, Index(hand, Card{"K", "♠️"}))

	out := Remove(hand, i)
	assert.Equal(t, []Card{{"2", "♠️"}, {"A", "♣️"}}, out)
	assert.Len(t, hand, 3, "input must stay untouched")
}

func TestCardString(t *testing.T) {
	assert.Equal(t, "10♥️", Card{Rank: "10", Suit: "♥️"}.String())
}
