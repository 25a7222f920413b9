// Package autobus implements the Autobus drinking game: a 15-card pyramid
// that players match against from their hands, followed by the bus, a
// higher/lower guessing run for whoever is left holding the most cards.
//
// Every transition is a pure function over a Table snapshot. The input is
// never mutated; callers persist the returned snapshot.
package autobus

import (
	"time"

	"klovn-bot/internal/game"
	"klovn-bot/internal/game/cards"
)

// Status is the lifecycle state of a game row.
type Status string

const (
	StatusLobby    Status = "lobby"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Phase is the stage of play.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhasePyramid  Phase = "pyramid"
	PhaseBus      Phase = "bus"
	PhaseFinished Phase = "finished"
)

const (
	// HandSize is the number of cards dealt to each player.
	HandSize = 5

	// BusLength is the number of correct guesses needed to leave the bus.
	BusLength = 5

	// MinPlayers allows solo play.
	MinPlayers = 1

	// MaxPlayersByDeck is the largest table whose hands and pyramid fit in one deck.
	MaxPlayersByDeck = (cards.DeckSize - cards.PyramidSize) / HandSize

	// DefaultMaxPlayers leaves a draw pile of 7 cards. Larger tables leave
	// fewer, and the bus can stall on deck_empty since the deck is never
	// reshuffled.
	DefaultMaxPlayers = 6

	// NoCardFlipped is the current card index before the first flip.
	NoCardFlipped = -1

	// LastPyramidIndex is the top of the pyramid.
	LastPyramidIndex = cards.PyramidSize - 1
)

// PyramidCard is a pyramid position. It serializes flat: rank, suit, flipped, index.
type PyramidCard struct {
	cards.Card
	Flipped bool `json:"flipped"`
	Index   int  `json:"index"`
}

// Game is the persisted game row.
type Game struct {
	ID               int64
	Status           Status
	Phase            Phase
	Pyramid          []PyramidCard
	Deck             []cards.Card
	CurrentCardIndex int
	MatchTurnIndex   int
	MatchingDone     bool
	BusPlayerID      int64 // 0 when nobody is on the bus
	BusProgress      int
	BusCurrentCard   *cards.Card
	BusQueue         []int64
	BusQueueIndex    int
	CreatedBy        int64
	CreatedAt        time.Time
	FinishedAt       *time.Time
}

// Player is a seat at the table.
type Player struct {
	GameID         int64
	UserID         int64
	Username       string
	FirstName      string
	Hand           []cards.Card
	DrinksReceived int
	TurnOrder      int
	PassedCurrent  bool
}

// DisplayName returns the name used in log lines.
func (p Player) DisplayName() string {
	if p.FirstName != "" {
		return p.FirstName
	}
	if p.Username != "" {
		return p.Username
	}
	return "Klovn"
}

// Table is a game together with its players ordered by turn order.
type Table struct {
	Game    Game
	Players []Player
}

// Clone returns a deep copy, so the result shares no slices with t.
func (t Table) Clone() Table {
	g := t.Game
	if t.Game.Pyramid != nil {
		g.Pyramid = make([]PyramidCard, len(t.Game.Pyramid))
		copy(g.Pyramid, t.Game.Pyramid)
	}
	g.Deck = cards.Clone(t.Game.Deck)
	if t.Game.BusCurrentCard != nil {
		c := *t.Game.BusCurrentCard
		g.BusCurrentCard = &c
	}
	if t.Game.BusQueue != nil {
		g.BusQueue = make([]int64, len(t.Game.BusQueue))
		copy(g.BusQueue, t.Game.BusQueue)
	}
	if t.Game.FinishedAt != nil {
		f := *t.Game.FinishedAt
		g.FinishedAt = &f
	}

	var players []Player
	if t.Players != nil {
		players = make([]Player, len(t.Players))
		for i, p := range t.Players {
			p.Hand = cards.Clone(p.Hand)
			players[i] = p
		}
	}
	return Table{Game: g, Players: players}
}

// PlayerIndex returns the index of userID in t.Players, or -1.
func (t Table) PlayerIndex(userID int64) int {
	for i, p := range t.Players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// Player returns the seat of userID.
func (t Table) Player(userID int64) (Player, bool) {
	i := t.PlayerIndex(userID)
	if i < 0 {
		return Player{}, false
	}
	return t.Players[i], true
}

// CurrentCard returns the most recently flipped pyramid card.
func (t Table) CurrentCard() (PyramidCard, bool) {
	i := t.Game.CurrentCardIndex
	if i < 0 || i >= len(t.Game.Pyramid) {
		return PyramidCard{}, false
	}
	c := t.Game.Pyramid[i]
	return c, c.Flipped
}

// NeedsFlip reports whether the next pyramid card may be flipped.
func (t Table) NeedsFlip() bool {
	g := t.Game
	return g.Status == StatusActive &&
		g.Phase == PhasePyramid &&
		(g.CurrentCardIndex == NoCardFlipped || g.MatchingDone) &&
		g.CurrentCardIndex < LastPyramidIndex
}

// IsMatchTurn reports whether userID is the player allowed to match or pass now.
func (t Table) IsMatchTurn(userID int64) bool {
	g := t.Game
	if g.Status != StatusActive || g.Phase != PhasePyramid || g.MatchingDone || g.CurrentCardIndex < 0 {
		return false
	}
	p, ok := t.Player(userID)
	return ok && p.TurnOrder == g.MatchTurnIndex
}

// PlayerIDs returns the user ids in turn order.
func (t Table) PlayerIDs() []int64 {
	ids := make([]int64, len(t.Players))
	for i, p := range t.Players {
		ids[i] = p.UserID
	}
	return ids
}

// Descriptor registers Autobus in a game.Registry.
type Descriptor struct {
	Max int
}

var _ game.Game = Descriptor{}

func (Descriptor) Name() string    { return "Autobus" }
func (Descriptor) Command() string { return "autobus" }
func (Descriptor) Description() string {
	return "Match the pyramid, hand out drinks, and pray you don't end up on the bus."
}
func (Descriptor) WebAppPath() string { return "/autobus" }
func (Descriptor) MinPlayers() int    { return MinPlayers }

func (d Descriptor) MaxPlayers() int {
	if d.Max <= 0 || d.Max > MaxPlayersByDeck {
		return DefaultMaxPlayers
	}
	return d.Max
}
