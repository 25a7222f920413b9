package autobus

import (
	"klovn-bot/internal/game"
	"klovn-bot/internal/game/cards"
)

// Deal is the outcome of dealing a fresh deck.
type Deal struct {
	Hands   map[int64][]cards.Card
	Pyramid []PyramidCard
	Deck    []cards.Card
}

// DealCards shuffles a deck and deals HandSize cards to each player in order,
// then lays the next 15 cards face down as the pyramid. The rest becomes the
// draw pile. Hands, pyramid and draw pile partition the 52 cards.
func DealCards(playerIDs []int64, r game.Rand) (Deal, error) {
	if len(playerIDs) == 0 {
		return Deal{}, ErrNoPlayers
	}
	if len(playerIDs)*HandSize+cards.PyramidSize > cards.DeckSize {
		return Deal{}, ErrNotEnoughCards
	}

	seen := make(map[int64]bool, len(playerIDs))
	for _, id := range playerIDs {
		if seen[id] {
			return Deal{}, ErrDuplicatePlayer
		}
		seen[id] = true
	}

	deck := cards.NewDeck(r)
	pos := 0

	hands := make(map[int64][]cards.Card, len(playerIDs))
	for _, id := range playerIDs {
		hand := make([]cards.Card, HandSize)
		copy(hand, deck[pos:pos+HandSize])
		hands[id] = hand
		pos += HandSize
	}

	pyramid := make([]PyramidCard, cards.PyramidSize)
	for i := range pyramid {
		pyramid[i] = PyramidCard{Card: deck[pos], Index: i}
		pos++
	}

	return Deal{
		Hands:   hands,
		Pyramid: pyramid,
		Deck:    cards.Clone(deck[pos:]),
	}, nil
}

// NewTable opens a lobby with the creator seated first.
func NewTable(creator Player) Table {
	creator.TurnOrder = 0
	creator.Hand = []cards.Card{}
	creator.DrinksReceived = 0
	creator.PassedCurrent = false

	return Table{
		Game: Game{
			Status:           StatusLobby,
			Phase:            PhaseLobby,
			Pyramid:          []PyramidCard{},
			Deck:             []cards.Card{},
			CurrentCardIndex: NoCardFlipped,
			BusQueue:         []int64{},
			CreatedBy:        creator.UserID,
		},
		Players: []Player{creator},
	}
}

// Join seats p at the end of the turn order.
func Join(t Table, p Player, maxPlayers int) (Table, Player, error) {
	if t.Game.Status != StatusLobby {
		return t, Player{}, ErrGameNotInLobby
	}
	if t.PlayerIndex(p.UserID) >= 0 {
		return t, Player{}, ErrAlreadyJoined
	}
	if maxPlayers <= 0 || maxPlayers > MaxPlayersByDeck {
		maxPlayers = MaxPlayersByDeck
	}
	if len(t.Players) >= maxPlayers {
		return t, Player{}, ErrGameFull
	}

	next := t.Clone()
	p.GameID = t.Game.ID
	p.TurnOrder = len(next.Players)
	p.Hand = []cards.Card{}
	p.DrinksReceived = 0
	p.PassedCurrent = false
	next.Players = append(next.Players, p)
	return next, p, nil
}

// Start deals the cards and moves the game into the pyramid phase.
// Only the creator may start.
func Start(t Table, userID int64, r game.Rand) (Table, error) {
	if t.Game.Status != StatusLobby {
		return t, ErrGameNotInLobby
	}
	if t.Game.CreatedBy != userID {
		return t, ErrNotCreator
	}

	deal, err := DealCards(t.PlayerIDs(), r)
	if err != nil {
		return t, err
	}

	next := t.Clone()
	for i := range next.Players {
		next.Players[i].Hand = deal.Hands[next.Players[i].UserID]
		next.Players[i].DrinksReceived = 0
		next.Players[i].PassedCurrent = false
	}

	g := &next.Game
	g.Status = StatusActive
	g.Phase = PhasePyramid
	g.Pyramid = deal.Pyramid
	g.Deck = deal.Deck
	g.CurrentCardIndex = NoCardFlipped
	g.MatchTurnIndex = 0
	g.MatchingDone = false
	return next, nil
}
