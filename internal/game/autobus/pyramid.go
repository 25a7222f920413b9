package autobus

import (
	"sort"

	"klovn-bot/internal/game/cards"
)

// FlipResult describes a freshly flipped pyramid card.
type FlipResult struct {
	Card       PyramidCard `json:"card"`
	Row        int         `json:"row"`
	DrinkValue int         `json:"drink_value"`
}

// MatchResult describes a card played onto the pyramid.
type MatchResult struct {
	Played      cards.Card  `json:"played"`
	Pyramid     PyramidCard `json:"pyramid_card"`
	TargetID    int64       `json:"target_user_id"`
	DrinksGiven int         `json:"drinks_given"`
	CardsLeft   int         `json:"cards_left"`
	Transition  Transition  `json:"transition"`
}

// Transition reports what happened after a matching round closed.
type Transition struct {
	RoundClosed bool        `json:"round_closed"`
	BusStarted  bool        `json:"bus_started"`
	BusPlayerID int64       `json:"bus_player_id,omitempty"`
	BusQueue    []int64     `json:"bus_queue,omitempty"`
	BusCard     *cards.Card `json:"bus_card,omitempty"`
	Finished    bool        `json:"finished"`
}

// Flip turns the next pyramid card face up and opens a matching round.
// Any seated player may flip once the previous round has closed.
func Flip(t Table, userID int64) (Table, FlipResult, error) {
	g := t.Game
	if g.Status != StatusActive {
		return t, FlipResult{}, ErrGameNotActive
	}
	if g.Phase != PhasePyramid {
		return t, FlipResult{}, ErrWrongPhase
	}
	if t.PlayerIndex(userID) < 0 {
		return t, FlipResult{}, ErrNotInGame
	}
	if g.CurrentCardIndex >= 0 && !g.MatchingDone {
		return t, FlipResult{}, ErrMatchingInProgress
	}
	idx := g.CurrentCardIndex + 1
	if idx >= len(g.Pyramid) {
		return t, FlipResult{}, ErrAllFlipped
	}

	next := t.Clone()
	next.Game.Pyramid[idx].Flipped = true
	next.Game.CurrentCardIndex = idx
	next.Game.MatchTurnIndex = 0
	next.Game.MatchingDone = false
	for i := range next.Players {
		next.Players[i].PassedCurrent = false
	}

	return next, FlipResult{
		Card:       next.Game.Pyramid[idx],
		Row:        cards.RowForIndex(idx),
		DrinkValue: cards.DrinkValueForIndex(idx),
	}, nil
}

// checkMatchTurn runs the checks shared by Match and Pass.
func checkMatchTurn(t Table, userID int64) (int, PyramidCard, error) {
	g := t.Game
	if g.Status != StatusActive {
		return -1, PyramidCard{}, ErrGameNotActive
	}
	if g.Phase != PhasePyramid {
		return -1, PyramidCard{}, ErrWrongPhase
	}
	if g.MatchingDone {
		return -1, PyramidCard{}, ErrMatchingClosed
	}
	if g.CurrentCardIndex < 0 {
		return -1, PyramidCard{}, ErrNoCardFlipped
	}
	pi := t.PlayerIndex(userID)
	if pi < 0 {
		return -1, PyramidCard{}, ErrNotInGame
	}
	if t.Players[pi].TurnOrder != g.MatchTurnIndex {
		return -1, PyramidCard{}, ErrNotYourTurn
	}
	current, ok := t.CurrentCard()
	if !ok {
		return -1, PyramidCard{}, ErrNoCardFlipped
	}
	return pi, current, nil
}

// Match plays card from the actor's hand onto the current pyramid card and
// hands its drink value to target. The target may be the actor.
func Match(t Table, userID int64, card cards.Card, targetID int64) (Table, MatchResult, error) {
	pi, current, err := checkMatchTurn(t, userID)
	if err != nil {
		return t, MatchResult{}, err
	}
	hi := cards.Index(t.Players[pi].Hand, card)
	if hi < 0 {
		return t, MatchResult{}, ErrCardNotInHand
	}
	if !cards.SameRank(card, current.Card) {
		return t, MatchResult{}, ErrCardDoesNotMatch
	}
	ti := t.PlayerIndex(targetID)
	if ti < 0 {
		return t, MatchResult{}, ErrTargetNotInGame
	}

	next := t.Clone()
	drinks := cards.DrinkValueForIndex(current.Index)
	next.Players[pi].Hand = cards.Remove(next.Players[pi].Hand, hi)
	next.Players[pi].PassedCurrent = true
	next.Players[ti].DrinksReceived += drinks

	tr, err := next.advanceMatchTurn()
	if err != nil {
		return t, MatchResult{}, err
	}

	return next, MatchResult{
		Played:      card,
		Pyramid:     current,
		TargetID:    targetID,
		DrinksGiven: drinks,
		CardsLeft:   len(next.Players[pi].Hand),
		Transition:  tr,
	}, nil
}

// Pass gives up the actor's matching turn for the current card.
func Pass(t Table, userID int64) (Table, Transition, error) {
	pi, _, err := checkMatchTurn(t, userID)
	if err != nil {
		return t, Transition{}, err
	}

	next := t.Clone()
	next.Players[pi].PassedCurrent = true

	tr, err := next.advanceMatchTurn()
	if err != nil {
		return t, Transition{}, err
	}
	return next, tr, nil
}

// advanceMatchTurn moves the matching turn on and closes the round once
// every player has acted. Closing the round on the last pyramid card starts
// the bus. t must already be a private copy.
func (t *Table) advanceMatchTurn() (Transition, error) {
	t.Game.MatchTurnIndex++
	if t.Game.MatchTurnIndex < len(t.Players) {
		return Transition{}, nil
	}

	t.Game.MatchingDone = true
	tr := Transition{RoundClosed: true}
	if t.Game.CurrentCardIndex < LastPyramidIndex {
		return tr, nil
	}

	riders := DetermineBusPlayers(t.Players)
	if len(riders) == 0 {
		t.finish()
		tr.Finished = true
		return tr, nil
	}
	if len(t.Game.Deck) == 0 {
		return Transition{}, ErrDeckEmpty
	}

	queue := make([]int64, len(riders))
	for i, p := range riders {
		queue[i] = p.UserID
	}
	first := t.draw()

	t.Game.Phase = PhaseBus
	t.Game.BusQueue = queue
	t.Game.BusQueueIndex = 0
	t.Game.BusPlayerID = queue[0]
	t.Game.BusProgress = 0
	t.Game.BusCurrentCard = &first

	tr.BusStarted = true
	tr.BusPlayerID = queue[0]
	tr.BusQueue = append([]int64(nil), queue...)
	c := first
	tr.BusCard = &c
	return tr, nil
}

func (t *Table) finish() {
	t.Game.Status = StatusFinished
	t.Game.Phase = PhaseFinished
}

// draw takes the top card of the draw pile. The pile must not be empty.
func (t *Table) draw() cards.Card {
	c := t.Game.Deck[0]
	t.Game.Deck = t.Game.Deck[1:]
	return c
}

// DetermineBusPlayers returns the players holding the most cards, in turn
// order. It returns nothing when every hand is empty.
func DetermineBusPlayers(players []Player) []Player {
	most := 0
	for _, p := range players {
		if len(p.Hand) > most {
			most = len(p.Hand)
		}
	}
	if most == 0 {
		return nil
	}

	var riders []Player
	for _, p := range players {
		if len(p.Hand) == most {
			riders = append(riders, p)
		}
	}
	sort.SliceStable(riders, func(i, j int) bool {
		return riders[i].TurnOrder < riders[j].TurnOrder
	})
	return riders
}
