package autobus

import "klovn-bot/internal/game/cards"

// PyramidSlot is a pyramid position as one player sees it.
// Face-down slots carry no card.
type PyramidSlot struct {
	Index      int         `json:"index"`
	Row        int         `json:"row"`
	Position   int         `json:"position"`
	DrinkValue int         `json:"drink_value"`
	Flipped    bool        `json:"flipped"`
	Card       *cards.Card `json:"card"`
}

// GameView is the public part of the game row.
type GameView struct {
	ID               int64       `json:"id"`
	Status           Status      `json:"status"`
	Phase            Phase       `json:"phase"`
	CreatedBy        int64       `json:"created_by"`
	CurrentCardIndex int         `json:"current_card_index"`
	MatchTurnIndex   int         `json:"match_turn_index"`
	MatchingDone     bool        `json:"matching_done"`
	BusPlayerID      int64       `json:"bus_player_id"`
	BusProgress      int         `json:"bus_progress"`
	BusCurrentCard   *cards.Card `json:"bus_current_card"`
	DeckRemaining    int         `json:"deck_remaining"`
}

// PlayerView shows a seat without its cards.
type PlayerView struct {
	UserID         int64  `json:"user_id"`
	Username       string `json:"username"`
	FirstName      string `json:"first_name"`
	CardCount      int    `json:"card_count"`
	DrinksReceived int    `json:"drinks_received"`
	TurnOrder      int    `json:"turn_order"`
	PassedCurrent  bool   `json:"passed_current"`
}

// StateView is the game as the viewer is allowed to see it.
type StateView struct {
	Game           GameView      `json:"game"`
	Pyramid        []PyramidSlot `json:"pyramid"`
	Players        []PlayerView  `json:"players"`
	MyID           int64         `json:"my_id"`
	MyHand         []cards.Card  `json:"my_hand"`
	CurrentCard    *PyramidSlot  `json:"current_card"`
	CanMatch       bool          `json:"can_match"`
	MatchableCards []cards.Card  `json:"matchable_cards"`
	IsMyMatchTurn  bool          `json:"is_my_match_turn"`
	NeedsFlip      bool          `json:"needs_flip"`
	IsBusPlayer    bool          `json:"is_bus_player"`
}

// View projects t for userID. Outsiders may only look at lobbies.
func View(t Table, userID int64) (StateView, error) {
	me, seated := t.Player(userID)
	if !seated && t.Game.Status != StatusLobby {
		return StateView{}, ErrNotParticipant
	}

	g := t.Game
	v := StateView{
		Game: GameView{
			ID:               g.ID,
			Status:           g.Status,
			Phase:            g.Phase,
			CreatedBy:        g.CreatedBy,
			CurrentCardIndex: g.CurrentCardIndex,
			MatchTurnIndex:   g.MatchTurnIndex,
			MatchingDone:     g.MatchingDone,
			BusPlayerID:      g.BusPlayerID,
			BusProgress:      g.BusProgress,
			DeckRemaining:    len(g.Deck),
		},
		Pyramid:        make([]PyramidSlot, len(g.Pyramid)),
		Players:        make([]PlayerView, len(t.Players)),
		MyID:           userID,
		MyHand:         cards.Clone(me.Hand),
		MatchableCards: []cards.Card{},
		NeedsFlip:      t.NeedsFlip(),
		IsBusPlayer:    g.Phase == PhaseBus && g.BusPlayerID != 0 && g.BusPlayerID == userID,
	}
	if v.MyHand == nil {
		v.MyHand = []cards.Card{}
	}
	if g.BusCurrentCard != nil {
		c := *g.BusCurrentCard
		v.Game.BusCurrentCard = &c
	}

	for i, pc := range g.Pyramid {
		slot := PyramidSlot{
			Index:      pc.Index,
			Row:        cards.RowForIndex(pc.Index),
			Position:   cards.PositionInRow(pc.Index),
			DrinkValue: cards.DrinkValueForIndex(pc.Index),
			Flipped:    pc.Flipped,
		}
		if pc.Flipped {
			c := pc.Card
			slot.Card = &c
		}
		v.Pyramid[i] = slot
	}

	for i, p := range t.Players {
		v.Players[i] = PlayerView{
			UserID:         p.UserID,
			Username:       p.Username,
			FirstName:      p.FirstName,
			CardCount:      len(p.Hand),
			DrinksReceived: p.DrinksReceived,
			TurnOrder:      p.TurnOrder,
			PassedCurrent:  p.PassedCurrent,
		}
	}

	if current, ok := t.CurrentCard(); ok {
		slot := v.Pyramid[g.CurrentCardIndex]
		v.CurrentCard = &slot
		if seated && g.Phase == PhasePyramid && !g.MatchingDone {
			for _, c := range me.Hand {
				if cards.SameRank(c, current.Card) {
					v.MatchableCards = append(v.MatchableCards, c)
				}
			}
		}
	}
	v.IsMyMatchTurn = seated && t.IsMatchTurn(userID)
	v.CanMatch = v.IsMyMatchTurn && len(v.MatchableCards) > 0

	return v, nil
}
