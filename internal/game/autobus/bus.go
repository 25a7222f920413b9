package autobus

import "klovn-bot/internal/game/cards"

// Guess is a bus prediction about the next card.
type Guess string

const (
	GuessHigher Guess = "higher"
	GuessLower  Guess = "lower"
)

// Valid reports whether g is a known guess.
func (g Guess) Valid() bool {
	return g == GuessHigher || g == GuessLower
}

// GuessResult grades a bus guess.
type GuessResult string

const (
	ResultCorrect GuessResult = "correct"
	ResultWrong   GuessResult = "wrong"
	ResultSame    GuessResult = "same"
)

// CheckBusGuess grades guess against the drawn card. Equal values are
// "same" and count as a miss.
func CheckBusGuess(current, next cards.Card, guess Guess) GuessResult {
	cv, nv := current.Value(), next.Value()
	switch {
	case nv == cv:
		return ResultSame
	case guess == GuessHigher && nv > cv:
		return ResultCorrect
	case guess == GuessLower && nv < cv:
		return ResultCorrect
	default:
		return ResultWrong
	}
}

// BusResult describes one guess on the bus.
type BusResult struct {
	PlayerID        int64       `json:"player_id"`
	Guess           Guess       `json:"guess"`
	Result          GuessResult `json:"result"`
	PreviousCard    cards.Card  `json:"previous_card"`
	NewCard         cards.Card  `json:"new_card"`
	Progress        int         `json:"progress"`
	PenaltyDrinks   int         `json:"penalty_drinks"`
	Exited          bool        `json:"exited"`
	NextBusPlayerID int64       `json:"next_bus_player_id,omitempty"`
	NextCard        *cards.Card `json:"next_card,omitempty"`
	GameOver        bool        `json:"game_over"`
}

// BusGuess draws the next card for the bus player. A correct guess moves
// them one step closer to the exit. A miss costs max(progress, 1) drinks and
// sends them back to the start. The drawn card becomes the card to beat.
func BusGuess(t Table, userID int64, guess Guess) (Table, BusResult, error) {
	g := t.Game
	if g.Status != StatusActive {
		return t, BusResult{}, ErrGameNotActive
	}
	if g.Phase != PhaseBus {
		return t, BusResult{}, ErrWrongPhase
	}
	if !guess.Valid() {
		return t, BusResult{}, ErrInvalidGuess
	}
	if g.BusPlayerID != userID {
		return t, BusResult{}, ErrNotBusPlayer
	}
	if g.BusCurrentCard == nil {
		return t, BusResult{}, ErrNoBusCard
	}
	if len(g.Deck) == 0 {
		return t, BusResult{}, ErrDeckEmpty
	}
	pi := t.PlayerIndex(userID)
	if pi < 0 {
		return t, BusResult{}, ErrNotInGame
	}

	next := t.Clone()
	ng := &next.Game
	previous := *ng.BusCurrentCard
	drawn := next.draw()

	res := BusResult{
		PlayerID:     userID,
		Guess:        guess,
		Result:       CheckBusGuess(previous, drawn, guess),
		PreviousCard: previous,
		NewCard:      drawn,
	}

	if res.Result == ResultCorrect {
		ng.BusProgress++
	} else {
		res.PenaltyDrinks = max(ng.BusProgress, 1)
		next.Players[pi].DrinksReceived += res.PenaltyDrinks
		ng.BusProgress = 0
	}
	current := drawn
	ng.BusCurrentCard = &current

	if ng.BusProgress >= BusLength {
		res.Exited = true
		if ng.BusQueueIndex+1 < len(ng.BusQueue) {
			ng.BusQueueIndex++
			ng.BusPlayerID = ng.BusQueue[ng.BusQueueIndex]
			ng.BusProgress = 0
			// An exhausted pile leaves the last drawn card in play.
			if len(ng.Deck) > 0 {
				fresh := next.draw()
				ng.BusCurrentCard = &fresh
			}
			res.NextBusPlayerID = ng.BusPlayerID
			c := *ng.BusCurrentCard
			res.NextCard = &c
		} else {
			next.finish()
			res.GameOver = true
		}
	}
	res.Progress = ng.BusProgress

	return next, res, nil
}
