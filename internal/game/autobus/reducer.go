package autobus

import (
	"fmt"

	"klovn-bot/internal/game/cards"
)

// ActionKind selects a player move.
type ActionKind string

const (
	ActionFlip     ActionKind = "flip"
	ActionMatch    ActionKind = "match"
	ActionPass     ActionKind = "pass"
	ActionBusGuess ActionKind = "bus_guess"
)

// Action is a player move submitted to Apply.
type Action struct {
	Kind     ActionKind
	Card     cards.Card
	TargetID int64
	Guess    Guess
}

// EventType names a log entry.
type EventType string

const (
	EventFlipCard     EventType = "flip_card"
	EventMatchCard    EventType = "match_card"
	EventPass         EventType = "pass"
	EventBusStart     EventType = "bus_start"
	EventBusGuess     EventType = "bus_guess"
	EventBusExit      EventType = "bus_exit"
	EventGameFinished EventType = "game_finished"
)

// Event is a log entry produced by a move.
type Event struct {
	Type         EventType
	UserID       int64
	Card         *cards.Card
	MatchedCard  *cards.Card
	TargetUserID int64
	Drinks       int
	Guess        Guess
	Result       GuessResult
	Text         string
}

// Notice asks the caller to tell a player it is their move.
type Notice struct {
	UserID int64
	Text   string
}

// Outcome carries everything a move produced besides the new table.
type Outcome struct {
	Kind       ActionKind   `json:"kind"`
	Flip       *FlipResult  `json:"flip,omitempty"`
	Match      *MatchResult `json:"match,omitempty"`
	Bus        *BusResult   `json:"bus,omitempty"`
	Transition Transition   `json:"transition"`
	Events     []Event      `json:"-"`
	Notices    []Notice     `json:"-"`
}

// Apply validates and applies a move, returning the next table and its side
// effects. On error the input table is returned unchanged.
func Apply(t Table, userID int64, a Action) (Table, Outcome, error) {
	out := Outcome{Kind: a.Kind}
	actor, _ := t.Player(userID)

	switch a.Kind {
	case ActionFlip:
		next, res, err := Flip(t, userID)
		if err != nil {
			return t, Outcome{}, err
		}
		out.Flip = &res
		c := res.Card.Card
		out.Events = append(out.Events, Event{
			Type:   EventFlipCard,
			UserID: userID,
			Card:   &c,
			Drinks: res.DrinkValue,
			Text: fmt.Sprintf("%s flipped %s (row %d, %d %s)",
				actor.DisplayName(), c, res.Row, res.DrinkValue, drinksWord(res.DrinkValue)),
		})
		out.Notices = append(out.Notices, matchTurnNotice(next)...)
		return next, out, nil

	case ActionMatch:
		next, res, err := Match(t, userID, a.Card, a.TargetID)
		if err != nil {
			return t, Outcome{}, err
		}
		out.Match = &res
		out.Transition = res.Transition
		target, _ := next.Player(a.TargetID)
		played, onto := res.Played, res.Pyramid.Card
		out.Events = append(out.Events, Event{
			Type:         EventMatchCard,
			UserID:       userID,
			Card:         &played,
			MatchedCard:  &onto,
			TargetUserID: a.TargetID,
			Drinks:       res.DrinksGiven,
			Text: fmt.Sprintf("%s matched %s and gave %s %d %s",
				actor.DisplayName(), played, target.DisplayName(), res.DrinksGiven, drinksWord(res.DrinksGiven)),
		})
		if a.TargetID != userID {
			out.Notices = append(out.Notices, Notice{
				UserID: a.TargetID,
				Text:   fmt.Sprintf("🍺 %s gave you %d %s!", actor.DisplayName(), res.DrinksGiven, drinksWord(res.DrinksGiven)),
			})
		}
		out.afterRound(next, res.Transition)
		return next, out, nil

	case ActionPass:
		next, tr, err := Pass(t, userID)
		if err != nil {
			return t, Outcome{}, err
		}
		out.Transition = tr
		out.Events = append(out.Events, Event{
			Type:   EventPass,
			UserID: userID,
			Text:   fmt.Sprintf("%s passed", actor.DisplayName()),
		})
		out.afterRound(next, tr)
		return next, out, nil

	case ActionBusGuess:
		next, res, err := BusGuess(t, userID, a.Guess)
		if err != nil {
			return t, Outcome{}, err
		}
		out.Bus = &res
		c := res.NewCard
		text := fmt.Sprintf("%s guessed %s: %s → %s, %s", actor.DisplayName(), res.Guess, res.PreviousCard, res.NewCard, res.Result)
		if res.PenaltyDrinks > 0 {
			text += fmt.Sprintf(", drinks %d", res.PenaltyDrinks)
		}
		out.Events = append(out.Events, Event{
			Type:   EventBusGuess,
			UserID: userID,
			Card:   &c,
			Drinks: res.PenaltyDrinks,
			Guess:  res.Guess,
			Result: res.Result,
			Text:   text,
		})
		if res.Exited {
			out.Events = append(out.Events, Event{
				Type:   EventBusExit,
				UserID: userID,
				Text:   fmt.Sprintf("%s got off the bus!", actor.DisplayName()),
			})
		}
		switch {
		case res.GameOver:
			out.Events = append(out.Events, finishedEvent())
			out.Notices = append(out.Notices, finishedNotices(next, userID)...)
		case res.NextBusPlayerID != 0:
			out.Notices = append(out.Notices, Notice{
				UserID: res.NextBusPlayerID,
				Text:   "🚌 Your turn on the bus!",
			})
		}
		return next, out, nil
	}

	return t, Outcome{}, ErrUnknownAction
}

// afterRound records the consequences of a closed matching round, or
// notifies the next player in line.
func (o *Outcome) afterRound(next Table, tr Transition) {
	switch {
	case tr.BusStarted:
		names := make([]string, 0, len(tr.BusQueue))
		for _, id := range tr.BusQueue {
			p, _ := next.Player(id)
			names = append(names, p.DisplayName())
		}
		o.Events = append(o.Events, Event{
			Type:   EventBusStart,
			UserID: tr.BusPlayerID,
			Card:   tr.BusCard,
			Text:   fmt.Sprintf("The bus leaves with %v aboard", names),
		})
		o.Notices = append(o.Notices, Notice{
			UserID: tr.BusPlayerID,
			Text:   "🚌 You're on the bus! Guess higher or lower.",
		})
	case tr.Finished:
		o.Events = append(o.Events, finishedEvent())
		o.Notices = append(o.Notices, finishedNotices(next, 0)...)
	case tr.RoundClosed:
		// The next flip is open to anyone.
	default:
		o.Notices = append(o.Notices, matchTurnNotice(next)...)
	}
}

func matchTurnNotice(t Table) []Notice {
	for _, p := range t.Players {
		if p.TurnOrder == t.Game.MatchTurnIndex {
			return []Notice{{UserID: p.UserID, Text: "🃏 Your turn to match or pass!"}}
		}
	}
	return nil
}

func finishedEvent() Event {
	return Event{Type: EventGameFinished, Text: "Game over!"}
}

func finishedNotices(t Table, skip int64) []Notice {
	var ns []Notice
	for _, p := range t.Players {
		if p.UserID == skip {
			continue
		}
		ns = append(ns, Notice{UserID: p.UserID, Text: "🏁 Autobus is over!"})
	}
	return ns
}

func drinksWord(n int) string {
	if n == 1 {
		return "drink"
	}
	return "drinks"
}
