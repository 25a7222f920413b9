package duel

import "klovn-bot/internal/game"

var (
	ErrUnknownAction     = game.Validation("unknown_action")
	ErrInsufficientFunds = game.Validation("insufficient_funds")
	ErrSelfChallenge     = game.Validation("self_challenge")
	ErrDuelExists        = game.Validation("duel_already_exists")
	ErrOpponentNotFound  = game.NotFound("opponent_not_found")
	ErrDuelNotWaiting    = game.NotFound("duel_not_waiting")
	ErrNotChallenged     = game.Forbidden("not_challenged_player")
	ErrDuelNotActive     = game.Validation("duel_not_active")
	ErrNotYourTurn       = game.Validation("not_your_turn")
	ErrNotParticipant    = game.Forbidden("not_participant")
	ErrStateMissing      = game.NotFound("state_not_found")
)
