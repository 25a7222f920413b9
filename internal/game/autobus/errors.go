package autobus

import "klovn-bot/internal/game"

// Lobby failures.
var (
	ErrNoPlayers       = game.Validation("no_players")
	ErrDuplicatePlayer = game.Validation("duplicate_player")
	ErrNotEnoughCards  = game.Validation("not_enough_cards")
	ErrGameNotInLobby  = game.NotFound("game_not_in_lobby")
	ErrAlreadyJoined   = game.Validation("already_joined")
	ErrGameFull        = game.Validation("game_full")
	ErrNotCreator      = game.Forbidden("not_creator")
	ErrNotParticipant  = game.Forbidden("not_participant")
)

// Play failures.
var (
	ErrGameNotActive      = game.Validation("game_not_active")
	ErrWrongPhase         = game.Validation("wrong_phase")
	ErrNotInGame          = game.Forbidden("not_in_game")
	ErrMatchingInProgress = game.Validation("matching_in_progress")
	ErrAllFlipped         = game.Validation("all_cards_flipped")
	ErrMatchingClosed     = game.Validation("matching_closed")
	ErrNoCardFlipped      = game.Validation("no_card_flipped")
	ErrNotYourTurn        = game.Validation("not_your_turn")
	ErrCardNotInHand      = game.Validation("card_not_in_hand")
	ErrCardDoesNotMatch   = game.Validation("card_does_not_match")
	ErrTargetNotInGame    = game.Validation("target_not_in_game")
	ErrInvalidGuess       = game.Validation("invalid_guess")
	ErrNotBusPlayer       = game.Validation("not_bus_player")
	ErrNoBusCard          = game.Validation("no_bus_card")
	ErrDeckEmpty          = game.Validation("deck_empty")
	ErrUnknownAction      = game.Validation("unknown_action")
)
