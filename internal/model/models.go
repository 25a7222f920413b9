// Package model defines the persisted rows that are not engine state.
package model

import (
	"time"

	"klovn-bot/internal/game/cards"
)

// User is a Telegram account that has opened the bot or a mini-app.
type User struct {
	TelegramID int64     `db:"telegram_id" json:"telegram_id"`
	Username   string    `db:"username" json:"username"`
	FirstName  string    `db:"first_name" json:"first_name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName returns the name shown to other players.
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "Klovn"
}

// AutobusLogEntry is one line of an Autobus game's history.
type AutobusLogEntry struct {
	ID           int64       `db:"id" json:"id"`
	GameID       int64       `db:"game_id" json:"game_id"`
	UserID       int64       `db:"user_id" json:"user_id"`
	ActionType   string      `db:"action_type" json:"action_type"`
	CardData     *cards.Card `db:"card_data" json:"card_data,omitempty"`
	MatchedCard  *cards.Card `db:"matched_card" json:"matched_card,omitempty"`
	TargetUserID int64       `db:"target_user_id" json:"target_user_id,omitempty"` // 0 when none
	DrinksGiven  int         `db:"drinks_given" json:"drinks_given"`
	BusGuess     string      `db:"bus_guess" json:"bus_guess,omitempty"`
	BusResult    string      `db:"bus_result" json:"bus_result,omitempty"`
	FlavorText   string      `db:"flavor_text" json:"flavor_text"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

// DuelLogEntry is one action taken in a duel.
type DuelLogEntry struct {
	ID         int64     `db:"id" json:"id"`
	DuelID     int64     `db:"duel_id" json:"duel_id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	TurnNumber int       `db:"turn_number" json:"turn_number"`
	ActionType string    `db:"action_type" json:"action_type"`
	FlavorText string    `db:"flavor_text" json:"flavor_text"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Log sizes returned with game state.
const (
	AutobusRecentLogLimit = 20
	DuelRecentLogLimit    = 10
)
