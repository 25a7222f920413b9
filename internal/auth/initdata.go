// Package auth verifies the init data Telegram passes to mini-apps.
package auth

import (
	"errors"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"

	"klovn-bot/internal/game"
)

// Verification failures. All of them are game.ErrUnauthorized.
var (
	ErrMissingInitData = game.Unauthorized("missing_init_data")
	ErrInvalidInitData = game.Unauthorized("invalid_init_data")
	ErrExpiredInitData = game.Unauthorized("init_data_expired")
	ErrMissingUser     = game.Unauthorized("missing_user")
)

// User is the Telegram account embedded in init data.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	LanguageCode string `json:"language_code"`
}

// InitData is verified mini-app launch data.
type InitData struct {
	User     User
	AuthDate time.Time
	QueryID  string
}

// Verifier checks init data signatures for one bot.
type Verifier struct {
	token  string
	maxAge time.Duration
}

// NewVerifier creates a Verifier for botToken. A zero maxAge accepts init
// data of any age.
func NewVerifier(botToken string, maxAge time.Duration) *Verifier {
	return &Verifier{token: botToken, maxAge: maxAge}
}

// Verify checks raw init data and returns its contents.
func (v *Verifier) Verify(raw string) (*InitData, error) {
	if raw == "" {
		return nil, ErrMissingInitData
	}
	if err := initdata.Validate(raw, v.token, v.maxAge); err != nil {
		return nil, validationError(err)
	}

	parsed, err := initdata.Parse(raw)
	if err != nil {
		return nil, ErrInvalidInitData
	}
	if parsed.User.ID == 0 {
		return nil, ErrMissingUser
	}

	data := &InitData{
		User: User{
			ID:           parsed.User.ID,
			Username:     parsed.User.Username,
			FirstName:    parsed.User.FirstName,
			LastName:     parsed.User.LastName,
			LanguageCode: parsed.User.LanguageCode,
		},
		QueryID: parsed.QueryID,
	}
	if parsed.AuthDateRaw > 0 {
		data.AuthDate = time.Unix(int64(parsed.AuthDateRaw), 0)
	}
	return data, nil
}

// validationError maps library failures onto the API's reason codes.
func validationError(err error) error {
	switch {
	case errors.Is(err, initdata.ErrExpired), errors.Is(err, initdata.ErrAuthDateMissing):
		return ErrExpiredInitData
	default:
		return ErrInvalidInitData
	}
}
