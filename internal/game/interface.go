// Package game holds what the Autobus and Kafanski Duel engines share:
// the error taxonomy, the injectable random source and the game registry
// used by the bot to present the available mini-apps.
package game

// Game describes a playable mini-app.
type Game interface {
	// Name returns the display name (e.g. "Autobus").
	Name() string

	// Command returns the bot command that opens the game (e.g. "autobus").
	Command() string

	// Description returns a one-line summary of the rules.
	Description() string

	// WebAppPath returns the path of the mini-app page relative to the
	// configured web app URL.
	WebAppPath() string

	// MinPlayers and MaxPlayers bound the table size.
	MinPlayers() int
	MaxPlayers() int
}
