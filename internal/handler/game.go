package handler

import (
	tele "gopkg.in/telebot.v3"

	"klovn-bot/internal/game"
)

// GameHandler handles /games.
type GameHandler struct {
	registry  *game.Registry
	webAppURL string
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(registry *game.Registry, webAppURL string) *GameHandler {
	return &GameHandler{registry: registry, webAppURL: webAppURL}
}

// HandleGames lists every registered game.
func (h *GameHandler) HandleGames(c tele.Context) error {
	games := h.registry.List()
	markup := gameButtons(c.Chat(), games, h.webAppURL)
	if markup == nil {
		return c.Reply(gamesText(games))
	}
	return c.Reply(gamesText(games), markup)
}
