package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"klovn-bot/internal/game"
)

// AccountHandler handles /start.
type AccountHandler struct {
	accounts  Accounts
	registry  *game.Registry
	webAppURL string
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts Accounts, registry *game.Registry, webAppURL string) *AccountHandler {
	return &AccountHandler{
		accounts:  accounts,
		registry:  registry,
		webAppURL: webAppURL,
	}
}

// HandleStart handles the /start command.
// Registers the user and offers a button per mini-app.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, err := ensureSender(context.Background(), h.accounts, sender)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to register user")
		return c.Reply(errorText(err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🤡 Welcome to Klovn, %s!\n\n", user.DisplayName())
	b.WriteString(gamesText(h.registry.List()))

	markup := gameButtons(c.Chat(), h.registry.List(), h.webAppURL)
	if markup == nil {
		return c.Reply(b.String())
	}
	return c.Reply(b.String(), markup)
}

// gamesText lists the games with their commands.
func gamesText(games []game.Game) string {
	if len(games) == 0 {
		return "No games available right now."
	}
	var b strings.Builder
	b.WriteString("🎮 Games:\n")
	for _, g := range games {
		fmt.Fprintf(&b, "/%s - %s (%s players)\n  %s\n", g.Command(), g.Name(), playerRange(g), g.Description())
	}
	return strings.TrimRight(b.String(), "\n")
}

func playerRange(g game.Game) string {
	if g.MinPlayers() == g.MaxPlayers() {
		return fmt.Sprintf("%d", g.MinPlayers())
	}
	return fmt.Sprintf("%d-%d", g.MinPlayers(), g.MaxPlayers())
}

// gameButtons returns one open button per game, or nil without a web app URL.
func gameButtons(chat *tele.Chat, games []game.Game, webAppURL string) *tele.ReplyMarkup {
	if webAppURL == "" || len(games) == 0 {
		return nil
	}
	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(games))
	for _, g := range games {
		link := webAppLink(webAppURL, g.WebAppPath(), nil)
		rows = append(rows, markup.Row(openButton(chat, "🎮 "+g.Name(), link)))
	}
	markup.Inline(rows...)
	return markup
}
