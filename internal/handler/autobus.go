package handler

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"klovn-bot/internal/game/autobus"
	"klovn-bot/internal/model"
)

// AutobusGames opens and fills Autobus lobbies.
type AutobusGames interface {
	Create(ctx context.Context, user model.User) (autobus.Table, error)
	Join(ctx context.Context, gameID int64, user model.User) (autobus.Table, error)
}

// AutobusHandler handles /autobus and its join button.
type AutobusHandler struct {
	accounts  Accounts
	games     AutobusGames
	webAppURL string
}

// NewAutobusHandler creates a new AutobusHandler.
func NewAutobusHandler(accounts Accounts, games AutobusGames, webAppURL string) *AutobusHandler {
	return &AutobusHandler{accounts: accounts, games: games, webAppURL: webAppURL}
}

// HandleAutobus opens a new lobby and posts a join button.
func (h *AutobusHandler) HandleAutobus(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx := context.Background()

	user, err := ensureSender(ctx, h.accounts, sender)
	if err != nil {
		return c.Reply(errorText(err))
	}
	t, err := h.games.Create(ctx, *user)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to open Autobus lobby")
		return c.Reply(errorText(err))
	}

	text := fmt.Sprintf(
		"🚌 %s opened Autobus #%d!\n\n"+
			"Tap Join to get on. The creator starts the game from the app.",
		user.DisplayName(), t.Game.ID,
	)
	return c.Reply(text, autobusMarkup(c.Chat(), t.Game.ID, h.webAppURL))
}

// HandleJoinCallback seats the user who tapped the join button.
func (h *AutobusHandler) HandleJoinCallback(c tele.Context) error {
	cb := c.Callback()
	sender := c.Sender()
	if cb == nil || sender == nil {
		return nil
	}
	gameID, ok := callbackID(cb.Data, CallbackAutobusJoin)
	if !ok {
		return answer(c, "❌ Unknown game")
	}
	ctx := context.Background()

	user, err := ensureSender(ctx, h.accounts, sender)
	if err != nil {
		return answer(c, errorText(err))
	}
	t, err := h.games.Join(ctx, gameID, *user)
	if err != nil {
		return answer(c, errorText(err))
	}
	return answer(c, fmt.Sprintf("🚌 You're in! %d players on board.", len(t.Players)))
}

func autobusMarkup(chat *tele.Chat, gameID int64, webAppURL string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	id := strconv.FormatInt(gameID, 10)
	row := tele.Row{markup.Data("🙋 Join", CallbackAutobusJoin+id)}
	if link := webAppLink(webAppURL, autobus.Descriptor{}.WebAppPath(), url.Values{"game": {id}}); link != "" {
		row = append(row, openButton(chat, "🎮 Open", link))
	}
	markup.Inline(row)
	return markup
}
