// Package handler provides Telegram bot command handlers. The bot only
// opens games; playing happens in the mini-apps.
package handler

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"klovn-bot/internal/game"
	"klovn-bot/internal/game/autobus"
	"klovn-bot/internal/game/duel"
	"klovn-bot/internal/model"
	"klovn-bot/internal/repository"
)

// Callback data prefixes
const (
	CallbackAutobusJoin = "autobus_join:" // autobus_join:<game id>
	CallbackDuelAccept  = "duel_accept:"  // duel_accept:<duel id>
	CallbackDuelDecline = "duel_decline:" // duel_decline:<duel id>
)

// Accounts registers Telegram users.
type Accounts interface {
	EnsureUser(ctx context.Context, telegramID int64, username, firstName string) (*model.User, error)
}

// Handler-level failures.
var (
	errMissingReply = game.Validation("missing_reply")
	errBotOpponent  = game.Validation("bot_opponent")
)

// errorTexts are the chat replies for failures users commonly hit.
var errorTexts = []struct {
	err  error
	text string
}{
	{repository.ErrGameNotFound, "❌ That game no longer exists."},
	{autobus.ErrGameNotInLobby, "❌ That game has already started."},
	{autobus.ErrAlreadyJoined, "ℹ️ You are already in this game."},
	{autobus.ErrGameFull, "❌ The game is full."},
	{duel.ErrSelfChallenge, "❌ You can't challenge yourself."},
	{duel.ErrOpponentNotFound, "❌ That player hasn't opened the bot yet."},
	{duel.ErrDuelExists, "❌ You two already have a duel going!"},
	{repository.ErrDuelNotFound, "❌ That duel no longer exists."},
	{duel.ErrDuelNotWaiting, "❌ That duel was already answered."},
	{duel.ErrNotChallenged, "❌ This challenge isn't for you."},
	{errMissingReply, "↩️ Reply to someone's message with /duel to challenge them."},
	{errBotOpponent, "🤖 Bots don't drink."},
}

// errorText turns err into a chat reply.
func errorText(err error) string {
	for _, e := range errorTexts {
		if errors.Is(err, e.err) {
			return e.text
		}
	}
	if errors.Is(err, game.ErrValidation) || errors.Is(err, game.ErrForbidden) || errors.Is(err, game.ErrNotFound) {
		return "❌ " + game.Reason(err)
	}
	return "❌ Something went wrong, please try again later."
}

// ensureSender registers whoever sent the update.
func ensureSender(ctx context.Context, accounts Accounts, sender *tele.User) (*model.User, error) {
	return accounts.EnsureUser(ctx, sender.ID, sender.Username, sender.FirstName)
}

// webAppLink builds the mini-app URL for path with optional query values.
// It returns "" when no base URL is configured.
func webAppLink(base, path string, query url.Values) string {
	if base == "" {
		return ""
	}
	link := strings.TrimRight(base, "/") + path
	if len(query) > 0 {
		link += "?" + query.Encode()
	}
	return link
}

// openButton opens link as a mini-app in private chats. Groups can't host
// web app buttons, so they get a plain link.
func openButton(chat *tele.Chat, text, link string) tele.Btn {
	if chat != nil && chat.Type == tele.ChatPrivate {
		return tele.Btn{Text: text, WebApp: &tele.WebApp{URL: link}}
	}
	return tele.Btn{Text: text, URL: link}
}

// callbackID parses the id that follows prefix in callback data.
func callbackID(data, prefix string) (int64, bool) {
	data = strings.TrimPrefix(data, "\f")
	if !strings.HasPrefix(data, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// answer responds to a callback query, logging a failed response.
func answer(c tele.Context, text string) error {
	if err := c.Respond(&tele.CallbackResponse{Text: text}); err != nil {
		log.Warn().Err(err).Msg("Failed to answer callback")
	}
	return nil
}
