package handler

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"klovn-bot/internal/game/duel"
)

// Duels creates and answers duel challenges.
type Duels interface {
	Create(ctx context.Context, challengerID, opponentID int64) (duel.Snapshot, error)
	Accept(ctx context.Context, duelID, userID int64) (duel.Duel, error)
	Decline(ctx context.Context, duelID, userID int64) error
}

// DuelHandler handles /duel and the accept and decline buttons.
type DuelHandler struct {
	accounts  Accounts
	duels     Duels
	webAppURL string
}

// NewDuelHandler creates a new DuelHandler.
func NewDuelHandler(accounts Accounts, duels Duels, webAppURL string) *DuelHandler {
	return &DuelHandler{accounts: accounts, duels: duels, webAppURL: webAppURL}
}

// HandleDuel challenges the author of the replied-to message.
func (h *DuelHandler) HandleDuel(c tele.Context) error {
	sender := c.Sender()
	msg := c.Message()
	if sender == nil || msg == nil {
		return nil
	}
	if msg.ReplyTo == nil || msg.ReplyTo.Sender == nil {
		return c.Reply(errorText(errMissingReply))
	}
	target := msg.ReplyTo.Sender
	if target.IsBot {
		return c.Reply(errorText(errBotOpponent))
	}
	ctx := context.Background()

	user, err := ensureSender(ctx, h.accounts, sender)
	if err != nil {
		return c.Reply(errorText(err))
	}
	snap, err := h.duels.Create(ctx, sender.ID, target.ID)
	if err != nil {
		return c.Reply(errorText(err))
	}

	log.Info().
		Int64("duel_id", snap.Duel.ID).
		Int64("chat_id", c.Chat().ID).
		Msg("Duel challenge posted")

	text := fmt.Sprintf("⚔️ %s challenged %s to a Kafanski Duel!", user.DisplayName(), displayName(target))
	return c.Reply(text, duelMarkup(c.Chat(), snap.Duel.ID, h.webAppURL))
}

// HandleAcceptCallback accepts the challenge behind the button.
func (h *DuelHandler) HandleAcceptCallback(c tele.Context) error {
	duelID, ok := h.callbackDuel(c, CallbackDuelAccept)
	if !ok {
		return answer(c, "❌ Unknown duel")
	}
	if _, err := h.duels.Accept(context.Background(), duelID, c.Sender().ID); err != nil {
		return answer(c, errorText(err))
	}

	text := fmt.Sprintf("🍻 Duel #%d accepted by %s! The challenger moves first.", duelID, displayName(c.Sender()))
	var opts []interface{}
	if link := duelLink(duelID, h.webAppURL); link != "" {
		markup := &tele.ReplyMarkup{}
		markup.Inline(tele.Row{openButton(c.Chat(), "🎮 Open", link)})
		opts = append(opts, markup)
	}
	if err := c.Edit(text, opts...); err != nil {
		log.Warn().Err(err).Int64("duel_id", duelID).Msg("Failed to edit duel message")
	}
	return answer(c, "🍻 Živeli!")
}

// HandleDeclineCallback declines the challenge behind the button.
func (h *DuelHandler) HandleDeclineCallback(c tele.Context) error {
	duelID, ok := h.callbackDuel(c, CallbackDuelDecline)
	if !ok {
		return answer(c, "❌ Unknown duel")
	}
	if err := h.duels.Decline(context.Background(), duelID, c.Sender().ID); err != nil {
		return answer(c, errorText(err))
	}

	if err := c.Edit(fmt.Sprintf("🙅 %s declined the duel.", displayName(c.Sender()))); err != nil {
		log.Warn().Err(err).Int64("duel_id", duelID).Msg("Failed to edit duel message")
	}
	return answer(c, "🙅 Declined")
}

func (h *DuelHandler) callbackDuel(c tele.Context, prefix string) (int64, bool) {
	cb := c.Callback()
	if cb == nil || c.Sender() == nil {
		return 0, false
	}
	return callbackID(cb.Data, prefix)
}

func displayName(u *tele.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "Klovn"
}

func duelLink(duelID int64, webAppURL string) string {
	return webAppLink(webAppURL, (&duel.Game{}).WebAppPath(), url.Values{"duel": {strconv.FormatInt(duelID, 10)}})
}

func duelMarkup(chat *tele.Chat, duelID int64, webAppURL string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	id := strconv.FormatInt(duelID, 10)
	row := tele.Row{
		markup.Data("✅ Accept", CallbackDuelAccept+id),
		markup.Data("🙅 Decline", CallbackDuelDecline+id),
	}
	if link := duelLink(duelID, webAppURL); link != "" {
		row = append(row, openButton(chat, "🎮 Open", link))
	}
	markup.Inline(row)
	return markup
}
