// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"klovn-bot/internal/config"
	"klovn-bot/internal/game"
	"klovn-bot/internal/handler"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	accountHandler *handler.AccountHandler
	gameHandler    *handler.GameHandler
	autobusHandler *handler.AutobusHandler
	duelHandler    *handler.DuelHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config       *config.Config
	Accounts     handler.Accounts
	Autobus      handler.AutobusGames
	Duels        handler.Duels
	GameRegistry *game.Registry
}

// NewTelebot creates the telebot client. It is separate from New so the
// notification sender can share the client before handlers exist.
func NewTelebot(token string) (*tele.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	teleBot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return teleBot, nil
}

// New wires handlers and middleware onto teleBot.
func New(teleBot *tele.Bot, deps *Dependencies) *Bot {
	webAppURL := deps.Config.Bot.WebAppURL

	b := &Bot{
		bot:            teleBot,
		cfg:            deps.Config,
		accountHandler: handler.NewAccountHandler(deps.Accounts, deps.GameRegistry, webAppURL),
		gameHandler:    handler.NewGameHandler(deps.GameRegistry, webAppURL),
		autobusHandler: handler.NewAutobusHandler(deps.Accounts, deps.Autobus, webAppURL),
		duelHandler:    handler.NewDuelHandler(deps.Accounts, deps.Duels, webAppURL),
	}

	b.registerMiddleware()
	b.registerHandlers()
	return b
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/games", b.gameHandler.HandleGames)
	b.bot.Handle("/autobus", b.autobusHandler.HandleAutobus)
	b.bot.Handle("/duel", b.duelHandler.HandleDuel)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes callbacks to appropriate handlers
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 prefixes unique button data with \f
	data := strings.TrimPrefix(callback.Data, "\f")
	log.Debug().Str("data", data).Msg("Callback received")

	switch {
	case strings.HasPrefix(data, handler.CallbackAutobusJoin):
		return b.autobusHandler.HandleJoinCallback(c)
	case strings.HasPrefix(data, handler.CallbackDuelAccept):
		return b.duelHandler.HandleAcceptCallback(c)
	case strings.HasPrefix(data, handler.CallbackDuelDecline):
		return b.duelHandler.HandleDeclineCallback(c)
	default:
		return c.Respond()
	}
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
