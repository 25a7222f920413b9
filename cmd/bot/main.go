// Package main is the entry point for the Klovn bot and its mini-app API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"klovn-bot/internal/api"
	"klovn-bot/internal/auth"
	"klovn-bot/internal/bot"
	"klovn-bot/internal/config"
	"klovn-bot/internal/game"
	"klovn-bot/internal/game/autobus"
	"klovn-bot/internal/game/duel"
	"klovn-bot/internal/notify"
	"klovn-bot/internal/pkg/db"
	"klovn-bot/internal/pkg/lock"
	"klovn-bot/internal/repository"
	"klovn-bot/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg.Log)

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	autobusRepo := repository.NewAutobusRepository(dbPool.Pool)
	duelRepo := repository.NewDuelRepository(dbPool.Pool)

	// The notification sender shares the bot's client
	teleBot, err := bot.NewTelebot(cfg.Bot.Token)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	var notifier service.Notifier
	var debouncer *notify.Debouncer
	if cfg.Notify.Enabled {
		debouncer = notify.NewDebouncer(notify.NewTelegramSender(teleBot), cfg.Notify.Debounce)
		notifier = debouncer
	}

	// Initialize games and services
	locks := lock.NewKeyed()
	autobusGame := autobus.Descriptor{Max: cfg.Autobus.MaxPlayers}
	duelGame := duel.New(&duel.Config{MaxTurns: cfg.Duel.MaxTurns}, nil)

	gameRegistry := game.NewRegistry()
	for _, g := range []game.Game{autobusGame, duelGame} {
		if err := gameRegistry.Register(g); err != nil {
			log.Fatal().Err(err).Str("game", g.Name()).Msg("Failed to register game")
		}
	}
	log.Info().
		Int("game_count", gameRegistry.Count()).
		Strs("games", gameRegistry.Commands()).
		Msg("Games registered")

	accountService := service.NewAccountService(userRepo)
	autobusService := service.NewAutobusService(autobusRepo, locks, notifier, service.AutobusConfig{
		MaxPlayers:  autobusGame.MaxPlayers(),
		LockTimeout: cfg.Locks.Timeout,
	}, nil)
	duelService := service.NewDuelService(duelRepo, userRepo, duelGame, locks, notifier, cfg.Locks.Timeout)

	// HTTP API for the mini-apps
	handler := api.New(
		autobusService,
		duelService,
		accountService,
		auth.NewVerifier(cfg.Bot.Token, cfg.Auth.MaxAge),
		dbPool,
		api.Options{AllowedOrigin: cfg.Server.AllowedOrigin},
	)
	server := api.NewServer(cfg.Server.Addr, handler.Routes(), cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("HTTP API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	// Telegram bot
	telegramBot := bot.New(teleBot, &bot.Dependencies{
		Config:       cfg,
		Accounts:     accountService,
		Autobus:      autobusService,
		Duels:        duelService,
		GameRegistry: gameRegistry,
	})
	go telegramBot.Start()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	telegramBot.Stop()
	if debouncer != nil {
		debouncer.Stop()
	}
	log.Info().Msg("Stopped gracefully")
}

// setupLogging configures the global zerolog logger.
func setupLogging(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
