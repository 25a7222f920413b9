package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"klovn-bot/internal/game"
	"klovn-bot/internal/game/autobus"
	"klovn-bot/internal/game/cards"
	"klovn-bot/internal/model"
	"klovn-bot/internal/pkg/lock"
)

const (
	openLobbyLimit      = 10
	recentFinishedLimit = 5
	recentFinishedSince = 24 * time.Hour
)

// AutobusStore is the game persistence used by AutobusService.
type AutobusStore interface {
	Create(ctx context.Context, t autobus.Table) (autobus.Table, error)
	Get(ctx context.Context, gameID int64) (autobus.Table, error)
	AddPlayer(ctx context.Context, p autobus.Player) error
	Save(ctx context.Context, t autobus.Table) (autobus.Table, error)
	AppendLog(ctx context.Context, entries ...model.AutobusLogEntry) error
	RecentLog(ctx context.Context, gameID int64, limit int) ([]model.AutobusLogEntry, error)
	ListForUser(ctx context.Context, userID int64, statuses ...autobus.Status) ([]autobus.Table, error)
	ListOpenLobbies(ctx context.Context, userID int64, limit int) ([]autobus.Table, error)
	ListFinishedSince(ctx context.Context, userID int64, since time.Time, limit int) ([]autobus.Table, error)
}

// AutobusConfig holds AutobusService settings.
type AutobusConfig struct {
	MaxPlayers  int
	LockTimeout time.Duration
}

// AutobusService runs Autobus games. Every mutation of a game happens under
// that game's lock and is written with a single Save.
type AutobusService struct {
	games       AutobusStore
	locks       *lock.Keyed
	notifier    Notifier
	rand        game.Rand
	maxPlayers  int
	lockTimeout time.Duration
	now         func() time.Time
}

// NewAutobusService creates a new AutobusService instance.
func NewAutobusService(games AutobusStore, locks *lock.Keyed, notifier Notifier, cfg AutobusConfig, r game.Rand) *AutobusService {
	maxPlayers := autobus.Descriptor{Max: cfg.MaxPlayers}.MaxPlayers()
	return &AutobusService{
		games:       games,
		locks:       locks,
		notifier:    orNoop(notifier),
		rand:        game.OrDefault(r),
		maxPlayers:  maxPlayers,
		lockTimeout: cfg.LockTimeout,
		now:         time.Now,
	}
}

func playerFrom(u model.User) autobus.Player {
	return autobus.Player{
		UserID:    u.TelegramID,
		Username:  u.Username,
		FirstName: u.FirstName,
	}
}

// withGame runs fn under the game's lock with a freshly loaded table.
func (s *AutobusService) withGame(ctx context.Context, gameID int64, fn func(t autobus.Table) error) error {
	return s.locks.WithLockContext(ctx, lock.AutobusGame(gameID), s.lockTimeout, func() error {
		t, err := s.games.Get(ctx, gameID)
		if err != nil {
			return err
		}
		return fn(t)
	})
}

// Create opens a lobby with user as creator and first seat.
func (s *AutobusService) Create(ctx context.Context, user model.User) (autobus.Table, error) {
	t, err := s.games.Create(ctx, autobus.NewTable(playerFrom(user)))
	if err != nil {
		return autobus.Table{}, fmt.Errorf("failed to create game: %w", err)
	}

	log.Info().
		Int64("game_id", t.Game.ID).
		Int64("user_id", user.TelegramID).
		Msg("Autobus game created")
	return t, nil
}

// Join seats user in a lobby.
func (s *AutobusService) Join(ctx context.Context, gameID int64, user model.User) (autobus.Table, error) {
	var joined autobus.Table
	err := s.withGame(ctx, gameID, func(t autobus.Table) error {
		next, p, err := autobus.Join(t, playerFrom(user), s.maxPlayers)
		if err != nil {
			return err
		}
		if err := s.games.AddPlayer(ctx, p); err != nil {
			return err
		}
		joined = next
		return nil
	})
	if err != nil {
		s.logRejected(gameID, user.TelegramID, "join", err)
		return autobus.Table{}, err
	}

	log.Info().
		Int64("game_id", gameID).
		Int64("user_id", user.TelegramID).
		Int("players", len(joined.Players)).
		Msg("Player joined Autobus game")

	if joined.Game.CreatedBy != user.TelegramID {
		p, _ := joined.Player(user.TelegramID)
		s.notifier.Notify(joined.Game.CreatedBy,
			fmt.Sprintf("🚌 %s joined your Autobus game #%d (%d players)", p.DisplayName(), gameID, len(joined.Players)))
	}
	return joined, nil
}

// Start deals the cards. Only the creator may start.
func (s *AutobusService) Start(ctx context.Context, gameID, userID int64) (autobus.Table, error) {
	var started autobus.Table
	err := s.withGame(ctx, gameID, func(t autobus.Table) error {
		next, err := autobus.Start(t, userID, s.rand)
		if err != nil {
			return err
		}
		saved, err := s.games.Save(ctx, next)
		if err != nil {
			return fmt.Errorf("failed to save game: %w", err)
		}
		started = saved
		return nil
	})
	if err != nil {
		s.logRejected(gameID, userID, "start", err)
		return autobus.Table{}, err
	}

	log.Info().
		Int64("game_id", gameID).
		Int64("user_id", userID).
		Int("players", len(started.Players)).
		Int("deck", len(started.Game.Deck)).
		Msg("Autobus game started")

	for _, p := range started.Players {
		if p.UserID != userID {
			s.notifier.Notify(p.UserID, fmt.Sprintf("🚌 Autobus #%d has started! Check your hand.", gameID))
		}
	}
	return started, nil
}

// Flip turns the next pyramid card.
func (s *AutobusService) Flip(ctx context.Context, gameID, userID int64) (autobus.Outcome, error) {
	return s.act(ctx, gameID, userID, autobus.Action{Kind: autobus.ActionFlip})
}

// Match plays card from the user's hand onto the current pyramid card and
// hands its drinks to targetID.
func (s *AutobusService) Match(ctx context.Context, gameID, userID int64, card cards.Card, targetID int64) (autobus.Outcome, error) {
	return s.act(ctx, gameID, userID, autobus.Action{Kind: autobus.ActionMatch, Card: card, TargetID: targetID})
}

// Pass ends the user's matching turn.
func (s *AutobusService) Pass(ctx context.Context, gameID, userID int64) (autobus.Outcome, error) {
	return s.act(ctx, gameID, userID, autobus.Action{Kind: autobus.ActionPass})
}

// BusGuess guesses whether the next card is higher or lower.
func (s *AutobusService) BusGuess(ctx context.Context, gameID, userID int64, guess autobus.Guess) (autobus.Outcome, error) {
	return s.act(ctx, gameID, userID, autobus.Action{Kind: autobus.ActionBusGuess, Guess: guess})
}

func (s *AutobusService) act(ctx context.Context, gameID, userID int64, a autobus.Action) (autobus.Outcome, error) {
	var out autobus.Outcome
	err := s.withGame(ctx, gameID, func(t autobus.Table) error {
		next, o, err := autobus.Apply(t, userID, a)
		if err != nil {
			return err
		}
		if _, err := s.games.Save(ctx, next); err != nil {
			return fmt.Errorf("failed to save game: %w", err)
		}
		if err := s.games.AppendLog(ctx, logEntries(gameID, o.Events)...); err != nil {
			log.Error().Err(err).Int64("game_id", gameID).Msg("Failed to append Autobus log")
		}
		out = o
		return nil
	})
	if err != nil {
		s.logRejected(gameID, userID, string(a.Kind), err)
		return autobus.Outcome{}, err
	}

	log.Info().
		Int64("game_id", gameID).
		Int64("user_id", userID).
		Str("action", string(a.Kind)).
		Bool("round_closed", out.Transition.RoundClosed).
		Bool("bus_started", out.Transition.BusStarted).
		Bool("finished", out.Transition.Finished).
		Msg("Autobus action applied")

	for _, n := range out.Notices {
		s.notifier.Notify(n.UserID, n.Text)
	}
	return out, nil
}

func (s *AutobusService) logRejected(gameID, userID int64, action string, err error) {
	if reason := game.Reason(err); reason != "" {
		log.Debug().
			Int64("game_id", gameID).
			Int64("user_id", userID).
			Str("action", action).
			Str("reason", reason).
			Msg("Autobus action rejected")
		return
	}
	log.Error().Err(err).
		Int64("game_id", gameID).
		Int64("user_id", userID).
		Str("action", action).
		Msg("Autobus action failed")
}

func logEntries(gameID int64, events []autobus.Event) []model.AutobusLogEntry {
	entries := make([]model.AutobusLogEntry, len(events))
	for i, e := range events {
		entries[i] = model.AutobusLogEntry{
			GameID:       gameID,
			UserID:       e.UserID,
			ActionType:   string(e.Type),
			CardData:     e.Card,
			MatchedCard:  e.MatchedCard,
			TargetUserID: e.TargetUserID,
			DrinksGiven:  e.Drinks,
			BusGuess:     string(e.Guess),
			BusResult:    string(e.Result),
			FlavorText:   e.Text,
		}
	}
	return entries
}

// AutobusState is a game as one user sees it, with its recent history.
type AutobusState struct {
	autobus.StateView
	RecentLog []model.AutobusLogEntry `json:"recent_log"`
}

// State returns the game as userID sees it.
func (s *AutobusService) State(ctx context.Context, gameID, userID int64) (*AutobusState, error) {
	t, err := s.games.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	view, err := autobus.View(t, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.games.RecentLog(ctx, gameID, model.AutobusRecentLogLimit)
	if err != nil {
		return nil, err
	}
	return &AutobusState{StateView: view, RecentLog: entries}, nil
}

// LobbyGame summarizes a game for the lobby screen.
type LobbyGame struct {
	ID          int64                `json:"id"`
	Status      autobus.Status       `json:"status"`
	Phase       autobus.Phase        `json:"phase"`
	CreatedBy   int64                `json:"created_by"`
	CreatorName string               `json:"creator_name"`
	CreatedAt   time.Time            `json:"created_at"`
	FinishedAt  *time.Time           `json:"finished_at,omitempty"`
	PlayerCount int                  `json:"player_count"`
	Players     []autobus.PlayerView `json:"players"`
}

// AutobusLobby lists the games relevant to one user.
type AutobusLobby struct {
	MyID           int64       `json:"my_id"`
	MyGames        []LobbyGame `json:"my_games"`
	OpenGames      []LobbyGame `json:"open_games"`
	RecentFinished []LobbyGame `json:"recent_finished"`
}

// Lobby returns the user's open games, lobbies they can join and their
// games finished in the last day.
func (s *AutobusService) Lobby(ctx context.Context, userID int64) (*AutobusLobby, error) {
	mine, err := s.games.ListForUser(ctx, userID, autobus.StatusLobby, autobus.StatusActive)
	if err != nil {
		return nil, err
	}
	open, err := s.games.ListOpenLobbies(ctx, userID, openLobbyLimit)
	if err != nil {
		return nil, err
	}
	finished, err := s.games.ListFinishedSince(ctx, userID, s.now().Add(-recentFinishedSince), recentFinishedLimit)
	if err != nil {
		return nil, err
	}

	return &AutobusLobby{
		MyID:           userID,
		MyGames:        lobbyGames(mine),
		OpenGames:      lobbyGames(open),
		RecentFinished: lobbyGames(finished),
	}, nil
}

func lobbyGames(tables []autobus.Table) []LobbyGame {
	out := make([]LobbyGame, len(tables))
	for i, t := range tables {
		g := LobbyGame{
			ID:          t.Game.ID,
			Status:      t.Game.Status,
			Phase:       t.Game.Phase,
			CreatedBy:   t.Game.CreatedBy,
			CreatorName: "Klovn",
			CreatedAt:   t.Game.CreatedAt,
			FinishedAt:  t.Game.FinishedAt,
			PlayerCount: len(t.Players),
			Players:     make([]autobus.PlayerView, len(t.Players)),
		}
		for j, p := range t.Players {
			if p.UserID == t.Game.CreatedBy {
				g.CreatorName = p.DisplayName()
			}
			g.Players[j] = autobus.PlayerView{
				UserID:         p.UserID,
				Username:       p.Username,
				FirstName:      p.FirstName,
				CardCount:      len(p.Hand),
				DrinksReceived: p.DrinksReceived,
				TurnOrder:      p.TurnOrder,
				PassedCurrent:  p.PassedCurrent,
			}
		}
		out[i] = g
	}
	return out
}
