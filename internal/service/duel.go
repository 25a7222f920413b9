package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"klovn-bot/internal/game"
	"klovn-bot/internal/game/duel"
	"klovn-bot/internal/model"
	"klovn-bot/internal/pkg/lock"
)

const opponentListLimit = 50

// DuelStore is the duel persistence used by DuelService.
type DuelStore interface {
	Create(ctx context.Context, s duel.Snapshot) (duel.Snapshot, error)
	Get(ctx context.Context, duelID int64) (duel.Snapshot, error)
	Save(ctx context.Context, s duel.Snapshot) (duel.Snapshot, error)
	Delete(ctx context.Context, duelID int64) error
	ExistsOpenBetween(ctx context.Context, a, b int64) (bool, error)
	AppendLog(ctx context.Context, e model.DuelLogEntry) error
	RecentLog(ctx context.Context, duelID int64, limit int) ([]model.DuelLogEntry, error)
	ListForUser(ctx context.Context, userID int64) ([]duel.Duel, error)
	ListFinishedSince(ctx context.Context, userID int64, since time.Time, limit int) ([]duel.Duel, error)
}

// DuelService runs Kafanski duels.
type DuelService struct {
	duels       DuelStore
	users       UserStore
	engine      *duel.Game
	locks       *lock.Keyed
	notifier    Notifier
	lockTimeout time.Duration
	now         func() time.Time
}

// NewDuelService creates a new DuelService instance.
func NewDuelService(duels DuelStore, users UserStore, engine *duel.Game, locks *lock.Keyed, notifier Notifier, lockTimeout time.Duration) *DuelService {
	return &DuelService{
		duels:       duels,
		users:       users,
		engine:      engine,
		locks:       locks,
		notifier:    orNoop(notifier),
		lockTimeout: lockTimeout,
		now:         time.Now,
	}
}

// Create challenges opponentID. At most one waiting or active duel may
// exist between two users.
func (s *DuelService) Create(ctx context.Context, challengerID, opponentID int64) (duel.Snapshot, error) {
	challenge, err := duel.NewDuel(challengerID, opponentID)
	if err != nil {
		return duel.Snapshot{}, err
	}

	exists, err := s.users.Exists(ctx, opponentID)
	if err != nil {
		return duel.Snapshot{}, err
	}
	if !exists {
		return duel.Snapshot{}, duel.ErrOpponentNotFound
	}

	var created duel.Snapshot
	keys := []lock.Key{lock.DuelUser(challengerID), lock.DuelUser(opponentID)}
	err = s.locks.WithLocksContext(ctx, keys, s.lockTimeout, func() error {
		open, err := s.duels.ExistsOpenBetween(ctx, challengerID, opponentID)
		if err != nil {
			return err
		}
		if open {
			return duel.ErrDuelExists
		}
		created, err = s.duels.Create(ctx, challenge)
		if err != nil {
			return fmt.Errorf("failed to create duel: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logRejected(0, challengerID, "create", err)
		return duel.Snapshot{}, err
	}

	log.Info().
		Int64("duel_id", created.Duel.ID).
		Int64("user_id", challengerID).
		Int64("opponent_id", opponentID).
		Msg("Duel created")

	s.notifier.Notify(opponentID, fmt.Sprintf("⚔️ %s challenged you to a Kafanski Duel!", s.displayName(ctx, challengerID)))
	return created, nil
}

// Accept starts a waiting duel. Only the challenged player may accept.
func (s *DuelService) Accept(ctx context.Context, duelID, userID int64) (duel.Duel, error) {
	var accepted duel.Duel
	err := s.withDuel(ctx, duelID, func(snap duel.Snapshot) error {
		d, err := duel.Accept(snap.Duel, userID)
		if err != nil {
			return err
		}
		snap.Duel = d
		saved, err := s.duels.Save(ctx, snap)
		if err != nil {
			return fmt.Errorf("failed to save duel: %w", err)
		}
		accepted = saved.Duel
		return nil
	})
	if err != nil {
		s.logRejected(duelID, userID, "accept", err)
		return duel.Duel{}, err
	}

	log.Info().Int64("duel_id", duelID).Int64("user_id", userID).Msg("Duel accepted")
	s.notifier.Notify(accepted.Player1ID, "🍻 Your duel challenge was accepted. Your move!")
	return accepted, nil
}

// Decline turns a challenge down and deletes it.
func (s *DuelService) Decline(ctx context.Context, duelID, userID int64) error {
	var challenger int64
	err := s.withDuel(ctx, duelID, func(snap duel.Snapshot) error {
		if err := duel.Decline(snap.Duel, userID); err != nil {
			return err
		}
		challenger = snap.Duel.Player1ID
		return s.duels.Delete(ctx, duelID)
	})
	if err != nil {
		s.logRejected(duelID, userID, "decline", err)
		return err
	}

	log.Info().Int64("duel_id", duelID).Int64("user_id", userID).Msg("Duel declined")
	s.notifier.Notify(challenger, "🙅 Your duel challenge was declined.")
	return nil
}

// Act plays an action from the catalog for userID.
func (s *DuelService) Act(ctx context.Context, duelID, userID int64, key string) (duel.Outcome, error) {
	var out duel.Outcome
	err := s.withDuel(ctx, duelID, func(snap duel.Snapshot) error {
		next, o, err := s.engine.Apply(snap, userID, key)
		if err != nil {
			return err
		}
		if _, err := s.duels.Save(ctx, next); err != nil {
			return fmt.Errorf("failed to save duel: %w", err)
		}
		entry := model.DuelLogEntry{
			DuelID:     duelID,
			UserID:     o.Log.UserID,
			TurnNumber: o.Log.TurnNumber,
			ActionType: o.Log.ActionType,
			FlavorText: o.Log.FlavorText,
		}
		if err := s.duels.AppendLog(ctx, entry); err != nil {
			log.Error().Err(err).Int64("duel_id", duelID).Msg("Failed to append duel log")
		}
		out = o
		return nil
	})
	if err != nil {
		s.logRejected(duelID, userID, key, err)
		return duel.Outcome{}, err
	}

	log.Info().
		Int64("duel_id", duelID).
		Int64("user_id", userID).
		Str("action", key).
		Int("turn", out.NewState.TurnNumber).
		Bool("game_over", out.GameOver).
		Int64("winner_id", out.WinnerID).
		Msg("Duel action applied")

	for _, n := range out.Notices {
		s.notifier.Notify(n.UserID, n.Text)
	}
	return out, nil
}

func (s *DuelService) withDuel(ctx context.Context, duelID int64, fn func(snap duel.Snapshot) error) error {
	return s.locks.WithLockContext(ctx, lock.Duel(duelID), s.lockTimeout, func() error {
		snap, err := s.duels.Get(ctx, duelID)
		if err != nil {
			return err
		}
		return fn(snap)
	})
}

func (s *DuelService) logRejected(duelID, userID int64, action string, err error) {
	if reason := game.Reason(err); reason != "" {
		log.Debug().
			Int64("duel_id", duelID).
			Int64("user_id", userID).
			Str("action", action).
			Str("reason", reason).
			Msg("Duel action rejected")
		return
	}
	log.Error().Err(err).
		Int64("duel_id", duelID).
		Int64("user_id", userID).
		Str("action", action).
		Msg("Duel action failed")
}

func (s *DuelService) displayName(ctx context.Context, userID int64) string {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "Klovn"
	}
	return u.DisplayName()
}

// DuelState is a duel as one participant sees it.
type DuelState struct {
	duel.StateView
	Names     map[int64]string     `json:"names"`
	RecentLog []model.DuelLogEntry `json:"recent_log"`
}

// State returns the duel as userID sees it.
func (s *DuelService) State(ctx context.Context, duelID, userID int64) (*DuelState, error) {
	snap, err := s.duels.Get(ctx, duelID)
	if err != nil {
		return nil, err
	}
	view, err := s.engine.View(snap, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.duels.RecentLog(ctx, duelID, model.DuelRecentLogLimit)
	if err != nil {
		return nil, err
	}
	names, err := s.names(ctx, []duel.Duel{snap.Duel})
	if err != nil {
		return nil, err
	}
	return &DuelState{StateView: view, Names: names, RecentLog: entries}, nil
}

// DuelSummary is a duel listed with both players' names.
type DuelSummary struct {
	duel.Duel
	Player1Name string `json:"player1_name"`
	Player2Name string `json:"player2_name"`
}

// DuelOverview lists the duels relevant to one user.
type DuelOverview struct {
	MyID           int64         `json:"my_id"`
	Active         []DuelSummary `json:"active"`
	RecentFinished []DuelSummary `json:"recent_finished"`
	Opponents      []*model.User `json:"opponents"`
}

// Active returns the user's waiting and active duels, duels finished in the
// last day and the users they could challenge.
func (s *DuelService) Active(ctx context.Context, userID int64) (*DuelOverview, error) {
	active, err := s.duels.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	finished, err := s.duels.ListFinishedSince(ctx, userID, s.now().Add(-recentFinishedSince), recentFinishedLimit)
	if err != nil {
		return nil, err
	}
	opponents, err := s.users.ListOthers(ctx, userID, opponentListLimit)
	if err != nil {
		return nil, err
	}
	names, err := s.names(ctx, append(append([]duel.Duel{}, active...), finished...))
	if err != nil {
		return nil, err
	}

	return &DuelOverview{
		MyID:           userID,
		Active:         summarize(active, names),
		RecentFinished: summarize(finished, names),
		Opponents:      opponents,
	}, nil
}

func (s *DuelService) names(ctx context.Context, duels []duel.Duel) (map[int64]string, error) {
	var ids []int64
	for _, d := range duels {
		ids = append(ids, d.Player1ID, d.Player2ID)
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			names[id] = u.DisplayName()
		} else {
			names[id] = "Klovn"
		}
	}
	return names, nil
}

func summarize(duels []duel.Duel, names map[int64]string) []DuelSummary {
	out := make([]DuelSummary, len(duels))
	for i, d := range duels {
		out[i] = DuelSummary{Duel: d, Player1Name: names[d.Player1ID], Player2Name: names[d.Player2ID]}
	}
	return out
}
