package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"klovn-bot/internal/game/duel"
	"klovn-bot/internal/model"
)

// DuelRepository persists duels, both duelists' gauges and the action log.
type DuelRepository struct {
	pool *pgxpool.Pool
}

// NewDuelRepository creates a new DuelRepository instance.
func NewDuelRepository(pool *pgxpool.Pool) *DuelRepository {
	return &DuelRepository{pool: pool}
}

const duelColumns = `id, player1_id, player2_id, status, winner_id, current_turn_user, created_at, finished_at`

const stateColumns = `duel_id, user_id, alcometer, respect, stomak, novcanik, turn_number, pijani_foulovi`

func scanDuel(row pgx.Row) (duel.Duel, error) {
	var d duel.Duel
	var status string
	err := row.Scan(&d.ID, &d.Player1ID, &d.Player2ID, &status, &d.WinnerID, &d.CurrentTurnUser, &d.CreatedAt, &d.FinishedAt)
	d.Status = duel.Status(status)
	return d, err
}

func scanState(row pgx.Row) (duel.PlayerState, error) {
	var s duel.PlayerState
	err := row.Scan(&s.DuelID, &s.UserID, &s.Alcometer, &s.Respect, &s.Stomak, &s.Novcanik, &s.TurnNumber, &s.PijaniFoulovi)
	return s, err
}

// Create inserts a challenge and both players' initial gauges.
func (r *DuelRepository) Create(ctx context.Context, s duel.Snapshot) (duel.Snapshot, error) {
	next := s
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		d := &next.Duel
		const query = `
			INSERT INTO kafanski_duels (player1_id, player2_id, status, winner_id, current_turn_user)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at`
		err := tx.QueryRow(ctx, query, d.Player1ID, d.Player2ID, string(d.Status), d.WinnerID, d.CurrentTurnUser).
			Scan(&d.ID, &d.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert duel: %w", err)
		}

		next.Player1.DuelID = d.ID
		next.Player2.DuelID = d.ID
		for _, st := range []duel.PlayerState{next.Player1, next.Player2} {
			if err := upsertState(ctx, tx, st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return duel.Snapshot{}, err
	}
	return next, nil
}

// Get loads a duel with both players' gauges.
// Returns ErrDuelNotFound if the duel does not exist.
func (r *DuelRepository) Get(ctx context.Context, duelID int64) (duel.Snapshot, error) {
	query := `SELECT ` + duelColumns + ` FROM kafanski_duels WHERE id = $1`

	d, err := scanDuel(r.pool.QueryRow(ctx, query, duelID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return duel.Snapshot{}, ErrDuelNotFound
		}
		return duel.Snapshot{}, fmt.Errorf("failed to get duel: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+stateColumns+` FROM duel_player_state WHERE duel_id = $1`, duelID)
	if err != nil {
		return duel.Snapshot{}, fmt.Errorf("failed to get duel state: %w", err)
	}
	defer rows.Close()

	snap := duel.Snapshot{Duel: d}
	found := 0
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return duel.Snapshot{}, fmt.Errorf("failed to scan duel state: %w", err)
		}
		switch st.UserID {
		case d.Player1ID:
			snap.Player1 = st
			found++
		case d.Player2ID:
			snap.Player2 = st
			found++
		}
	}
	if err := rows.Err(); err != nil {
		return duel.Snapshot{}, fmt.Errorf("error iterating duel state: %w", err)
	}
	if found < 2 {
		return duel.Snapshot{}, duel.ErrStateMissing
	}
	return snap, nil
}

// Save writes the duel row and both gauges in one transaction.
// The returned snapshot carries finished_at once the duel has finished.
func (r *DuelRepository) Save(ctx context.Context, s duel.Snapshot) (duel.Snapshot, error) {
	next := s
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		d := &next.Duel
		const query = `
			UPDATE kafanski_duels SET
				status = $2, winner_id = $3, current_turn_user = $4,
				finished_at = CASE
					WHEN $2::text = 'finished' AND finished_at IS NULL THEN NOW()
					ELSE finished_at
				END
			WHERE id = $1
			RETURNING finished_at`
		err := tx.QueryRow(ctx, query, d.ID, string(d.Status), d.WinnerID, d.CurrentTurnUser).Scan(&d.FinishedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrDuelNotFound
			}
			return fmt.Errorf("failed to save duel: %w", err)
		}

		for _, st := range []duel.PlayerState{next.Player1, next.Player2} {
			st.DuelID = d.ID
			if err := upsertState(ctx, tx, st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return duel.Snapshot{}, err
	}
	return next, nil
}

func upsertState(ctx context.Context, q querier, s duel.PlayerState) error {
	const query = `
		INSERT INTO duel_player_state (` + stateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (duel_id, user_id) DO UPDATE SET
			alcometer = EXCLUDED.alcometer,
			respect = EXCLUDED.respect,
			stomak = EXCLUDED.stomak,
			novcanik = EXCLUDED.novcanik,
			turn_number = EXCLUDED.turn_number,
			pijani_foulovi = EXCLUDED.pijani_foulovi`

	_, err := q.Exec(ctx, query, s.DuelID, s.UserID, s.Alcometer, s.Respect, s.Stomak, s.Novcanik, s.TurnNumber, s.PijaniFoulovi)
	if err != nil {
		return fmt.Errorf("failed to save duel state for %d: %w", s.UserID, err)
	}
	return nil
}

// Delete removes a duel together with its gauges and log.
func (r *DuelRepository) Delete(ctx context.Context, duelID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM kafanski_duels WHERE id = $1`, duelID)
	if err != nil {
		return fmt.Errorf("failed to delete duel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuelNotFound
	}
	return nil
}

// ExistsOpenBetween reports whether a waiting or active duel pairs a and b
// in either seat order.
func (r *DuelRepository) ExistsOpenBetween(ctx context.Context, a, b int64) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM kafanski_duels
			WHERE status IN ('waiting', 'active')
				AND ((player1_id = $1 AND player2_id = $2) OR (player1_id = $2 AND player2_id = $1))
		)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, a, b).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check open duel: %w", err)
	}
	return exists, nil
}

// AppendLog records one duel action.
func (r *DuelRepository) AppendLog(ctx context.Context, e model.DuelLogEntry) error {
	const query = `
		INSERT INTO duel_actions_log (duel_id, user_id, turn_number, action_type, flavor_text)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.pool.Exec(ctx, query, e.DuelID, e.UserID, e.TurnNumber, e.ActionType, e.FlavorText); err != nil {
		return fmt.Errorf("failed to append duel log: %w", err)
	}
	return nil
}

// RecentLog returns the newest limit actions of a duel, newest first.
func (r *DuelRepository) RecentLog(ctx context.Context, duelID int64, limit int) ([]model.DuelLogEntry, error) {
	const query = `
		SELECT id, duel_id, user_id, turn_number, action_type, flavor_text, created_at
		FROM duel_actions_log
		WHERE duel_id = $1
		ORDER BY id DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, duelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get duel log: %w", err)
	}
	defer rows.Close()

	entries := make([]model.DuelLogEntry, 0, limit)
	for rows.Next() {
		var e model.DuelLogEntry
		if err := rows.Scan(&e.ID, &e.DuelID, &e.UserID, &e.TurnNumber, &e.ActionType, &e.FlavorText, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan duel log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating duel log: %w", err)
	}
	return entries, nil
}

// ListForUser returns userID's waiting and active duels, newest first.
func (r *DuelRepository) ListForUser(ctx context.Context, userID int64) ([]duel.Duel, error) {
	query := `
		SELECT ` + duelColumns + `
		FROM kafanski_duels
		WHERE (player1_id = $1 OR player2_id = $1) AND status IN ('waiting', 'active')
		ORDER BY created_at DESC`
	return r.listDuels(ctx, query, userID)
}

// ListFinishedSince returns up to limit of userID's duels that finished after since.
func (r *DuelRepository) ListFinishedSince(ctx context.Context, userID int64, since time.Time, limit int) ([]duel.Duel, error) {
	query := `
		SELECT ` + duelColumns + `
		FROM kafanski_duels
		WHERE (player1_id = $1 OR player2_id = $1) AND status = 'finished' AND finished_at > $2
		ORDER BY finished_at DESC
		LIMIT $3`
	return r.listDuels(ctx, query, userID, since, limit)
}

func (r *DuelRepository) listDuels(ctx context.Context, query string, args ...any) ([]duel.Duel, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list duels: %w", err)
	}
	defer rows.Close()

	var duels []duel.Duel
	for rows.Next() {
		d, err := scanDuel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan duel: %w", err)
		}
		duels = append(duels, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating duels: %w", err)
	}
	return duels, nil
}
