package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"klovn-bot/internal/game/autobus"
	"klovn-bot/internal/model"
)

// AutobusRepository persists Autobus games, their players and action log.
type AutobusRepository struct {
	pool *pgxpool.Pool
}

// NewAutobusRepository creates a new AutobusRepository instance.
func NewAutobusRepository(pool *pgxpool.Pool) *AutobusRepository {
	return &AutobusRepository{pool: pool}
}

const gameColumns = `
	id, status, current_phase, current_card_index, match_turn_index, matching_done,
	pyramid_cards, deck, bus_player_id, bus_progress, bus_current_card,
	bus_player_queue, bus_queue_index, created_by, created_at, finished_at`

const playerColumns = `
	game_id, user_id, username, first_name, hand, drinks_received, turn_order, passed_current`

func scanGame(row pgx.Row) (autobus.Game, error) {
	var g autobus.Game
	var status, phase string
	err := row.Scan(
		&g.ID, &status, &phase, &g.CurrentCardIndex, &g.MatchTurnIndex, &g.MatchingDone,
		&g.Pyramid, &g.Deck, &g.BusPlayerID, &g.BusProgress, &g.BusCurrentCard,
		&g.BusQueue, &g.BusQueueIndex, &g.CreatedBy, &g.CreatedAt, &g.FinishedAt,
	)
	g.Status = autobus.Status(status)
	g.Phase = autobus.Phase(phase)
	return g, err
}

func scanPlayer(row pgx.Row) (autobus.Player, error) {
	var p autobus.Player
	err := row.Scan(
		&p.GameID, &p.UserID, &p.Username, &p.FirstName, &p.Hand,
		&p.DrinksReceived, &p.TurnOrder, &p.PassedCurrent,
	)
	return p, err
}

// Create inserts a new game with its initial players and returns the
// table with the assigned id.
func (r *AutobusRepository) Create(ctx context.Context, t autobus.Table) (autobus.Table, error) {
	next := t.Clone()
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		g := &next.Game
		const query = `
			INSERT INTO autobus_games (
				status, current_phase, current_card_index, match_turn_index, matching_done,
				pyramid_cards, deck, bus_player_id, bus_progress, bus_current_card,
				bus_player_queue, bus_queue_index, created_by
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id, created_at`
		err := tx.QueryRow(ctx, query,
			string(g.Status), string(g.Phase), g.CurrentCardIndex, g.MatchTurnIndex, g.MatchingDone,
			nonNil(g.Pyramid), nonNil(g.Deck), g.BusPlayerID, g.BusProgress, g.BusCurrentCard,
			nonNil(g.BusQueue), g.BusQueueIndex, g.CreatedBy,
		).Scan(&g.ID, &g.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert game: %w", err)
		}

		for i := range next.Players {
			next.Players[i].GameID = g.ID
			if err := upsertPlayer(ctx, tx, next.Players[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return autobus.Table{}, err
	}
	return next, nil
}

// Get loads a game and its players ordered by turn order.
// Returns ErrGameNotFound if the game does not exist.
func (r *AutobusRepository) Get(ctx context.Context, gameID int64) (autobus.Table, error) {
	query := `SELECT ` + gameColumns + ` FROM autobus_games WHERE id = $1`

	g, err := scanGame(r.pool.QueryRow(ctx, query, gameID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return autobus.Table{}, ErrGameNotFound
		}
		return autobus.Table{}, fmt.Errorf("failed to get game: %w", err)
	}

	players, err := r.ListPlayers(ctx, gameID)
	if err != nil {
		return autobus.Table{}, err
	}
	return autobus.Table{Game: g, Players: players}, nil
}

// ListPlayers returns the seats of a game ordered by turn order.
func (r *AutobusRepository) ListPlayers(ctx context.Context, gameID int64) ([]autobus.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM autobus_players WHERE game_id = $1 ORDER BY turn_order`

	rows, err := r.pool.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []autobus.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}
	return players, nil
}

// AddPlayer seats p in its game. A second seat for the same user is
// rejected with autobus.ErrAlreadyJoined.
func (r *AutobusRepository) AddPlayer(ctx context.Context, p autobus.Player) error {
	const query = `
		INSERT INTO autobus_players (
			game_id, user_id, username, first_name, hand, drinks_received, turn_order, passed_current
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		p.GameID, p.UserID, p.Username, p.FirstName, nonNil(p.Hand),
		p.DrinksReceived, p.TurnOrder, p.PassedCurrent,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return autobus.ErrAlreadyJoined
		}
		return fmt.Errorf("failed to add player: %w", err)
	}
	return nil
}

// Save writes the game row and every player row in one transaction.
// The returned table carries finished_at once the game has finished.
func (r *AutobusRepository) Save(ctx context.Context, t autobus.Table) (autobus.Table, error) {
	next := t.Clone()
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		g := &next.Game
		const query = `
			UPDATE autobus_games SET
				status = $2, current_phase = $3, current_card_index = $4, match_turn_index = $5,
				matching_done = $6, pyramid_cards = $7, deck = $8, bus_player_id = $9,
				bus_progress = $10, bus_current_card = $11, bus_player_queue = $12,
				bus_queue_index = $13,
				finished_at = CASE
					WHEN $2::text = 'finished' AND finished_at IS NULL THEN NOW()
					ELSE finished_at
				END
			WHERE id = $1
			RETURNING finished_at`
		err := tx.QueryRow(ctx, query,
			g.ID, string(g.Status), string(g.Phase), g.CurrentCardIndex, g.MatchTurnIndex,
			g.MatchingDone, nonNil(g.Pyramid), nonNil(g.Deck), g.BusPlayerID,
			g.BusProgress, g.BusCurrentCard, nonNil(g.BusQueue), g.BusQueueIndex,
		).Scan(&g.FinishedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrGameNotFound
			}
			return fmt.Errorf("failed to save game: %w", err)
		}

		for _, p := range next.Players {
			p.GameID = g.ID
			if err := upsertPlayer(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return autobus.Table{}, err
	}
	return next, nil
}

func upsertPlayer(ctx context.Context, q querier, p autobus.Player) error {
	const query = `
		INSERT INTO autobus_players (
			game_id, user_id, username, first_name, hand, drinks_received, turn_order, passed_current
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (game_id, user_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			hand = EXCLUDED.hand,
			drinks_received = EXCLUDED.drinks_received,
			turn_order = EXCLUDED.turn_order,
			passed_current = EXCLUDED.passed_current`

	_, err := q.Exec(ctx, query,
		p.GameID, p.UserID, p.Username, p.FirstName, nonNil(p.Hand),
		p.DrinksReceived, p.TurnOrder, p.PassedCurrent,
	)
	if err != nil {
		return fmt.Errorf("failed to save player %d: %w", p.UserID, err)
	}
	return nil
}

// AppendLog records action log entries in a single batch.
func (r *AutobusRepository) AppendLog(ctx context.Context, entries ...model.AutobusLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	const query = `
		INSERT INTO autobus_actions_log (
			game_id, user_id, action_type, card_data, matched_card, target_user_id,
			drinks_given, bus_guess, bus_result, flavor_text
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(query,
			e.GameID, e.UserID, e.ActionType, e.CardData, e.MatchedCard, nullableID(e.TargetUserID),
			e.DrinksGiven, nullableString(e.BusGuess), nullableString(e.BusResult), e.FlavorText,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to append game log: %w", err)
	}
	return nil
}

// RecentLog returns the newest limit log entries of a game, newest first.
func (r *AutobusRepository) RecentLog(ctx context.Context, gameID int64, limit int) ([]model.AutobusLogEntry, error) {
	const query = `
		SELECT id, game_id, user_id, action_type, card_data, matched_card, target_user_id,
			drinks_given, bus_guess, bus_result, flavor_text, created_at
		FROM autobus_actions_log
		WHERE game_id = $1
		ORDER BY id DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get game log: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AutobusLogEntry, 0, limit)
	for rows.Next() {
		var e model.AutobusLogEntry
		var target *int64
		var guess, result *string
		err := rows.Scan(
			&e.ID, &e.GameID, &e.UserID, &e.ActionType, &e.CardData, &e.MatchedCard, &target,
			&e.DrinksGiven, &guess, &result, &e.FlavorText, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game log: %w", err)
		}
		e.TargetUserID = derefID(target)
		e.BusGuess = derefString(guess)
		e.BusResult = derefString(result)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game log: %w", err)
	}
	return entries, nil
}

// ListForUser returns the games userID sits in whose status is one of
// statuses, newest first.
func (r *AutobusRepository) ListForUser(ctx context.Context, userID int64, statuses ...autobus.Status) ([]autobus.Table, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	query := `
		SELECT ` + gameColumns + `
		FROM autobus_games
		WHERE status = ANY($2)
			AND id IN (SELECT game_id FROM autobus_players WHERE user_id = $1)
		ORDER BY created_at DESC`
	return r.loadTables(ctx, query, userID, names)
}

// ListOpenLobbies returns up to limit lobbies userID has not joined, newest first.
func (r *AutobusRepository) ListOpenLobbies(ctx context.Context, userID int64, limit int) ([]autobus.Table, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM autobus_games
		WHERE status = 'lobby'
			AND id NOT IN (SELECT game_id FROM autobus_players WHERE user_id = $1)
		ORDER BY created_at DESC
		LIMIT $2`
	return r.loadTables(ctx, query, userID, limit)
}

// ListFinishedSince returns up to limit of userID's games that finished after since.
func (r *AutobusRepository) ListFinishedSince(ctx context.Context, userID int64, since time.Time, limit int) ([]autobus.Table, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM autobus_games
		WHERE status = 'finished'
			AND finished_at > $2
			AND id IN (SELECT game_id FROM autobus_players WHERE user_id = $1)
		ORDER BY finished_at DESC
		LIMIT $3`
	return r.loadTables(ctx, query, userID, since, limit)
}

// loadTables runs a game query and attaches the players of every game
// with one extra query.
func (r *AutobusRepository) loadTables(ctx context.Context, query string, args ...any) ([]autobus.Table, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var tables []autobus.Table
	var ids []int64
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		tables = append(tables, autobus.Table{Game: g})
		ids = append(ids, g.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return tables, nil
	}

	playerQuery := `SELECT ` + playerColumns + ` FROM autobus_players WHERE game_id = ANY($1) ORDER BY game_id, turn_order`
	prows, err := r.pool.Query(ctx, playerQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer prows.Close()

	byGame := make(map[int64][]autobus.Player, len(ids))
	for prows.Next() {
		p, err := scanPlayer(prows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		byGame[p.GameID] = append(byGame[p.GameID], p)
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	for i := range tables {
		tables[i].Players = byGame[tables[i].Game.ID]
	}
	return tables, nil
}
