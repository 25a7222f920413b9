package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Execer runs a statement. *pgxpool.Pool, *pgx.Conn and pgx.Tx satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type migration struct {
	name string
	sql  string
}

// migrations are idempotent and run in order on every start.
var migrations = []migration{
	{
		name: "users table",
		sql: `
		CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			first_name VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	},
	{
		name: "autobus_games table",
		sql: `
		CREATE TABLE IF NOT EXISTS autobus_games (
			id BIGSERIAL PRIMARY KEY,
			status VARCHAR(20) NOT NULL DEFAULT 'lobby',
			current_phase VARCHAR(20) NOT NULL DEFAULT 'lobby',
			current_card_index INT NOT NULL DEFAULT -1,
			match_turn_index INT NOT NULL DEFAULT 0,
			matching_done BOOLEAN NOT NULL DEFAULT FALSE,
			pyramid_cards JSONB NOT NULL DEFAULT '[]',
			deck JSONB NOT NULL DEFAULT '[]',
			bus_player_id BIGINT NOT NULL DEFAULT 0,
			bus_progress INT NOT NULL DEFAULT 0,
			bus_current_card JSONB,
			bus_player_queue JSONB NOT NULL DEFAULT '[]',
			bus_queue_index INT NOT NULL DEFAULT 0,
			created_by BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			finished_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_autobus_games_status ON autobus_games(status, created_at DESC);`,
	},
	{
		name: "autobus_players table",
		sql: `
		CREATE TABLE IF NOT EXISTS autobus_players (
			id BIGSERIAL PRIMARY KEY,
			game_id BIGINT NOT NULL REFERENCES autobus_games(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL,
			username VARCHAR(255) NOT NULL DEFAULT '',
			first_name VARCHAR(255) NOT NULL DEFAULT '',
			hand JSONB NOT NULL DEFAULT '[]',
			drinks_received INT NOT NULL DEFAULT 0,
			turn_order INT NOT NULL DEFAULT 0,
			passed_current BOOLEAN NOT NULL DEFAULT FALSE,
			UNIQUE(game_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_autobus_players_user ON autobus_players(user_id);`,
	},
	{
		name: "autobus_actions_log table",
		sql: `
		CREATE TABLE IF NOT EXISTS autobus_actions_log (
			id BIGSERIAL PRIMARY KEY,
			game_id BIGINT NOT NULL REFERENCES autobus_games(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL DEFAULT 0,
			action_type VARCHAR(50) NOT NULL,
			card_data JSONB,
			matched_card JSONB,
			target_user_id BIGINT,
			drinks_given INT NOT NULL DEFAULT 0,
			bus_guess VARCHAR(10),
			bus_result VARCHAR(10),
			flavor_text TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_autobus_log_game ON autobus_actions_log(game_id, id DESC);`,
	},
	{
		name: "kafanski_duels table",
		sql: `
		CREATE TABLE IF NOT EXISTS kafanski_duels (
			id BIGSERIAL PRIMARY KEY,
			player1_id BIGINT NOT NULL,
			player2_id BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'waiting',
			winner_id BIGINT NOT NULL DEFAULT 0,
			current_turn_user BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			finished_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_duels_players ON kafanski_duels(player1_id, player2_id, status);`,
	},
	{
		name: "duel_player_state table",
		sql: `
		CREATE TABLE IF NOT EXISTS duel_player_state (
			id BIGSERIAL PRIMARY KEY,
			duel_id BIGINT NOT NULL REFERENCES kafanski_duels(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL,
			alcometer INT NOT NULL DEFAULT 0,
			respect INT NOT NULL DEFAULT 50,
			stomak INT NOT NULL DEFAULT 50,
			novcanik INT NOT NULL DEFAULT 500,
			turn_number INT NOT NULL DEFAULT 0,
			pijani_foulovi INT NOT NULL DEFAULT 0,
			UNIQUE(duel_id, user_id)
		);`,
	},
	{
		name: "duel_actions_log table",
		sql: `
		CREATE TABLE IF NOT EXISTS duel_actions_log (
			id BIGSERIAL PRIMARY KEY,
			duel_id BIGINT NOT NULL REFERENCES kafanski_duels(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL,
			turn_number INT NOT NULL,
			action_type VARCHAR(50) NOT NULL,
			flavor_text TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_duel_log_duel ON duel_actions_log(duel_id, id DESC);`,
	},
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db Execer) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("migration", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
