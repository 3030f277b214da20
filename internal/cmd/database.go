package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/areyouamarjeet/med-melody-quiz/internal/gameconfig"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_state (
	key               TEXT PRIMARY KEY,
	status            TEXT NOT NULL,
	question_index    INT NOT NULL,
	question_text     TEXT NOT NULL,
	correct_answer    TEXT NOT NULL,
	question_start_ms BIGINT NOT NULL,
	last_update       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS teams (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	joined_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS submissions (
	id             UUID PRIMARY KEY,
	team_id        TEXT NOT NULL,
	team_name      TEXT NOT NULL,
	question_index INT NOT NULL,
	answer_text    TEXT NOT NULL,
	elapsed_ms     BIGINT NOT NULL,
	accepted_at    TIMESTAMPTZ NOT NULL,
	UNIQUE (team_id, question_index)
);
`

// setupStore returns a Postgres pool, or nil when STORE=memory is requested.
// An unreachable database at startup is fatal rather than degraded.
func setupStore(ctx context.Context, cfg gameconfig.Config) *pgxpool.Pool {
	if getEnv("STORE", "postgres") == "memory" {
		return nil
	}

	pool, err := setupDatabase(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to store")
	}
	return pool
}

func setupDatabase(ctx context.Context, cfg gameconfig.DBConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to database")
	return pool, nil
}
