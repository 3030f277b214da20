package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/areyouamarjeet/med-melody-quiz/internal/models"
)

// ErrStateNotFound is returned when no game state document exists yet.
var ErrStateNotFound = errors.New("game state not found")

// PostgresRepository stores the single game state row in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a game state repository backed by the pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get reads the current game state.
func (r *PostgresRepository) Get(ctx context.Context) (*models.GameState, error) {
	var state models.GameState
	err := r.pool.QueryRow(ctx, `
		SELECT status, question_index, question_text, correct_answer, question_start_ms, last_update
		FROM game_state
		WHERE key = $1`,
		models.GameStateKey,
	).Scan(
		&state.Status,
		&state.QuestionIndex,
		&state.QuestionText,
		&state.CorrectAnswer,
		&state.QuestionStartMs,
		&state.LastUpdate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}
	return &state, nil
}

// Put overwrites the game state in a single atomic write. Subscribers never
// observe a partially applied transition.
func (r *PostgresRepository) Put(ctx context.Context, state models.GameState) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO game_state (key, status, question_index, question_text, correct_answer, question_start_ms, last_update)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (key) DO UPDATE SET
			status = EXCLUDED.status,
			question_index = EXCLUDED.question_index,
			question_text = EXCLUDED.question_text,
			correct_answer = EXCLUDED.correct_answer,
			question_start_ms = EXCLUDED.question_start_ms,
			last_update = EXCLUDED.last_update`,
		models.GameStateKey,
		state.Status,
		state.QuestionIndex,
		state.QuestionText,
		state.CorrectAnswer,
		state.QuestionStartMs,
		state.LastUpdate,
	)
	if err != nil {
		return fmt.Errorf("failed to put game state: %w", err)
	}
	return nil
}
