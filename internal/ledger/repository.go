package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/areyouamarjeet/med-melody-quiz/internal/models"
)

// PostgresRepository stores accepted submissions in Postgres. The unique
// index on (team_id, question_index) makes the check-then-insert a single
// indivisible statement.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a submission repository backed by the pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Insert records a submission unless one already exists for the same
// (team, question) key. Returns false without error when the key was taken;
// concurrent inserts for one key can never both report true.
func (r *PostgresRepository) Insert(ctx context.Context, sub models.Submission) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO submissions (id, team_id, team_name, question_index, answer_text, elapsed_ms, accepted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (team_id, question_index) DO NOTHING`,
		sub.ID, sub.TeamID, sub.TeamName, sub.QuestionIndex, sub.AnswerText, sub.ElapsedMs, sub.AcceptedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert submission: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByQuestion returns the submissions recorded for one question.
func (r *PostgresRepository) ListByQuestion(ctx context.Context, questionIndex int) ([]models.Submission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, team_id, team_name, question_index, answer_text, elapsed_ms, accepted_at
		FROM submissions
		WHERE question_index = $1`,
		questionIndex,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

// ListAll returns the full submission history of the round.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]models.Submission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, team_id, team_name, question_index, answer_text, elapsed_ms, accepted_at
		FROM submissions`)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

// DeleteAll wipes the ledger and returns how many rows were removed.
func (r *PostgresRepository) DeleteAll(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM submissions`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete submissions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSubmissions(rows pgxRows) ([]models.Submission, error) {
	var subs []models.Submission
	for rows.Next() {
		var sub models.Submission
		if err := rows.Scan(
			&sub.ID, &sub.TeamID, &sub.TeamName, &sub.QuestionIndex,
			&sub.AnswerText, &sub.ElapsedMs, &sub.AcceptedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read submissions: %w", err)
	}
	return subs, nil
}
