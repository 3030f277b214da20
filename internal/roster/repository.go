package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/areyouamarjeet/med-melody-quiz/internal/models"
)

// PostgresRepository stores team records in Postgres, keyed by the
// externally provisioned team identity.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a roster repository backed by the pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Upsert creates the team record or overwrites its name. The join timestamp
// of the original record survives a rename.
func (r *PostgresRepository) Upsert(ctx context.Context, team models.Team) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO teams (id, name, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
		team.ID, team.Name, team.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert team: %w", err)
	}
	return nil
}

// Get reads one team record by identity.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Team, error) {
	var team models.Team
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, joined_at FROM teams WHERE id = $1`, id,
	).Scan(&team.ID, &team.Name, &team.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return &team, nil
}

// List returns every joined team ordered by join time.
func (r *PostgresRepository) List(ctx context.Context) ([]models.Team, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, joined_at FROM teams ORDER BY joined_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		var team models.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read teams: %w", err)
	}
	return teams, nil
}

// DeleteAll wipes the roster and returns how many records were removed.
func (r *PostgresRepository) DeleteAll(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM teams`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete teams: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
