package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/areyouamarjeet/med-melody-quiz/internal/events"
	"github.com/areyouamarjeet/med-melody-quiz/internal/models"
)

// MinTeamNameLen matches the join form of the original event.
const MinTeamNameLen = 3

var (
	// ErrTeamNameTooShort rejects a join before any store interaction.
	ErrTeamNameTooShort = fmt.Errorf("team name must be at least %d characters", MinTeamNameLen)
	// ErrTeamNotFound is returned for an identity that never joined.
	ErrTeamNotFound = errors.New("team not found")
)

// TeamRepository defines what the roster app needs from the team store.
type TeamRepository interface {
	Upsert(ctx context.Context, team models.Team) error
	Get(ctx context.Context, id string) (*models.Team, error)
	List(ctx context.Context) ([]models.Team, error)
	DeleteAll(ctx context.Context) (int, error)
}

// App handles roster business logic. Each team writes only its own record,
// so the roster is single-writer per key.
type App struct {
	repo      TeamRepository
	publisher events.Publisher
	clock     clockwork.Clock
}

// NewApp creates a roster App.
func NewApp(repo TeamRepository, publisher events.Publisher, clock clockwork.Clock) *App {
	return &App{repo: repo, publisher: publisher, clock: clock}
}

// Join creates or renames the team record for the given identity. Calling
// it twice never creates a second record; the second call overwrites the
// name.
func (a *App) Join(ctx context.Context, teamID, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if len(name) < MinTeamNameLen {
		return nil, ErrTeamNameTooShort
	}

	team := models.Team{
		ID:       teamID,
		Name:     name,
		JoinedAt: a.clock.Now(),
	}
	if err := a.repo.Upsert(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to join team: %w", err)
	}
	log.Info().Str("team_id", teamID).Str("team_name", name).Msg("team joined")

	if err := a.publisher.Publish(ctx, events.TypeTeamJoined, events.TeamJoinedPayload{
		TeamID:   teamID,
		TeamName: name,
		JoinedAt: team.JoinedAt,
	}); err != nil {
		log.Error().Err(err).Str("team_id", teamID).Msg("failed to publish TeamJoined event")
	}
	return &team, nil
}

// Get reads one team record by identity.
func (a *App) Get(ctx context.Context, teamID string) (*models.Team, error) {
	return a.repo.Get(ctx, teamID)
}

// List returns every joined team.
func (a *App) List(ctx context.Context) ([]models.Team, error) {
	return a.repo.List(ctx)
}

// DeleteAll wipes the roster. Only the host-issued session reset calls this.
func (a *App) DeleteAll(ctx context.Context) (int, error) {
	return a.repo.DeleteAll(ctx)
}
