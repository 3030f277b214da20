package roster

import (
	"context"
	"sort"
	"sync"

	"github.com/areyouamarjeet/med-melody-quiz/internal/models"
)

// MemoryRepository is an in-memory roster store for tests and
// single-process runs.
type MemoryRepository struct {
	mu    sync.RWMutex
	teams map[string]models.Team
}

// NewMemoryRepository creates an empty in-memory roster.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{teams: make(map[string]models.Team)}
}

// Upsert creates the team record or overwrites its name, keeping the
// original join time.
func (r *MemoryRepository) Upsert(ctx context.Context, team models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.teams[team.ID]; ok {
		team.JoinedAt = existing.JoinedAt
	}
	r.teams[team.ID] = team
	return nil
}

// Get reads one team record by identity.
func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	team, ok := r.teams[id]
	if !ok {
		return nil, ErrTeamNotFound
	}
	return &team, nil
}

// List returns every joined team ordered by join time.
func (r *MemoryRepository) List(ctx context.Context) ([]models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	teams := make([]models.Team, 0, len(r.teams))
	for _, team := range r.teams {
		teams = append(teams, team)
	}
	sort.Slice(teams, func(i, j int) bool {
		if !teams[i].JoinedAt.Equal(teams[j].JoinedAt) {
			return teams[i].JoinedAt.Before(teams[j].JoinedAt)
		}
		return teams[i].ID < teams[j].ID
	})
	return teams, nil
}

// DeleteAll wipes the roster and returns how many records were removed.
func (r *MemoryRepository) DeleteAll(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.teams)
	r.teams = make(map[string]models.Team)
	return n, nil
}
