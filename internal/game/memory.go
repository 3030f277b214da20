package game

import (
	"context"
	"sync"

	"github.com/areyouamarjeet/med-melody-quiz/internal/models"
)

// MemoryRepository is an in-memory game state store for tests and
// single-process runs.
type MemoryRepository struct {
	mu    sync.RWMutex
	state *models.GameState
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Get reads the current game state.
func (r *MemoryRepository) Get(ctx context.Context) (*models.GameState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state == nil {
		return nil, ErrStateNotFound
	}
	copied := *r.state
	return &copied, nil
}

// Put overwrites the game state.
func (r *MemoryRepository) Put(ctx context.Context, state models.GameState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = &state
	return nil
}
