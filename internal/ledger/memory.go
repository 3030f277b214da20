package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/areyouamarjeet/med-melody-quiz/internal/models"
)

// MemoryRepository is an in-memory submission store for tests and
// single-process runs. The mutex gives the same check-then-insert atomicity
// the Postgres unique index provides.
type MemoryRepository struct {
	mu   sync.Mutex
	byID map[string]models.Submission
	keys map[string]bool // (teamID, questionIndex) occupancy
}

// NewMemoryRepository creates an empty in-memory ledger.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[string]models.Submission),
		keys: make(map[string]bool),
	}
}

func submissionKey(teamID string, questionIndex int) string {
	return fmt.Sprintf("%s/%d", teamID, questionIndex)
}

// Insert records a submission unless the (team, question) key is taken.
func (r *MemoryRepository) Insert(ctx context.Context, sub models.Submission) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := submissionKey(sub.TeamID, sub.QuestionIndex)
	if r.keys[key] {
		return false, nil
	}
	r.keys[key] = true
	r.byID[sub.ID.String()] = sub
	return true, nil
}

// ListByQuestion returns the submissions recorded for one question.
func (r *MemoryRepository) ListByQuestion(ctx context.Context, questionIndex int) ([]models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var subs []models.Submission
	for _, sub := range r.byID {
		if sub.QuestionIndex == questionIndex {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

// ListAll returns the full submission history of the round.
func (r *MemoryRepository) ListAll(ctx context.Context) ([]models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := make([]models.Submission, 0, len(r.byID))
	for _, sub := range r.byID {
		subs = append(subs, sub)
	}
	return subs, nil
}

// DeleteAll wipes the ledger and returns how many rows were removed.
func (r *MemoryRepository) DeleteAll(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.byID)
	r.byID = make(map[string]models.Submission)
	r.keys = make(map[string]bool)
	return n, nil
}
