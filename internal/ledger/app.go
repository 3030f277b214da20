package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/areyouamarjeet/med-melody-quiz/internal/events"
	"github.com/areyouamarjeet/med-melody-quiz/internal/models"
)

// Outcome classifies the result of a submit call.
type Outcome int

const (
	// OutcomeInvalid is the zero value so an unchecked error path can
	// never read as an accepted submission.
	OutcomeInvalid Outcome = iota
	// OutcomeAccepted means the submission was recorded.
	OutcomeAccepted
	// OutcomeAlreadySubmitted means a submission for the (team, question)
	// key already existed. Success-equivalent for the caller; no duplicate
	// was created.
	OutcomeAlreadySubmitted
	// OutcomeRejected means the submission was discarded before any store
	// interaction. Terminal for this (team, question) pair.
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeAlreadySubmitted:
		return "already_submitted"
	case OutcomeRejected:
		return "rejected"
	default:
		return "invalid"
	}
}

// Result carries the outcome of a submit call. Submission is set only for
// OutcomeAccepted; Reason only for OutcomeRejected.
type Result struct {
	Outcome    Outcome
	Submission *models.Submission
	Reason     string
}

// SubmissionRepository defines what the ledger app needs from the
// submission store. Insert must be atomic with respect to concurrent
// inserts for the same (team, question) key.
type SubmissionRepository interface {
	Insert(ctx context.Context, sub models.Submission) (bool, error)
	ListByQuestion(ctx context.Context, questionIndex int) ([]models.Submission, error)
	ListAll(ctx context.Context) ([]models.Submission, error)
	DeleteAll(ctx context.Context) (int, error)
}

// App is the authoritative record of accepted submissions. It enforces
// uniqueness per (team, question) key; it deliberately does not enforce the
// countdown deadline, which stays with the submitting client.
type App struct {
	repo      SubmissionRepository
	publisher events.Publisher
	clock     clockwork.Clock
}

// NewApp creates a ledger App.
func NewApp(repo SubmissionRepository, publisher events.Publisher, clock clockwork.Clock) *App {
	return &App{repo: repo, publisher: publisher, clock: clock}
}

// Submit records an answer for (teamID, questionIndex). A negative elapsed
// time means the submission appears to precede the question start under
// clock skew; it is logged and discarded without touching the store.
func (a *App) Submit(ctx context.Context, teamID, teamName string, questionIndex int, answerText string, elapsedMs int64) (Result, error) {
	answerText = strings.TrimSpace(answerText)
	if answerText == "" {
		return Result{Outcome: OutcomeRejected, Reason: "empty answer"}, nil
	}
	if elapsedMs < 0 {
		log.Warn().
			Str("team_id", teamID).
			Int("question_index", questionIndex).
			Int64("elapsed_ms", elapsedMs).
			Msg("discarding submission with negative elapsed time")
		return Result{Outcome: OutcomeRejected, Reason: "clock skew: negative elapsed time"}, nil
	}

	sub := models.Submission{
		ID:            uuid.New(),
		TeamID:        teamID,
		TeamName:      teamName,
		QuestionIndex: questionIndex,
		AnswerText:    answerText,
		ElapsedMs:     elapsedMs,
		AcceptedAt:    a.clock.Now(),
	}

	inserted, err := a.repo.Insert(ctx, sub)
	if err != nil {
		return Result{}, fmt.Errorf("failed to submit answer: %w", err)
	}
	if !inserted {
		log.Debug().
			Str("team_id", teamID).
			Int("question_index", questionIndex).
			Msg("submission already exists for this question")
		return Result{Outcome: OutcomeAlreadySubmitted}, nil
	}

	log.Info().
		Str("team_id", teamID).
		Str("team_name", teamName).
		Int("question_index", questionIndex).
		Int64("elapsed_ms", elapsedMs).
		Msg("submission accepted")

	if err := a.publisher.Publish(ctx, events.TypeSubmissionAccepted, events.SubmissionAcceptedPayload{
		SubmissionID:  sub.ID.String(),
		TeamID:        teamID,
		TeamName:      teamName,
		QuestionIndex: questionIndex,
		ElapsedMs:     elapsedMs,
		AcceptedAt:    sub.AcceptedAt,
	}); err != nil {
		log.Error().Err(err).Str("team_id", teamID).Msg("failed to publish SubmissionAccepted event")
	}
	return Result{Outcome: OutcomeAccepted, Submission: &sub}, nil
}

// ListByQuestion returns the submissions recorded for one question.
func (a *App) ListByQuestion(ctx context.Context, questionIndex int) ([]models.Submission, error) {
	return a.repo.ListByQuestion(ctx, questionIndex)
}

// ListAll returns the full submission history of the round.
func (a *App) ListAll(ctx context.Context) ([]models.Submission, error) {
	return a.repo.ListAll(ctx)
}

// DeleteAll wipes the ledger. Only the host-issued session reset calls this.
func (a *App) DeleteAll(ctx context.Context) (int, error) {
	return a.repo.DeleteAll(ctx)
}
