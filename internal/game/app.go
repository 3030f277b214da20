package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/areyouamarjeet/med-melody-quiz/internal/events"
	"github.com/areyouamarjeet/med-melody-quiz/internal/gameconfig"
	"github.com/areyouamarjeet/med-melody-quiz/internal/models"
)

// Validation errors surfaced to the host. None of them mutate state.
var (
	// ErrNoCorrectAnswer rejects an advance without a grading key.
	ErrNoCorrectAnswer = errors.New("cannot advance without a correct answer")
	// ErrRoundComplete rejects an advance past the final results state.
	ErrRoundComplete = errors.New("screening round is already complete")
)

// StateRepository defines what the game app needs from the state store.
type StateRepository interface {
	Get(ctx context.Context) (*models.GameState, error)
	Put(ctx context.Context, state models.GameState) error
}

// TeamWiper clears the team roster during a session reset.
type TeamWiper interface {
	DeleteAll(ctx context.Context) (int, error)
}

// SubmissionWiper clears the submission ledger during a session reset.
type SubmissionWiper interface {
	DeleteAll(ctx context.Context) (int, error)
}

// App owns the game session state machine. The host controller is its only
// caller for mutations; every transition lands as one atomic write followed
// by one published event.
type App struct {
	repo        StateRepository
	teams       TeamWiper
	submissions SubmissionWiper
	publisher   events.Publisher
	clock       clockwork.Clock
	settings    gameconfig.RoundSettings
}

// NewApp creates the state machine app.
func NewApp(repo StateRepository, teams TeamWiper, submissions SubmissionWiper, publisher events.Publisher, clock clockwork.Clock, settings gameconfig.RoundSettings) *App {
	return &App{
		repo:        repo,
		teams:       teams,
		submissions: submissions,
		publisher:   publisher,
		clock:       clock,
		settings:    settings,
	}
}

// Bootstrap creates the lobby state if no game state document exists yet.
// Safe to call from every process at startup; only the first creates it.
func (a *App) Bootstrap(ctx context.Context) (*models.GameState, error) {
	state, err := a.repo.Get(ctx)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, ErrStateNotFound) {
		return nil, fmt.Errorf("failed to read game state at bootstrap: %w", err)
	}

	initial := a.lobbyState()
	if err := a.repo.Put(ctx, initial); err != nil {
		return nil, fmt.Errorf("failed to create initial game state: %w", err)
	}
	log.Info().Msg("initial game state created")
	return &initial, nil
}

// Get reads the current game state.
func (a *App) Get(ctx context.Context) (*models.GameState, error) {
	return a.repo.Get(ctx)
}

// Settings exposes the round configuration the state machine runs under.
func (a *App) Settings() gameconfig.RoundSettings {
	return a.settings
}

// AdvanceQuestion moves the session forward by exactly one question: lobby
// to question 0, question i to question i+1, or to the final results state
// once every question has been played. The host may advance before the
// countdown of the current question has elapsed.
func (a *App) AdvanceQuestion(ctx context.Context, questionText, correctAnswer string) (*models.GameState, error) {
	correctAnswer = strings.TrimSpace(correctAnswer)
	if correctAnswer == "" {
		return nil, ErrNoCorrectAnswer
	}

	current, err := a.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read game state: %w", err)
	}

	nextIndex := current.QuestionIndex + 1
	if nextIndex > a.settings.TotalQuestions {
		return nil, ErrRoundComplete
	}

	now := a.clock.Now()
	if nextIndex == a.settings.TotalQuestions {
		next := models.GameState{
			Status:          models.GameStatusResults,
			QuestionIndex:   nextIndex,
			QuestionText:    models.RoundCompleteText,
			CorrectAnswer:   "",
			QuestionStartMs: 0,
			LastUpdate:      now,
		}
		if err := a.repo.Put(ctx, next); err != nil {
			return nil, fmt.Errorf("failed to complete round: %w", err)
		}
		log.Info().Int("total_questions", a.settings.TotalQuestions).Msg("screening round completed")

		a.publish(ctx, events.TypeRoundCompleted, events.RoundCompletedPayload{
			TotalQuestions: a.settings.TotalQuestions,
			CompletedAt:    now,
		})
		return &next, nil
	}

	questionText = strings.TrimSpace(questionText)
	if questionText == "" {
		questionText = fmt.Sprintf("Song %d Diagnosis?", nextIndex+1)
	}

	next := models.GameState{
		Status:          models.GameStatusQuestion,
		QuestionIndex:   nextIndex,
		QuestionText:    questionText,
		CorrectAnswer:   correctAnswer,
		QuestionStartMs: now.UnixMilli(),
		LastUpdate:      now,
	}
	if err := a.repo.Put(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to start question %d: %w", nextIndex, err)
	}
	log.Info().
		Int("question_index", nextIndex).
		Str("question_text", questionText).
		Msg("question started")

	a.publish(ctx, events.TypeQuestionStarted, events.QuestionStartedPayload{
		QuestionIndex: nextIndex,
		QuestionText:  questionText,
		StartMs:       next.QuestionStartMs,
		DurationSec:   a.settings.QuestionDurationSec,
	})
	return &next, nil
}

// Reset returns the session to the lobby and clears the team and submission
// collections in full. Irreversible.
func (a *App) Reset(ctx context.Context) (*models.GameState, error) {
	lobby := a.lobbyState()
	if err := a.repo.Put(ctx, lobby); err != nil {
		return nil, fmt.Errorf("failed to reset game state: %w", err)
	}

	submissionsCleared, err := a.submissions.DeleteAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to clear submissions: %w", err)
	}
	teamsCleared, err := a.teams.DeleteAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to clear teams: %w", err)
	}

	log.Info().
		Int("teams_cleared", teamsCleared).
		Int("submissions_cleared", submissionsCleared).
		Msg("session reset to lobby")

	a.publish(ctx, events.TypeGameReset, events.GameResetPayload{
		ResetAt:            lobby.LastUpdate,
		TeamsCleared:       teamsCleared,
		SubmissionsCleared: submissionsCleared,
	})
	return &lobby, nil
}

func (a *App) lobbyState() models.GameState {
	return models.GameState{
		Status:          models.GameStatusLobby,
		QuestionIndex:   -1,
		QuestionText:    models.LobbyQuestionText,
		CorrectAnswer:   "",
		QuestionStartMs: 0,
		LastUpdate:      a.clock.Now(),
	}
}

// publish logs and swallows publish failures; a missed notification degrades
// liveness for subscribers, it does not invalidate the committed transition.
func (a *App) publish(ctx context.Context, eventType string, payload any) {
	if err := a.publisher.Publish(ctx, eventType, payload); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
