// Package session holds the per-role controllers that orchestrate the game
// state machine, the roster, the ledger and the scoring engine. Controllers
// are event-driven: they react to pushed change notifications and a local
// countdown tick, never to a polling loop.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/areyouamarjeet/med-melody-quiz/internal/clock"
	"github.com/areyouamarjeet/med-melody-quiz/internal/events"
	"github.com/areyouamarjeet/med-melody-quiz/internal/game"
	"github.com/areyouamarjeet/med-melody-quiz/internal/ledger"
	"github.com/areyouamarjeet/med-melody-quiz/internal/models"
	"github.com/areyouamarjeet/med-melody-quiz/internal/roster"
	"github.com/areyouamarjeet/med-melody-quiz/internal/scoring"
)

// HostController drives the session for the single trusted operator. It is
// the only writer of the game state.
type HostController struct {
	game   *game.App
	roster *roster.App
	ledger *ledger.App
	bus    events.Subscriber

	mu    sync.RWMutex
	state models.GameState
	// answerKey archives the grading key of every question the host has
	// started, for the cumulative standings read. Lives only in the host
	// process; the shared store keeps just the current answer.
	answerKey map[int]string

	unsubscribe func()
}

// NewHostController creates a host controller.
func NewHostController(gameApp *game.App, rosterApp *roster.App, ledgerApp *ledger.App, bus events.Subscriber) *HostController {
	return &HostController{
		game:      gameApp,
		roster:    rosterApp,
		ledger:    ledgerApp,
		bus:       bus,
		answerKey: make(map[int]string),
	}
}

// Start bootstraps the shared game state and subscribes to change
// notifications. Fatal only if the store is unreachable at startup.
func (h *HostController) Start(ctx context.Context) error {
	state, err := h.game.Bootstrap(ctx)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.state = *state
	h.mu.Unlock()

	h.unsubscribe = h.bus.Subscribe(h.handleEvent)
	log.Info().Str("status", string(state.Status)).Msg("host controller started")
	return nil
}

// Stop detaches the controller from the bus.
func (h *HostController) Stop() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
}

// handleEvent keeps the local snapshot converged with the authoritative
// store. The host issues all state transitions itself, so this matters only
// when notifications arrive from another process of the same session.
func (h *HostController) handleEvent(ctx context.Context, eventType string, payload []byte) {
	switch eventType {
	case events.TypeQuestionStarted, events.TypeRoundCompleted, events.TypeGameReset:
		state, err := h.game.Get(ctx)
		if err != nil {
			log.Error().Err(err).Str("event_type", eventType).Msg("failed to refresh game state")
			return
		}
		h.mu.Lock()
		h.state = *state
		h.mu.Unlock()
	case events.TypeSubmissionAccepted:
		var p events.SubmissionAcceptedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			log.Error().Err(err).Msg("failed to unmarshal SubmissionAccepted payload")
			return
		}
		log.Debug().
			Str("team_name", p.TeamName).
			Int("question_index", p.QuestionIndex).
			Msg("submission observed")
	}
}

// State returns the host's current view of the game state.
func (h *HostController) State() models.GameState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// AdvanceQuestion starts the next question (or completes the round) with
// the supplied text and grading key. Early advance is always permitted.
func (h *HostController) AdvanceQuestion(ctx context.Context, questionText, correctAnswer string) (*models.GameState, error) {
	state, err := h.game.AdvanceQuestion(ctx, questionText, correctAnswer)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.state = *state
	if state.Status == models.GameStatusQuestion {
		h.answerKey[state.QuestionIndex] = state.CorrectAnswer
	}
	h.mu.Unlock()
	return state, nil
}

// ResetSession wipes the whole session back to the lobby: game state, team
// roster and submission ledger. Irreversible.
func (h *HostController) ResetSession(ctx context.Context) (*models.GameState, error) {
	state, err := h.game.Reset(ctx)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.state = *state
	h.answerKey = make(map[int]string)
	h.mu.Unlock()
	return state, nil
}

// Scoreboard ranks every joined team for the currently active question.
func (h *HostController) Scoreboard(ctx context.Context) ([]models.LeaderboardRow, error) {
	state, err := h.game.Get(ctx)
	if err != nil {
		return nil, err
	}
	teams, err := h.roster.List(ctx)
	if err != nil {
		return nil, err
	}

	var submissions []models.Submission
	if state.QuestionIndex >= 0 {
		submissions, err = h.ledger.ListByQuestion(ctx, state.QuestionIndex)
		if err != nil {
			return nil, err
		}
	}
	return scoring.Rank(teams, submissions, state.QuestionIndex, state.CorrectAnswer), nil
}

// Standings tallies correctness and speed across the full round so far.
func (h *HostController) Standings(ctx context.Context) ([]models.StandingsRow, error) {
	teams, err := h.roster.List(ctx)
	if err != nil {
		return nil, err
	}
	submissions, err := h.ledger.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	key := make(map[int]string, len(h.answerKey))
	for idx, answer := range h.answerKey {
		key[idx] = answer
	}
	h.mu.RUnlock()

	return scoring.Standings(teams, submissions, key), nil
}

// Remaining reports the countdown value for the host display.
func (h *HostController) Remaining(now time.Time) time.Duration {
	h.mu.RLock()
	state := h.state
	h.mu.RUnlock()

	duration := time.Duration(h.game.Settings().QuestionDurationSec) * time.Second
	if !state.QuestionActive() {
		return duration
	}
	return clock.Remaining(now, state.QuestionStartMs, duration)
}
