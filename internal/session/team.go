package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/areyouamarjeet/med-melody-quiz/internal/clock"
	"github.com/areyouamarjeet/med-melody-quiz/internal/events"
	"github.com/areyouamarjeet/med-melody-quiz/internal/gameconfig"
	"github.com/areyouamarjeet/med-melody-quiz/internal/ledger"
	"github.com/areyouamarjeet/med-melody-quiz/internal/models"
	"github.com/areyouamarjeet/med-melody-quiz/internal/roster"
)

// MinAnswerLen matches the answer form of the original event.
const MinAnswerLen = 2

// Local validation errors. All are surfaced to the submitting team before
// any store interaction.
var (
	ErrNotJoined        = errors.New("team has not joined the session")
	ErrNoActiveQuestion = errors.New("no question is currently active")
	ErrAlreadyAnswered  = errors.New("already answered this question")
	ErrTimeExpired      = errors.New("the countdown for this question has expired")
	ErrAnswerTooShort   = fmt.Errorf("answer must be at least %d characters", MinAnswerLen)
)

// LocalSubmissionStatus is the team's one-shot lock for the active
// question. It is a latency optimization only; the ledger's atomic insert
// is the correctness guarantee.
type LocalSubmissionStatus string

const (
	SubmissionOpen      LocalSubmissionStatus = ""
	SubmissionSubmitted LocalSubmissionStatus = "submitted"
	SubmissionTimedOut  LocalSubmissionStatus = "timeout"
)

// TeamController drives the session for one participant team. It converges
// on the host's game state via pushed notifications and runs a local
// countdown for the active question.
type TeamController struct {
	teamID    string
	roster    *roster.App
	ledger    *ledger.App
	bus       events.Subscriber
	countdown *clock.Countdown
	settings  gameconfig.RoundSettings

	mu        sync.RWMutex
	joined    bool
	teamName  string
	state     models.GameState
	status    LocalSubmissionStatus
	remaining time.Duration

	cancelCountdown context.CancelFunc
	unsubscribe     func()
}

// NewTeamController creates a controller for the team identified by teamID.
// The identity comes from external provisioning; the controller never
// issues it.
func NewTeamController(teamID string, rosterApp *roster.App, ledgerApp *ledger.App, bus events.Subscriber, countdown *clock.Countdown, settings gameconfig.RoundSettings) *TeamController {
	return &TeamController{
		teamID:    teamID,
		roster:    rosterApp,
		ledger:    ledgerApp,
		bus:       bus,
		countdown: countdown,
		settings:  settings,
		remaining: time.Duration(settings.QuestionDurationSec) * time.Second,
	}
}

// Start subscribes the controller to change notifications and seeds its
// snapshot from the given state.
func (t *TeamController) Start(ctx context.Context, initial models.GameState) {
	t.mu.Lock()
	t.state = initial
	t.mu.Unlock()

	t.unsubscribe = t.bus.Subscribe(func(_ context.Context, eventType string, payload []byte) {
		t.handleEvent(ctx, eventType, payload)
	})

	if initial.QuestionActive() {
		t.startCountdown(ctx, initial.QuestionStartMs)
	}
}

// Stop detaches the controller and stops any running countdown.
func (t *TeamController) Stop() {
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
	t.mu.Lock()
	if t.cancelCountdown != nil {
		t.cancelCountdown()
		t.cancelCountdown = nil
	}
	t.mu.Unlock()
}

func (t *TeamController) handleEvent(ctx context.Context, eventType string, payload []byte) {
	switch eventType {
	case events.TypeQuestionStarted:
		var p events.QuestionStartedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			log.Error().Err(err).Msg("failed to unmarshal QuestionStarted payload")
			return
		}
		t.mu.Lock()
		t.state = models.GameState{
			Status:          models.GameStatusQuestion,
			QuestionIndex:   p.QuestionIndex,
			QuestionText:    p.QuestionText,
			QuestionStartMs: p.StartMs,
		}
		// A new question reopens the one-shot lock.
		t.status = SubmissionOpen
		t.mu.Unlock()
		t.startCountdown(ctx, p.StartMs)

	case events.TypeRoundCompleted:
		t.mu.Lock()
		t.state = models.GameState{
			Status:        models.GameStatusResults,
			QuestionIndex: t.settings.TotalQuestions,
			QuestionText:  models.RoundCompleteText,
		}
		t.stopCountdownLocked()
		t.mu.Unlock()

	case events.TypeGameReset:
		t.mu.Lock()
		t.state = models.GameState{
			Status:        models.GameStatusLobby,
			QuestionIndex: -1,
			QuestionText:  models.LobbyQuestionText,
		}
		t.status = SubmissionOpen
		// The reset wiped the roster; the team must join again.
		t.joined = false
		t.stopCountdownLocked()
		t.remaining = t.questionDuration()
		t.mu.Unlock()
	}
}

func (t *TeamController) questionDuration() time.Duration {
	return time.Duration(t.settings.QuestionDurationSec) * time.Second
}

func (t *TeamController) stopCountdownLocked() {
	if t.cancelCountdown != nil {
		t.cancelCountdown()
		t.cancelCountdown = nil
	}
}

// startCountdown runs the ~10Hz local tick for the question window. When the
// window closes without a submission the one-shot lock latches to timeout so
// a late click can no longer reach the ledger from this client.
func (t *TeamController) startCountdown(ctx context.Context, startMs int64) {
	t.mu.Lock()
	t.stopCountdownLocked()
	countdownCtx, cancel := context.WithCancel(ctx)
	t.cancelCountdown = cancel
	t.remaining = clock.Remaining(t.countdown.Now(), startMs, t.questionDuration())
	t.mu.Unlock()

	go t.countdown.Run(countdownCtx, startMs, t.questionDuration(), func(remaining time.Duration) {
		t.mu.Lock()
		t.remaining = remaining
		if remaining == 0 && t.status == SubmissionOpen {
			t.status = SubmissionTimedOut
		}
		t.mu.Unlock()
	})
}

// Join registers the team under the given display name. Idempotent on the
// team identity: a second call overwrites the name, never duplicates.
func (t *TeamController) Join(ctx context.Context, name string) (*models.Team, error) {
	team, err := t.roster.Join(ctx, t.teamID, name)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.joined = true
	t.teamName = team.Name
	t.mu.Unlock()
	return team, nil
}

// SubmitAnswer submits the team's answer for the active question. The local
// preconditions (joined, question active, countdown running, lock open) are
// all checked before the ledger is invoked; once the ledger answers, the
// one-shot lock latches regardless of Accepted or AlreadySubmitted.
func (t *TeamController) SubmitAnswer(ctx context.Context, answerText string) (ledger.Result, error) {
	answerText = strings.TrimSpace(answerText)

	t.mu.Lock()
	if !t.joined {
		t.mu.Unlock()
		return ledger.Result{}, ErrNotJoined
	}
	if t.state.Status != models.GameStatusQuestion || t.state.QuestionStartMs == 0 {
		t.mu.Unlock()
		return ledger.Result{}, ErrNoActiveQuestion
	}
	switch t.status {
	case SubmissionSubmitted:
		t.mu.Unlock()
		return ledger.Result{}, ErrAlreadyAnswered
	case SubmissionTimedOut:
		t.mu.Unlock()
		return ledger.Result{}, ErrTimeExpired
	}
	if len(answerText) < MinAnswerLen {
		t.mu.Unlock()
		return ledger.Result{}, ErrAnswerTooShort
	}

	now := t.countdown.Now()
	if clock.Remaining(now, t.state.QuestionStartMs, t.questionDuration()) == 0 {
		t.status = SubmissionTimedOut
		t.mu.Unlock()
		return ledger.Result{}, ErrTimeExpired
	}

	teamID := t.teamID
	teamName := t.teamName
	questionIndex := t.state.QuestionIndex
	elapsedMs := now.UnixMilli() - t.state.QuestionStartMs
	t.mu.Unlock()

	result, err := t.ledger.Submit(ctx, teamID, teamName, questionIndex, answerText, elapsedMs)
	if err != nil {
		return ledger.Result{}, err
	}

	if result.Outcome == ledger.OutcomeAccepted || result.Outcome == ledger.OutcomeAlreadySubmitted {
		t.mu.Lock()
		// Latch only if the question has not moved on meanwhile.
		if t.state.QuestionIndex == questionIndex && t.status == SubmissionOpen {
			t.status = SubmissionSubmitted
		}
		t.mu.Unlock()
	}
	return result, nil
}

// Status returns the local one-shot submission status.
func (t *TeamController) Status() LocalSubmissionStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// State returns the team's current view of the game state.
func (t *TeamController) State() models.GameState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Remaining reports the local countdown display value.
func (t *TeamController) Remaining() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.remaining
}

// Joined reports whether the team has a roster record.
func (t *TeamController) Joined() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.joined
}
