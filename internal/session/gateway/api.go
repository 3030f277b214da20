package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/areyouamarjeet/med-melody-quiz/internal/game"
	"github.com/areyouamarjeet/med-melody-quiz/internal/gameconfig"
	"github.com/areyouamarjeet/med-melody-quiz/internal/models"
	"github.com/areyouamarjeet/med-melody-quiz/internal/roster"
	"github.com/areyouamarjeet/med-melody-quiz/internal/session"
)

// accessCodeHeader carries the shared host or team access code of the
// original event. This is gating, not authentication.
const accessCodeHeader = "X-Access-Code"

// TeamControllerFactory creates and starts a controller for a team
// identity on its first request.
type TeamControllerFactory func(teamID string) *session.TeamController

// API is the JSON HTTP surface of the session service.
type API struct {
	host     *session.HostController
	cm       *ConnectionManager
	clock    clockwork.Clock
	settings gameconfig.RoundSettings
	newTeam  TeamControllerFactory

	mu    sync.Mutex
	teams map[string]*session.TeamController
}

// NewAPI creates the HTTP API.
func NewAPI(host *session.HostController, cm *ConnectionManager, clk clockwork.Clock, settings gameconfig.RoundSettings, newTeam TeamControllerFactory) *API {
	return &API{
		host:     host,
		cm:       cm,
		clock:    clk,
		settings: settings,
		newTeam:  newTeam,
		teams:    make(map[string]*session.TeamController),
	}
}

// Register mounts every route on the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/join", a.handleJoin)
	mux.HandleFunc("POST /api/submit", a.handleSubmit)
	mux.HandleFunc("POST /api/advance", a.handleAdvance)
	mux.HandleFunc("POST /api/reset", a.handleReset)
	mux.HandleFunc("GET /api/state", a.handleState)
	mux.HandleFunc("GET /api/scoreboard", a.handleScoreboard)
	mux.HandleFunc("GET /api/standings", a.handleStandings)
	mux.HandleFunc("GET /ws", a.handleWebSocket)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (a *API) teamController(teamID string) *session.TeamController {
	a.mu.Lock()
	defer a.mu.Unlock()
	if tc, ok := a.teams[teamID]; ok {
		return tc
	}
	tc := a.newTeam(teamID)
	a.teams[teamID] = tc
	return tc
}

type joinRequest struct {
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
}

func (a *API) handleJoin(w http.ResponseWriter, r *http.Request) {
	if !a.requireCode(w, r, a.settings.TeamAccessCode) {
		return
	}
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TeamID == "" {
		writeError(w, http.StatusBadRequest, "team_id is required")
		return
	}

	team, err := a.teamController(req.TeamID).Join(r.Context(), req.TeamName)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

type submitRequest struct {
	TeamID     string `json:"team_id"`
	AnswerText string `json:"answer_text"`
}

type submitResponse struct {
	Outcome string             `json:"outcome"`
	Reason  string             `json:"reason,omitempty"`
	Record  *models.Submission `json:"record,omitempty"`
}

func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !a.requireCode(w, r, a.settings.TeamAccessCode) {
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TeamID == "" {
		writeError(w, http.StatusBadRequest, "team_id is required")
		return
	}

	result, err := a.teamController(req.TeamID).SubmitAnswer(r.Context(), req.AnswerText)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Outcome: result.Outcome.String(),
		Reason:  result.Reason,
		Record:  result.Submission,
	})
}

type advanceRequest struct {
	QuestionText  string `json:"question_text"`
	CorrectAnswer string `json:"correct_answer"`
}

func (a *API) handleAdvance(w http.ResponseWriter, r *http.Request) {
	if !a.requireCode(w, r, a.settings.HostAccessCode) {
		return
	}
	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := a.host.AdvanceQuestion(r.Context(), req.QuestionText, req.CorrectAnswer)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (a *API) handleReset(w http.ResponseWriter, r *http.Request) {
	if !a.requireCode(w, r, a.settings.HostAccessCode) {
		return
	}
	state, err := a.host.ResetSession(r.Context())
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type stateResponse struct {
	models.GameState
	RemainingSec   float64 `json:"remaining_sec"`
	TotalQuestions int     `json:"total_questions"`
}

func (a *API) handleState(w http.ResponseWriter, r *http.Request) {
	state := a.host.State()
	writeJSON(w, http.StatusOK, stateResponse{
		GameState:      state,
		RemainingSec:   a.host.Remaining(a.clock.Now()).Seconds(),
		TotalQuestions: a.settings.TotalQuestions,
	})
}

func (a *API) handleScoreboard(w http.ResponseWriter, r *http.Request) {
	rows, err := a.host.Scoreboard(r.Context())
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleStandings(w http.ResponseWriter, r *http.Request) {
	rows, err := a.host.Standings(r.Context())
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")
	if err := a.cm.UpgradeConnection(w, r, teamID); err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
	}
}

func (a *API) requireCode(w http.ResponseWriter, r *http.Request, want string) bool {
	if want == "" || r.Header.Get(accessCodeHeader) == want {
		return true
	}
	writeError(w, http.StatusUnauthorized, "invalid access code")
	return false
}

// writeDomainError maps domain errors onto HTTP statuses. Validation
// failures are the caller's problem; anything else is a degraded store.
func (a *API) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNoCorrectAnswer),
		errors.Is(err, roster.ErrTeamNameTooShort),
		errors.Is(err, session.ErrAnswerTooShort):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrRoundComplete),
		errors.Is(err, session.ErrNotJoined),
		errors.Is(err, session.ErrNoActiveQuestion),
		errors.Is(err, session.ErrAlreadyAnswered),
		errors.Is(err, session.ErrTimeExpired):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Error().Err(err).Msg("store operation failed")
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
