package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/areyouamarjeet/med-melody-quiz/internal/clock"
	"github.com/areyouamarjeet/med-melody-quiz/internal/events"
	"github.com/areyouamarjeet/med-melody-quiz/internal/game"
	"github.com/areyouamarjeet/med-melody-quiz/internal/gameconfig"
	"github.com/areyouamarjeet/med-melody-quiz/internal/ledger"
	"github.com/areyouamarjeet/med-melody-quiz/internal/models"
	"github.com/areyouamarjeet/med-melody-quiz/internal/roster"
	"github.com/areyouamarjeet/med-melody-quiz/internal/session"
)

func newTestAPI(t *testing.T) (*API, *clockwork.FakeClock, gameconfig.RoundSettings) {
	t.Helper()

	settings := gameconfig.RoundSettings{
		QuestionDurationSec: 60,
		TotalQuestions:      3,
		HostAccessCode:      "HOSTCODE",
		TeamAccessCode:      "TEAMCODE",
	}
	clk := clockwork.NewFakeClockAt(time.Date(2026, 8, 30, 19, 0, 0, 0, time.UTC))
	bus := events.NewBus()

	rosterApp := roster.NewApp(roster.NewMemoryRepository(), bus, clk)
	ledgerApp := ledger.NewApp(ledger.NewMemoryRepository(), bus, clk)
	gameApp := game.NewApp(game.NewMemoryRepository(), rosterApp, ledgerApp, bus, clk, settings)

	host := session.NewHostController(gameApp, rosterApp, ledgerApp, bus)
	if err := host.Start(context.Background()); err != nil {
		t.Fatalf("host Start() error = %v", err)
	}
	t.Cleanup(host.Stop)

	newTeam := func(teamID string) *session.TeamController {
		tc := session.NewTeamController(teamID, rosterApp, ledgerApp, bus, clock.NewCountdown(clk), settings)
		tc.Start(context.Background(), host.State())
		return tc
	}
	cm := NewConnectionManager(DefaultConnectionConfig())
	return NewAPI(host, cm, clk, settings, newTeam), clk, settings
}

func doRequest(t *testing.T, api *API, method, path, code, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	api.Register(mux)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if code != "" {
		req.Header.Set(accessCodeHeader, code)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	api, _, _ := newTestAPI(t)
	rec := doRequest(t, api, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want 200", rec.Code)
	}
}

func TestJoinRequiresAccessCode(t *testing.T) {
	api, _, _ := newTestAPI(t)

	rec := doRequest(t, api, http.MethodPost, "/api/join", "WRONG", `{"team_id":"t1","team_name":"Neural Ninjas"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("join with wrong code status = %d, want 401", rec.Code)
	}
}

func TestJoinCreatesTeam(t *testing.T) {
	api, _, settings := newTestAPI(t)

	rec := doRequest(t, api, http.MethodPost, "/api/join", settings.TeamAccessCode, `{"team_id":"t1","team_name":"Neural Ninjas"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("join status = %d, body %s", rec.Code, rec.Body.String())
	}

	var team models.Team
	if err := json.Unmarshal(rec.Body.Bytes(), &team); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if team.ID != "t1" || team.Name != "Neural Ninjas" {
		t.Errorf("team = %+v", team)
	}
}

func TestJoinRejectsShortName(t *testing.T) {
	api, _, settings := newTestAPI(t)

	rec := doRequest(t, api, http.MethodPost, "/api/join", settings.TeamAccessCode, `{"team_id":"t1","team_name":"ab"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short name status = %d, want 400", rec.Code)
	}
}

func TestAdvanceRequiresHostCode(t *testing.T) {
	api, _, settings := newTestAPI(t)

	rec := doRequest(t, api, http.MethodPost, "/api/advance", settings.TeamAccessCode, `{"correct_answer":"Sepsis"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("advance with team code status = %d, want 401", rec.Code)
	}
}

func TestAdvanceWithoutAnswerRejected(t *testing.T) {
	api, _, settings := newTestAPI(t)

	rec := doRequest(t, api, http.MethodPost, "/api/advance", settings.HostAccessCode, `{"correct_answer":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("advance without answer status = %d, want 400", rec.Code)
	}
}

func TestSubmitFlowOverHTTP(t *testing.T) {
	api, clk, settings := newTestAPI(t)

	rec := doRequest(t, api, http.MethodPost, "/api/join", settings.TeamAccessCode, `{"team_id":"t1","team_name":"Neural Ninjas"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("join status = %d", rec.Code)
	}

	rec = doRequest(t, api, http.MethodPost, "/api/advance", settings.HostAccessCode, `{"correct_answer":"Sepsis"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("advance status = %d, body %s", rec.Code, rec.Body.String())
	}

	clk.Advance(3 * time.Second)

	rec = doRequest(t, api, http.MethodPost, "/api/submit", settings.TeamAccessCode, `{"team_id":"t1","answer_text":"sepsis"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.Outcome != "accepted" {
		t.Errorf("outcome = %q, want accepted", resp.Outcome)
	}
	if resp.Record == nil || resp.Record.ElapsedMs != 3000 {
		t.Errorf("record = %+v, want elapsed 3000", resp.Record)
	}

	// A second submit for the same question conflicts locally.
	rec = doRequest(t, api, http.MethodPost, "/api/submit", settings.TeamAccessCode, `{"team_id":"t1","answer_text":"again"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("second submit status = %d, want 409", rec.Code)
	}

	rec = doRequest(t, api, http.MethodGet, "/api/scoreboard", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("scoreboard status = %d", rec.Code)
	}
	var rows []models.LeaderboardRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Status != models.AnswerCorrect {
		t.Errorf("scoreboard rows = %+v, want one correct row", rows)
	}
}

func TestSubmitWithoutJoinConflicts(t *testing.T) {
	api, _, settings := newTestAPI(t)

	rec := doRequest(t, api, http.MethodPost, "/api/advance", settings.HostAccessCode, `{"correct_answer":"Sepsis"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("advance status = %d", rec.Code)
	}

	rec = doRequest(t, api, http.MethodPost, "/api/submit", settings.TeamAccessCode, `{"team_id":"ghost","answer_text":"sepsis"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("submit without join status = %d, want 409", rec.Code)
	}
}

func TestStateEndpoint(t *testing.T) {
	api, _, settings := newTestAPI(t)

	rec := doRequest(t, api, http.MethodGet, "/api/state", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("state status = %d", rec.Code)
	}
	var resp stateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.Status != models.GameStatusLobby {
		t.Errorf("status = %v, want lobby", resp.Status)
	}
	if resp.TotalQuestions != settings.TotalQuestions {
		t.Errorf("total_questions = %d, want %d", resp.TotalQuestions, settings.TotalQuestions)
	}
	if resp.RemainingSec != float64(settings.QuestionDurationSec) {
		t.Errorf("remaining_sec = %v, want full window in lobby", resp.RemainingSec)
	}
}

func TestResetEndpoint(t *testing.T) {
	api, _, settings := newTestAPI(t)

	if rec := doRequest(t, api, http.MethodPost, "/api/advance", settings.HostAccessCode, `{"correct_answer":"Sepsis"}`); rec.Code != http.StatusOK {
		t.Fatalf("advance status = %d", rec.Code)
	}

	rec := doRequest(t, api, http.MethodPost, "/api/reset", settings.HostAccessCode, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d, body %s", rec.Code, rec.Body.String())
	}
	var state models.GameState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if state.Status != models.GameStatusLobby || state.QuestionIndex != -1 {
		t.Errorf("state after reset = %+v, want lobby at index -1", state)
	}
}
