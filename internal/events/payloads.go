package events

import (
	"time"
)

// Event type names carried on the bus and as NATS subject suffixes.
const (
	TypeQuestionStarted    = "QuestionStarted"
	TypeRoundCompleted     = "RoundCompleted"
	TypeGameReset          = "GameReset"
	TypeSubmissionAccepted = "SubmissionAccepted"
	TypeTeamJoined         = "TeamJoined"
)

// QuestionStartedPayload is emitted when the host opens a question window.
type QuestionStartedPayload struct {
	QuestionIndex int    `json:"question_index"`
	QuestionText  string `json:"question_text"`
	// StartMs is the shared absolute start instant in epoch milliseconds.
	StartMs     int64 `json:"start_ms"`
	DurationSec int   `json:"duration_sec"`
}

// RoundCompletedPayload is emitted once the last question has been played.
type RoundCompletedPayload struct {
	TotalQuestions int       `json:"total_questions"`
	CompletedAt    time.Time `json:"completed_at"`
}

// GameResetPayload is emitted when the host wipes the session back to lobby.
type GameResetPayload struct {
	ResetAt            time.Time `json:"reset_at"`
	TeamsCleared       int       `json:"teams_cleared"`
	SubmissionsCleared int       `json:"submissions_cleared"`
}

// SubmissionAcceptedPayload is emitted for every answer the ledger records.
type SubmissionAcceptedPayload struct {
	SubmissionID  string    `json:"submission_id"`
	TeamID        string    `json:"team_id"`
	TeamName      string    `json:"team_name"`
	QuestionIndex int       `json:"question_index"`
	ElapsedMs     int64     `json:"elapsed_ms"`
	AcceptedAt    time.Time `json:"accepted_at"`
}

// TeamJoinedPayload is emitted when a team record is created or renamed.
type TeamJoinedPayload struct {
	TeamID   string    `json:"team_id"`
	TeamName string    `json:"team_name"`
	JoinedAt time.Time `json:"joined_at"`
}
