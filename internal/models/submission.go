package models

import (
	"time"

	"github.com/google/uuid"
)

// Submission is one accepted answer. At most one exists per
// (TeamID, QuestionIndex) pair, enforced by the ledger.
type Submission struct {
	ID            uuid.UUID `json:"id"`
	TeamID        string    `json:"team_id"`
	TeamName      string    `json:"team_name"`
	QuestionIndex int       `json:"question_index"`
	AnswerText    string    `json:"answer_text"`
	// ElapsedMs is the time from question start to submission receipt.
	ElapsedMs  int64     `json:"elapsed_ms"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// AnswerStatus grades a team's standing on a single question.
type AnswerStatus int

const (
	AnswerNoSubmission AnswerStatus = iota
	AnswerIncorrect
	AnswerCorrect
)

func (s AnswerStatus) String() string {
	switch s {
	case AnswerCorrect:
		return "correct"
	case AnswerIncorrect:
		return "incorrect"
	default:
		return "no_submission"
	}
}

// LeaderboardRow is a derived scoreboard entry for the active question.
// It is never persisted.
type LeaderboardRow struct {
	TeamID     string       `json:"team_id"`
	TeamName   string       `json:"team_name"`
	Status     AnswerStatus `json:"status"`
	ElapsedMs  int64        `json:"elapsed_ms"`
	AnswerText string       `json:"answer_text,omitempty"`
}

// StandingsRow is a derived cumulative tally across the whole round.
type StandingsRow struct {
	TeamID         string `json:"team_id"`
	TeamName       string `json:"team_name"`
	CorrectCount   int    `json:"correct_count"`
	AnsweredCount  int    `json:"answered_count"`
	TotalElapsedMs int64  `json:"total_elapsed_ms"`
}
