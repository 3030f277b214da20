package models

import (
	"time"
)

// GameStatus defines the lifecycle state of the screening round.
type GameStatus string

const (
	GameStatusLobby    GameStatus = "lobby"
	GameStatusQuestion GameStatus = "question"
	GameStatusResults  GameStatus = "results"
)

// GameStateKey is the document key of the single shared game state.
const GameStateKey = "master"

// LobbyQuestionText is shown while no question has been started yet.
const LobbyQuestionText = "Awaiting Host Start"

// RoundCompleteText is shown once every question has been played.
const RoundCompleteText = "Screening Round Complete!"

// GameState is the authoritative session document every participant
// converges on. The host is its only writer.
type GameState struct {
	Status GameStatus `json:"status"`
	// QuestionIndex is -1 in the lobby, 0-based while a question is live,
	// and equals the configured total once the round is complete.
	QuestionIndex int    `json:"question_index"`
	QuestionText  string `json:"question_text"`
	CorrectAnswer string `json:"correct_answer"`
	// QuestionStartMs is the shared absolute start instant in epoch
	// milliseconds, 0 when no question is running.
	QuestionStartMs int64     `json:"question_start_ms"`
	LastUpdate      time.Time `json:"last_update"`
}

// QuestionActive reports whether a countdown is currently running.
func (s GameState) QuestionActive() bool {
	return s.Status == GameStatusQuestion && s.QuestionStartMs > 0
}
