// Package scoring derives leaderboards from the roster and the submission
// ledger. Everything here is a pure read; no store writes happen on any
// scoring path.
package scoring

import (
	"sort"
	"strings"

	"github.com/areyouamarjeet/med-melody-quiz/internal/models"
)

// Normalize prepares an answer for comparison: whitespace-trimmed and
// lowercased.
func Normalize(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// Grade compares a submitted answer against the grading key. Grading is
// case- and whitespace-insensitive.
func Grade(answerText, correctAnswer string) models.AnswerStatus {
	if Normalize(answerText) == Normalize(correctAnswer) {
		return models.AnswerCorrect
	}
	return models.AnswerIncorrect
}

// Rank produces the live scoreboard for the active question. Grading is
// re-evaluated against the correct answer currently held by the game state,
// not frozen at submission time. Order: Correct before Incorrect before
// NoSubmission; among submitters of equal status, faster first; team name
// as the total-order tiebreak.
func Rank(teams []models.Team, submissions []models.Submission, questionIndex int, correctAnswer string) []models.LeaderboardRow {
	subsByTeam := make(map[string]models.Submission, len(submissions))
	for _, sub := range submissions {
		if sub.QuestionIndex == questionIndex {
			subsByTeam[sub.TeamID] = sub
		}
	}

	rows := make([]models.LeaderboardRow, 0, len(teams))
	for _, team := range teams {
		row := models.LeaderboardRow{
			TeamID:   team.ID,
			TeamName: team.Name,
			Status:   models.AnswerNoSubmission,
		}
		if sub, ok := subsByTeam[team.ID]; ok {
			row.Status = Grade(sub.AnswerText, correctAnswer)
			row.ElapsedMs = sub.ElapsedMs
			row.AnswerText = sub.AnswerText
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Status != b.Status {
			return a.Status > b.Status
		}
		if a.Status != models.AnswerNoSubmission && a.ElapsedMs != b.ElapsedMs {
			return a.ElapsedMs < b.ElapsedMs
		}
		return a.TeamName < b.TeamName
	})
	return rows
}

// Standings accumulates a cumulative tally across the round from the full
// submission history. answerKey maps question index to its grading key;
// submissions for questions missing from the key are counted as answered
// but cannot score. Order: correct answers desc, total elapsed time asc,
// team name asc.
func Standings(teams []models.Team, submissions []models.Submission, answerKey map[int]string) []models.StandingsRow {
	byTeam := make(map[string]*models.StandingsRow, len(teams))
	rows := make([]models.StandingsRow, 0, len(teams))
	for _, team := range teams {
		rows = append(rows, models.StandingsRow{TeamID: team.ID, TeamName: team.Name})
	}
	for i := range rows {
		byTeam[rows[i].TeamID] = &rows[i]
	}

	for _, sub := range submissions {
		row, ok := byTeam[sub.TeamID]
		if !ok {
			// Submission from a team no longer on the roster; skip.
			continue
		}
		row.AnsweredCount++
		row.TotalElapsedMs += sub.ElapsedMs
		if key, ok := answerKey[sub.QuestionIndex]; ok && Grade(sub.AnswerText, key) == models.AnswerCorrect {
			row.CorrectCount++
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.CorrectCount != b.CorrectCount {
			return a.CorrectCount > b.CorrectCount
		}
		if a.TotalElapsedMs != b.TotalElapsedMs {
			return a.TotalElapsedMs < b.TotalElapsedMs
		}
		return a.TeamName < b.TeamName
	})
	return rows
}
