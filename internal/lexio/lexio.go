// Package lexio defines the core domain types for the daily word game's
// competitive scoring subsystem. It has zero external dependencies —
// everything here is pure Go.
package lexio

import "time"

// DateLayout is the calendar-date format used everywhere a date crosses a
// boundary (API payloads, database columns). All dates are UTC.
const DateLayout = time.DateOnly

// GameResult is a single completed game as reported by the game-session
// service. One row per (player, word, date); redeliveries are ignored.
type GameResult struct {
	PlayerID              string
	WordID                string
	Won                   bool
	GuessesUsed           int
	CompletionTimeSeconds int
	UsedHint              bool
	FuzzyBonus            int
	PlayedOn              time.Time
	CreatedAt             time.Time
}

// Standing is a player's current best recorded result for one word.
// Rank is nil until the first ranking pass for the word has run.
type Standing struct {
	PlayerID        string
	WordID          string
	Rank            *int
	WasTop10        bool
	BestGuesses     int
	BestTimeSeconds int
	FuzzyBonus      int
	Score           int
	Date            time.Time
	UpdatedAt       time.Time
}

// StreakCounters tracks a player's consecutive-day win streak.
// HighestStreak is a personal record: it never decreases.
type StreakCounters struct {
	PlayerID        string
	CurrentStreak   int
	HighestStreak   int
	StreakStartDate *time.Time
	LastWinDate     *time.Time
	UpdatedAt       time.Time
}

// SnapshotEntry is one row of a finalized daily ranking.
type SnapshotEntry struct {
	PlayerID        string `json:"playerId"`
	Rank            int    `json:"rank"`
	BestGuesses     int    `json:"bestGuesses"`
	BestTimeSeconds int    `json:"bestTimeSeconds"`
	Score           int    `json:"score"`
	WasTop10        bool   `json:"wasTop10"`
}

// DailySnapshot is the immutable end-of-day record for one word.
// Once IsFinalized is set the row is never mutated again.
type DailySnapshot struct {
	WordID       string
	Date         time.Time
	Rankings     []SnapshotEntry
	TotalPlayers int
	Top10Count   int
	IsFinalized  bool
	FinalizedAt  *time.Time
}

// ParseDate parses a calendar date in DateLayout, normalized to UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
