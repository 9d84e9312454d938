package server

import (
	"context"
	"errors"
	"time"

	"github.com/lexio-game/api/internal/lexio"
	"github.com/lexio-game/api/internal/streak"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrAlreadyFinalized is returned when a snapshot insert hits an
	// existing finalized row for the same word and date.
	ErrAlreadyFinalized = errors.New("snapshot already finalized")
)

// Store is the persistence surface for the scoring subsystem: the raw
// outcome log, current standings, streak counters and daily snapshots.
type Store interface {
	// InsertResult appends a completed game to the outcome log. Returns
	// false when the same (player, word, day) result was already recorded,
	// which makes redelivered events harmless.
	InsertResult(ctx context.Context, r lexio.GameResult) (bool, error)

	// WinningResults returns the raw winning outcomes for a word, best
	// first under the canonical ranking order. This is the leaderboard
	// fallback when no standings exist yet.
	WinningResults(ctx context.Context, wordID string) ([]lexio.GameResult, error)

	// WordsPlayedOn lists the distinct words with any recorded outcome on
	// the given day.
	WordsPlayedOn(ctx context.Context, day time.Time) ([]string, error)

	// PlayerCompletions returns a player's full completion history for
	// streak replay.
	PlayerCompletions(ctx context.Context, playerID string) ([]streak.Completion, error)

	// DisplayNames resolves player ids to display names. Unknown ids are
	// simply absent from the result.
	DisplayNames(ctx context.Context, playerIDs []string) (map[string]string, error)

	// UpsertStandingAndRerank records a winning result as the player's
	// standing for the word (only if strictly better than the stored one)
	// and recomputes dense ranks for every standing of that word. Both
	// steps run in a single transaction.
	UpsertStandingAndRerank(ctx context.Context, candidate lexio.Standing) error

	// StandingsForWord returns all standings for a word ordered by rank.
	StandingsForWord(ctx context.Context, wordID string) ([]lexio.Standing, error)

	// PlayerStanding returns one player's standing for a word, or
	// ErrNotFound.
	PlayerStanding(ctx context.Context, playerID, wordID string) (lexio.Standing, error)

	// ApplyCompletion runs the streak state machine for one completed game
	// and persists the updated counters.
	ApplyCompletion(ctx context.Context, playerID string, won bool, day time.Time) (lexio.StreakCounters, error)

	// StreakCounters returns a player's counters, or ErrNotFound when the
	// player has no history.
	StreakCounters(ctx context.Context, playerID string) (lexio.StreakCounters, error)

	// RebuildStreak replays the player's full history through the streak
	// state machine, keeping any higher stored personal record.
	RebuildStreak(ctx context.Context, playerID string) (lexio.StreakCounters, error)

	// Snapshot returns the daily snapshot for (word, date), or ErrNotFound.
	Snapshot(ctx context.Context, wordID string, day time.Time) (lexio.DailySnapshot, error)

	// InsertSnapshot writes a finalized snapshot exactly once. Returns
	// ErrAlreadyFinalized if one already exists for (word, date).
	InsertSnapshot(ctx context.Context, snap lexio.DailySnapshot) error
}

// OperatorStore handles operator accounts and sessions guarding the
// finalize and rebuild endpoints.
type OperatorStore interface {
	OperatorByEmail(ctx context.Context, email string) (operatorID, passwordHash string, err error)
	CreateOperatorSession(ctx context.Context, operatorID string) (sessionID string, err error)
	DeleteOperatorSession(ctx context.Context, sessionID string) error
	OperatorFromSession(ctx context.Context, sessionID string) (operatorSession, error)
	CountOperators(ctx context.Context) (int, error)
	CreateOperator(ctx context.Context, email, passwordHash string) error
}
