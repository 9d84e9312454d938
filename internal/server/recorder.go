package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v4"

	"github.com/lexio-game/api/internal/lexio"
	"github.com/lexio-game/api/internal/scoring"
)

// Recorder turns a completed-game event into score, standing and streak
// mutations. Standing upsert plus rerank is serialized per word; the streak
// update is independent per player. Either update failing leaves the other
// in place — the event is idempotent, so the caller simply retries.
type Recorder struct {
	store  Store
	cache  *Cache
	logger *slog.Logger
	locks  wordLocks
}

func NewRecorder(store Store, cache *Cache, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, cache: cache, logger: logger}
}

// RecordOutcome is what a single accepted event produced.
type RecordOutcome struct {
	Score     scoring.Result
	Standing  *lexio.Standing
	Streak    lexio.StreakCounters
	Duplicate bool
}

// Record processes one completed-game event end to end.
func (rec *Recorder) Record(ctx context.Context, ev lexio.GameResult) (RecordOutcome, error) {
	inserted, err := rec.store.InsertResult(ctx, ev)
	if err != nil {
		return RecordOutcome{}, fmt.Errorf("recording outcome: %w", err)
	}

	out := RecordOutcome{
		Score:     scoring.Score(ev.GuessesUsed, ev.CompletionTimeSeconds, ev.UsedHint, ev.Won),
		Duplicate: !inserted,
	}
	if out.Duplicate {
		rec.logger.Info("duplicate result delivery",
			"player", ev.PlayerID, "word", ev.WordID, "date", day(ev.PlayedOn))
	}

	// Losses never enter the leaderboard; only wins touch standings.
	if ev.Won {
		candidate := lexio.Standing{
			PlayerID:        ev.PlayerID,
			WordID:          ev.WordID,
			BestGuesses:     ev.GuessesUsed,
			BestTimeSeconds: ev.CompletionTimeSeconds,
			FuzzyBonus:      ev.FuzzyBonus,
			Score:           out.Score.Score,
			Date:            ev.PlayedOn,
		}

		unlock := rec.locks.lock(ev.WordID)
		err = withRetry(ctx, func() error {
			return rec.store.UpsertStandingAndRerank(ctx, candidate)
		})
		unlock()
		if err != nil {
			return out, fmt.Errorf("updating standing: %w", err)
		}
		rec.cache.Invalidate(ctx, ev.WordID)

		st, err := rec.store.PlayerStanding(ctx, ev.PlayerID, ev.WordID)
		if err != nil {
			return out, fmt.Errorf("reading standing: %w", err)
		}
		out.Standing = &st
	}

	// A redelivered event was already applied to the counters; re-running
	// the state machine would replay an old day. Serve the stored state.
	if out.Duplicate {
		counters, err := rec.store.StreakCounters(ctx, ev.PlayerID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return out, fmt.Errorf("reading streak: %w", err)
		}
		out.Streak = counters
		return out, nil
	}

	err = withRetry(ctx, func() error {
		var err error
		out.Streak, err = rec.store.ApplyCompletion(ctx, ev.PlayerID, ev.Won, ev.PlayedOn)
		return err
	})
	if err != nil {
		// The standing is already committed; the stores are reconciled by
		// the caller redelivering the same event.
		rec.logger.Error("standing recorded but streak update failed",
			"player", ev.PlayerID, "word", ev.WordID, "error", err)
		return out, fmt.Errorf("updating streak: %w", err)
	}

	return out, nil
}

// wordLocks serializes standing writes per word. Lazily grown, never
// shrunk; the word set is one entry per day.
type wordLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *wordLocks) lock(wordID string) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	wm, ok := l.m[wordID]
	if !ok {
		wm = &sync.Mutex{}
		l.m[wordID] = wm
	}
	l.mu.Unlock()

	wm.Lock()
	return wm.Unlock
}

// withRetry re-runs op with exponential backoff while it fails with a
// SQLite busy/locked error. Anything else is permanent: conflicts are the
// only error class worth retrying here (the update itself is deterministic).
func withRetry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil || isBusy(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
