package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lexio-game/api/internal/lexio"
	"github.com/lexio-game/api/internal/scoring"
)

// finalizeParallelism bounds how many words are finalized concurrently.
const finalizeParallelism = 4

// Finalizer freezes a day's standings into immutable snapshots. Each word
// is one atomic write, so a canceled or failed run leaves the remaining
// words eligible for the next scheduled attempt.
type Finalizer struct {
	store  Store
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

func NewFinalizer(store Store, cache *Cache, logger *slog.Logger) *Finalizer {
	return &Finalizer{store: store, cache: cache, logger: logger, now: time.Now}
}

// FinalizedWord reports one successfully frozen word.
type FinalizedWord struct {
	WordID       string `json:"wordId"`
	Date         string `json:"date"`
	TotalPlayers int    `json:"totalPlayers"`
	Top10Count   int    `json:"top10Count"`
}

// FinalizeError reports one word that could not be frozen this run.
type FinalizeError struct {
	WordID string `json:"wordId"`
	Error  string `json:"error"`
}

// FinalizeReport aggregates a whole finalization run.
type FinalizeReport struct {
	Finalized []FinalizedWord `json:"finalized"`
	Errors    []FinalizeError `json:"errors"`
}

// FinalizeWord freezes the current standings of one word for the given
// date. Idempotent: an existing finalized snapshot is returned unchanged
// with created=false. A word without standings freezes to an empty,
// zero-player snapshot — a day can close with no winners.
func (f *Finalizer) FinalizeWord(ctx context.Context, wordID string, date time.Time) (lexio.DailySnapshot, bool, error) {
	if snap, err := f.store.Snapshot(ctx, wordID, date); err == nil {
		return snap, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return lexio.DailySnapshot{}, false, fmt.Errorf("reading snapshot: %w", err)
	}

	standings, err := f.store.StandingsForWord(ctx, wordID)
	if err != nil {
		return lexio.DailySnapshot{}, false, fmt.Errorf("reading standings: %w", err)
	}

	entries := make([]lexio.SnapshotEntry, 0, len(standings))
	top10 := 0
	for _, st := range scoring.Rank(standings) {
		e := lexio.SnapshotEntry{
			PlayerID:        st.PlayerID,
			Rank:            *st.Rank,
			BestGuesses:     st.BestGuesses,
			BestTimeSeconds: st.BestTimeSeconds,
			Score:           st.Score,
			WasTop10:        st.WasTop10,
		}
		if e.WasTop10 {
			top10++
		}
		entries = append(entries, e)
	}

	finalizedAt := f.now().UTC()
	snap := lexio.DailySnapshot{
		WordID:       wordID,
		Date:         lexio.Day(date),
		Rankings:     entries,
		TotalPlayers: len(entries),
		Top10Count:   top10,
		IsFinalized:  true,
		FinalizedAt:  &finalizedAt,
	}

	if err := f.store.InsertSnapshot(ctx, snap); err != nil {
		if errors.Is(err, ErrAlreadyFinalized) {
			// Lost the race to a concurrent run; the stored row wins.
			stored, serr := f.store.Snapshot(ctx, wordID, date)
			if serr != nil {
				return lexio.DailySnapshot{}, false, serr
			}
			return stored, false, nil
		}
		return lexio.DailySnapshot{}, false, fmt.Errorf("writing snapshot: %w", err)
	}

	f.cache.Invalidate(ctx, wordID)
	return snap, true, nil
}

// FinalizeDay freezes every word played on the given day that is not yet
// finalized. Words fail in isolation: an error on one is recorded in the
// report and the rest continue.
func (f *Finalizer) FinalizeDay(ctx context.Context, date time.Time) (FinalizeReport, error) {
	words, err := f.store.WordsPlayedOn(ctx, date)
	if err != nil {
		return FinalizeReport{}, fmt.Errorf("listing words for %s: %w", day(date), err)
	}

	report := FinalizeReport{
		Finalized: []FinalizedWord{},
		Errors:    []FinalizeError{},
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(finalizeParallelism)

	for _, wordID := range words {
		g.Go(func() error {
			snap, created, err := f.FinalizeWord(gctx, wordID, date)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				f.logger.Error("finalization failed", "word", wordID, "date", day(date), "error", err)
				report.Errors = append(report.Errors, FinalizeError{WordID: wordID, Error: err.Error()})
				return nil
			}
			if created {
				report.Finalized = append(report.Finalized, FinalizedWord{
					WordID:       wordID,
					Date:         day(snap.Date),
					TotalPlayers: snap.TotalPlayers,
					Top10Count:   snap.Top10Count,
				})
			}
			return nil
		})
	}
	g.Wait()

	f.logger.Info("finalization run complete",
		"date", day(date),
		"words", len(words),
		"finalized", len(report.Finalized),
		"errors", len(report.Errors),
	)
	return report, nil
}
