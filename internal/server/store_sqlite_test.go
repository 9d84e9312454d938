package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lexio-game/api/internal/database"
	"github.com/lexio-game/api/internal/lexio"
	"github.com/lexio-game/api/internal/migrations"
	"github.com/lexio-game/api/internal/scoring"
)

func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return NewSQLiteStore(db)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := lexio.ParseDate(s)
	if err != nil {
		t.Fatalf("parsing date %q: %v", s, err)
	}
	return d
}

func winResult(playerID, wordID string, guesses, seconds int, day time.Time) lexio.GameResult {
	return lexio.GameResult{
		PlayerID:              playerID,
		WordID:                wordID,
		Won:                   true,
		GuessesUsed:           guesses,
		CompletionTimeSeconds: seconds,
		PlayedOn:              day,
	}
}

// TestStoreDatesRoundTrip pins down the date handling: columns are written
// as YYYY-MM-DD text but come back from the driver as time.Time, and every
// read path must normalize them to the original UTC day.
func TestStoreDatesRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	day := mustDate(t, "2026-03-10")

	if _, err := store.InsertResult(ctx, winResult("alice", "word-1", 2, 30, day)); err != nil {
		t.Fatalf("inserting result: %v", err)
	}
	results, err := store.WinningResults(ctx, "word-1")
	if err != nil {
		t.Fatalf("reading results: %v", err)
	}
	if len(results) != 1 || !results[0].PlayedOn.Equal(day) {
		t.Fatalf("playedOn = %v, want %v", results[0].PlayedOn, day)
	}

	history, err := store.PlayerCompletions(ctx, "alice")
	if err != nil {
		t.Fatalf("reading completions: %v", err)
	}
	if len(history) != 1 || !history[0].Date.Equal(day) {
		t.Fatalf("completion date = %v, want %v", history[0].Date, day)
	}

	upsertWin(t, store, "alice", "word-1", 2, 30, 0, day)
	st, err := store.PlayerStanding(ctx, "alice", "word-1")
	if err != nil {
		t.Fatalf("reading standing: %v", err)
	}
	if !st.Date.Equal(day) {
		t.Fatalf("standing date = %v, want %v", st.Date, day)
	}

	if _, err := store.ApplyCompletion(ctx, "alice", true, day); err != nil {
		t.Fatalf("applying completion: %v", err)
	}
	c, err := store.StreakCounters(ctx, "alice")
	if err != nil {
		t.Fatalf("reading counters: %v", err)
	}
	if c.LastWinDate == nil || !c.LastWinDate.Equal(day) {
		t.Fatalf("lastWinDate = %v, want %v", c.LastWinDate, day)
	}
	if c.StreakStartDate == nil || !c.StreakStartDate.Equal(day) {
		t.Fatalf("streakStartDate = %v, want %v", c.StreakStartDate, day)
	}
}

func TestInsertResultDeduplicates(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	day := mustDate(t, "2026-03-10")

	inserted, err := store.InsertResult(ctx, winResult("alice", "word-1", 3, 45, day))
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatal("first insert should report inserted=true")
	}

	// Redelivery of the same (player, word, day) is silently dropped.
	inserted, err = store.InsertResult(ctx, winResult("alice", "word-1", 5, 90, day))
	if err != nil {
		t.Fatalf("redelivered insert: %v", err)
	}
	if inserted {
		t.Fatal("redelivered insert should report inserted=false")
	}

	// Same player on a different day is a new row.
	inserted, err = store.InsertResult(ctx, winResult("alice", "word-1", 3, 45, day.AddDate(0, 0, 1)))
	if err != nil {
		t.Fatalf("next-day insert: %v", err)
	}
	if !inserted {
		t.Fatal("next-day insert should report inserted=true")
	}
}

func upsertWin(t *testing.T, store *SQLiteStore, playerID, wordID string, guesses, seconds, fuzzy int, day time.Time) {
	t.Helper()
	err := store.UpsertStandingAndRerank(context.Background(), lexio.Standing{
		PlayerID:        playerID,
		WordID:          wordID,
		BestGuesses:     guesses,
		BestTimeSeconds: seconds,
		FuzzyBonus:      fuzzy,
		Score:           scoring.Score(guesses, seconds, false, true).Score,
		Date:            day,
	})
	if err != nil {
		t.Fatalf("upserting standing for %s: %v", playerID, err)
	}
}

func TestUpsertStandingKeepsBest(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	day := mustDate(t, "2026-03-10")

	upsertWin(t, store, "alice", "word-1", 3, 45, 0, day)

	// A strictly worse result must not replace the stored best.
	upsertWin(t, store, "alice", "word-1", 4, 20, 0, day)
	st, err := store.PlayerStanding(ctx, "alice", "word-1")
	if err != nil {
		t.Fatalf("reading standing: %v", err)
	}
	if st.BestGuesses != 3 || st.BestTimeSeconds != 45 {
		t.Fatalf("worse result overwrote standing: got %d guesses / %ds", st.BestGuesses, st.BestTimeSeconds)
	}

	// An exact tie must not replace it either.
	upsertWin(t, store, "alice", "word-1", 3, 45, 0, day)
	st, _ = store.PlayerStanding(ctx, "alice", "word-1")
	if st.BestGuesses != 3 || st.BestTimeSeconds != 45 {
		t.Fatalf("tie overwrote standing: got %d guesses / %ds", st.BestGuesses, st.BestTimeSeconds)
	}

	// A strictly better result replaces it.
	upsertWin(t, store, "alice", "word-1", 2, 60, 0, day)
	st, _ = store.PlayerStanding(ctx, "alice", "word-1")
	if st.BestGuesses != 2 || st.BestTimeSeconds != 60 {
		t.Fatalf("better result did not overwrite standing: got %d guesses / %ds", st.BestGuesses, st.BestTimeSeconds)
	}
}

func TestUpsertStandingReranksWord(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	day := mustDate(t, "2026-03-10")

	// Canonical order: fewer guesses, then faster time, then higher fuzzy.
	upsertWin(t, store, "carol", "word-1", 3, 10, 0, day)
	upsertWin(t, store, "alice", "word-1", 2, 30, 0, day)
	upsertWin(t, store, "bob", "word-1", 2, 25, 0, day)

	standings, err := store.StandingsForWord(ctx, "word-1")
	if err != nil {
		t.Fatalf("reading standings: %v", err)
	}
	if len(standings) != 3 {
		t.Fatalf("expected 3 standings, got %d", len(standings))
	}

	wantOrder := []string{"bob", "alice", "carol"}
	for i, st := range standings {
		if st.PlayerID != wantOrder[i] {
			t.Errorf("position %d: got %s, want %s", i, st.PlayerID, wantOrder[i])
		}
		if st.Rank == nil || *st.Rank != i+1 {
			t.Errorf("player %s: rank not assigned as %d", st.PlayerID, i+1)
		}
		if !st.WasTop10 {
			t.Errorf("player %s: expected wasTop10", st.PlayerID)
		}
	}

	// A new best pushes everyone down one.
	upsertWin(t, store, "dave", "word-1", 1, 90, 0, day)
	st, err := store.PlayerStanding(ctx, "carol", "word-1")
	if err != nil {
		t.Fatalf("reading carol: %v", err)
	}
	if st.Rank == nil || *st.Rank != 4 {
		t.Fatalf("carol should drop to rank 4 after dave's win")
	}
}

func TestApplyCompletionPersistsCounters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	day1 := mustDate(t, "2026-03-10")

	c, err := store.ApplyCompletion(ctx, "alice", true, day1)
	if err != nil {
		t.Fatalf("first win: %v", err)
	}
	if c.CurrentStreak != 1 || c.HighestStreak != 1 {
		t.Fatalf("first win: got current=%d highest=%d", c.CurrentStreak, c.HighestStreak)
	}

	c, err = store.ApplyCompletion(ctx, "alice", true, day1.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("second win: %v", err)
	}
	if c.CurrentStreak != 2 || c.HighestStreak != 2 {
		t.Fatalf("consecutive win: got current=%d highest=%d", c.CurrentStreak, c.HighestStreak)
	}

	// Loss zeroes the current streak, the record survives.
	c, err = store.ApplyCompletion(ctx, "alice", false, day1.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("loss: %v", err)
	}
	if c.CurrentStreak != 0 || c.HighestStreak != 2 {
		t.Fatalf("loss: got current=%d highest=%d", c.CurrentStreak, c.HighestStreak)
	}

	stored, err := store.StreakCounters(ctx, "alice")
	if err != nil {
		t.Fatalf("reading counters: %v", err)
	}
	if stored.CurrentStreak != 0 || stored.HighestStreak != 2 {
		t.Fatalf("stored counters: got current=%d highest=%d", stored.CurrentStreak, stored.HighestStreak)
	}

	if _, err := store.StreakCounters(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown player: got %v, want ErrNotFound", err)
	}
}

func TestRebuildStreakFromHistory(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	day := mustDate(t, "2026-03-10")

	// Outcome log only; counters were never updated.
	for i, won := range []bool{true, true, false, true} {
		if _, err := store.InsertResult(ctx, lexio.GameResult{
			PlayerID:              "alice",
			WordID:                "word-1",
			Won:                   won,
			GuessesUsed:           3,
			CompletionTimeSeconds: 30,
			PlayedOn:              day.AddDate(0, 0, i),
		}); err != nil {
			t.Fatalf("seeding result %d: %v", i, err)
		}
	}

	c, err := store.RebuildStreak(ctx, "alice")
	if err != nil {
		t.Fatalf("rebuilding: %v", err)
	}
	if c.CurrentStreak != 1 || c.HighestStreak != 2 {
		t.Fatalf("rebuilt counters: got current=%d highest=%d, want 1/2", c.CurrentStreak, c.HighestStreak)
	}
	if c.LastWinDate == nil || !c.LastWinDate.Equal(day.AddDate(0, 0, 3)) {
		t.Fatalf("rebuilt lastWinDate = %v", c.LastWinDate)
	}
}

func TestSnapshotWriteOnce(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	day := mustDate(t, "2026-03-10")
	finalizedAt := time.Date(2026, 3, 11, 0, 5, 0, 0, time.UTC)

	snap := lexio.DailySnapshot{
		WordID: "word-1",
		Date:   day,
		Rankings: []lexio.SnapshotEntry{
			{PlayerID: "alice", Rank: 1, BestGuesses: 2, BestTimeSeconds: 30, Score: 870, WasTop10: true},
		},
		TotalPlayers: 1,
		Top10Count:   1,
		IsFinalized:  true,
		FinalizedAt:  &finalizedAt,
	}
	if err := store.InsertSnapshot(ctx, snap); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	// Second write for the same (word, date) must be rejected, not applied.
	snap.Rankings = nil
	snap.TotalPlayers = 0
	if err := store.InsertSnapshot(ctx, snap); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("second insert: got %v, want ErrAlreadyFinalized", err)
	}

	stored, err := store.Snapshot(ctx, "word-1", day)
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if stored.TotalPlayers != 1 || len(stored.Rankings) != 1 {
		t.Fatalf("stored snapshot mutated: players=%d rankings=%d", stored.TotalPlayers, len(stored.Rankings))
	}
	if !stored.IsFinalized || stored.FinalizedAt == nil {
		t.Fatal("stored snapshot lost finalization marker")
	}

	if _, err := store.Snapshot(ctx, "word-1", day.AddDate(0, 0, 1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing snapshot: got %v, want ErrNotFound", err)
	}
}

func TestDisplayNames(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if _, err := store.db.ExecContext(ctx, `
		INSERT INTO players (player_id, display_name) VALUES ('alice', 'Alice A'), ('bob', 'Bob B')
	`); err != nil {
		t.Fatalf("seeding players: %v", err)
	}

	names, err := store.DisplayNames(ctx, []string{"alice", "bob", "ghost"})
	if err != nil {
		t.Fatalf("resolving names: %v", err)
	}
	if names["alice"] != "Alice A" || names["bob"] != "Bob B" {
		t.Fatalf("unexpected names: %v", names)
	}
	if _, ok := names["ghost"]; ok {
		t.Fatal("unknown id should be absent")
	}

	names, err = store.DisplayNames(ctx, nil)
	if err != nil {
		t.Fatalf("empty lookup: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("empty lookup returned %v", names)
	}
}
