package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lexio-game/api/internal/lexio"
	"github.com/lexio-game/api/internal/scoring"
	"github.com/lexio-game/api/internal/streak"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func day(t time.Time) string { return lexio.Day(t).Format(lexio.DateLayout) }

// Date columns are written as YYYY-MM-DD text, but go-libsql hands
// date-shaped TEXT back as time.Time. Reads scan time.Time and normalize
// with lexio.Day rather than re-parsing strings.

func (s *SQLiteStore) InsertResult(ctx context.Context, r lexio.GameResult) (bool, error) {
	var seconds sql.NullInt64
	if r.Won {
		seconds = sql.NullInt64{Int64: int64(r.CompletionTimeSeconds), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO game_results
			(player_id, word_id, won, guesses_used, completion_time_seconds, used_hint, fuzzy_bonus, played_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (player_id, word_id, played_on) DO NOTHING
	`, r.PlayerID, r.WordID, r.Won, r.GuessesUsed, seconds, r.UsedHint, r.FuzzyBonus, day(r.PlayedOn))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStore) WinningResults(ctx context.Context, wordID string) ([]lexio.GameResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, word_id, guesses_used, completion_time_seconds, used_hint, fuzzy_bonus, played_on
		FROM game_results
		WHERE word_id = ? AND won = 1
		ORDER BY guesses_used, completion_time_seconds, fuzzy_bonus DESC, created_at
	`, wordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []lexio.GameResult
	for rows.Next() {
		r := lexio.GameResult{Won: true}
		var seconds sql.NullInt64
		var playedOn time.Time
		if err := rows.Scan(&r.PlayerID, &r.WordID, &r.GuessesUsed, &seconds, &r.UsedHint, &r.FuzzyBonus, &playedOn); err != nil {
			return nil, err
		}
		r.CompletionTimeSeconds = int(seconds.Int64)
		r.PlayedOn = lexio.Day(playedOn)
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) WordsPlayedOn(ctx context.Context, d time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT word_id FROM game_results WHERE played_on = ? ORDER BY word_id
	`, day(d))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

func (s *SQLiteStore) PlayerCompletions(ctx context.Context, playerID string) ([]streak.Completion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT won, played_on FROM game_results WHERE player_id = ? ORDER BY played_on
	`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []streak.Completion
	for rows.Next() {
		var c streak.Completion
		var playedOn time.Time
		if err := rows.Scan(&c.Won, &playedOn); err != nil {
			return nil, err
		}
		c.Date = lexio.Day(playedOn)
		history = append(history, c)
	}
	return history, rows.Err()
}

func (s *SQLiteStore) DisplayNames(ctx context.Context, playerIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(playerIDs))
	if len(playerIDs) == 0 {
		return names, nil
	}

	query := `SELECT player_id, display_name FROM players WHERE player_id IN (?` +
		strings.Repeat(",?", len(playerIDs)-1) + `)`
	args := make([]any, len(playerIDs))
	for i, id := range playerIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

func (s *SQLiteStore) UpsertStandingAndRerank(ctx context.Context, candidate lexio.Standing) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current lexio.Standing
	err = tx.QueryRowContext(ctx, `
		SELECT best_guesses, best_time_seconds, fuzzy_bonus
		FROM standings WHERE player_id = ? AND word_id = ?
	`, candidate.PlayerID, candidate.WordID).Scan(
		&current.BestGuesses, &current.BestTimeSeconds, &current.FuzzyBonus)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First standing for this (player, word).
	case err != nil:
		return err
	case !scoring.Better(candidate, current):
		// Not an improvement (including exact ties): keep the stored
		// standing and the existing ranks.
		return nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO standings
			(player_id, word_id, best_guesses, best_time_seconds, fuzzy_bonus, score, date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (player_id, word_id) DO UPDATE SET
			best_guesses      = excluded.best_guesses,
			best_time_seconds = excluded.best_time_seconds,
			fuzzy_bonus       = excluded.fuzzy_bonus,
			score             = excluded.score,
			date              = excluded.date,
			updated_at        = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, candidate.PlayerID, candidate.WordID, candidate.BestGuesses,
		candidate.BestTimeSeconds, candidate.FuzzyBonus, candidate.Score, day(candidate.Date))
	if err != nil {
		return err
	}

	all, err := standingsForWordTx(ctx, tx, candidate.WordID)
	if err != nil {
		return err
	}

	for _, st := range scoring.Rank(all) {
		if _, err := tx.ExecContext(ctx, `
			UPDATE standings SET rank = ?, was_top10 = ? WHERE player_id = ? AND word_id = ?
		`, *st.Rank, st.WasTop10, st.PlayerID, st.WordID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func standingsForWordTx(ctx context.Context, q querier, wordID string) ([]lexio.Standing, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT player_id, word_id, rank, was_top10, best_guesses, best_time_seconds, fuzzy_bonus, score, date
		FROM standings
		WHERE word_id = ?
		ORDER BY rank IS NULL, rank
	`, wordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var standings []lexio.Standing
	for rows.Next() {
		st, err := scanStanding(rows)
		if err != nil {
			return nil, err
		}
		standings = append(standings, st)
	}
	return standings, rows.Err()
}

func scanStanding(rows *sql.Rows) (lexio.Standing, error) {
	var st lexio.Standing
	var rank sql.NullInt64
	var date time.Time
	if err := rows.Scan(&st.PlayerID, &st.WordID, &rank, &st.WasTop10,
		&st.BestGuesses, &st.BestTimeSeconds, &st.FuzzyBonus, &st.Score, &date); err != nil {
		return st, err
	}
	if rank.Valid {
		r := int(rank.Int64)
		st.Rank = &r
	}
	st.Date = lexio.Day(date)
	return st, nil
}

func (s *SQLiteStore) StandingsForWord(ctx context.Context, wordID string) ([]lexio.Standing, error) {
	return standingsForWordTx(ctx, s.db, wordID)
}

func (s *SQLiteStore) PlayerStanding(ctx context.Context, playerID, wordID string) (lexio.Standing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, word_id, rank, was_top10, best_guesses, best_time_seconds, fuzzy_bonus, score, date
		FROM standings
		WHERE player_id = ? AND word_id = ?
	`, playerID, wordID)
	if err != nil {
		return lexio.Standing{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return lexio.Standing{}, err
		}
		return lexio.Standing{}, ErrNotFound
	}
	return scanStanding(rows)
}

func (s *SQLiteStore) ApplyCompletion(ctx context.Context, playerID string, won bool, d time.Time) (lexio.StreakCounters, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return lexio.StreakCounters{}, err
	}
	defer tx.Rollback()

	current, err := scanCounters(tx.QueryRowContext(ctx, `
		SELECT current_streak, highest_streak, streak_start_date, last_win_date
		FROM streak_counters WHERE player_id = ?
	`, playerID), playerID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return lexio.StreakCounters{}, err
	}

	next := streak.Apply(current, won, d)
	if err := saveCounters(ctx, tx, next); err != nil {
		return lexio.StreakCounters{}, err
	}
	return next, tx.Commit()
}

func (s *SQLiteStore) StreakCounters(ctx context.Context, playerID string) (lexio.StreakCounters, error) {
	return scanCounters(s.db.QueryRowContext(ctx, `
		SELECT current_streak, highest_streak, streak_start_date, last_win_date
		FROM streak_counters WHERE player_id = ?
	`, playerID), playerID)
}

func (s *SQLiteStore) RebuildStreak(ctx context.Context, playerID string) (lexio.StreakCounters, error) {
	history, err := s.PlayerCompletions(ctx, playerID)
	if err != nil {
		return lexio.StreakCounters{}, err
	}

	prior, err := s.StreakCounters(ctx, playerID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return lexio.StreakCounters{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return lexio.StreakCounters{}, err
	}
	defer tx.Rollback()

	next := streak.Replay(prior, history)
	next.PlayerID = playerID
	if err := saveCounters(ctx, tx, next); err != nil {
		return lexio.StreakCounters{}, err
	}
	return next, tx.Commit()
}

func scanCounters(row *sql.Row, playerID string) (lexio.StreakCounters, error) {
	c := lexio.StreakCounters{PlayerID: playerID}
	var start, lastWin sql.NullTime
	err := row.Scan(&c.CurrentStreak, &c.HighestStreak, &start, &lastWin)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if start.Valid {
		t := lexio.Day(start.Time)
		c.StreakStartDate = &t
	}
	if lastWin.Valid {
		t := lexio.Day(lastWin.Time)
		c.LastWinDate = &t
	}
	return c, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveCounters(ctx context.Context, e execer, c lexio.StreakCounters) error {
	var start, lastWin sql.NullString
	if c.StreakStartDate != nil {
		start = sql.NullString{String: day(*c.StreakStartDate), Valid: true}
	}
	if c.LastWinDate != nil {
		lastWin = sql.NullString{String: day(*c.LastWinDate), Valid: true}
	}

	_, err := e.ExecContext(ctx, `
		INSERT INTO streak_counters
			(player_id, current_streak, highest_streak, streak_start_date, last_win_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (player_id) DO UPDATE SET
			current_streak    = excluded.current_streak,
			highest_streak    = excluded.highest_streak,
			streak_start_date = excluded.streak_start_date,
			last_win_date     = excluded.last_win_date,
			updated_at        = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, c.PlayerID, c.CurrentStreak, c.HighestStreak, start, lastWin)
	return err
}

func (s *SQLiteStore) Snapshot(ctx context.Context, wordID string, d time.Time) (lexio.DailySnapshot, error) {
	snap := lexio.DailySnapshot{WordID: wordID, Date: lexio.Day(d)}
	var rankings string
	var finalizedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT rankings, total_players, top10_count, is_finalized, finalized_at
		FROM daily_snapshots WHERE word_id = ? AND date = ?
	`, wordID, day(d)).Scan(&rankings, &snap.TotalPlayers, &snap.Top10Count, &snap.IsFinalized, &finalizedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, ErrNotFound
	}
	if err != nil {
		return snap, err
	}

	if err := json.Unmarshal([]byte(rankings), &snap.Rankings); err != nil {
		return snap, fmt.Errorf("decoding rankings: %w", err)
	}
	if snap.Rankings == nil {
		snap.Rankings = []lexio.SnapshotEntry{}
	}
	if finalizedAt.Valid {
		t := finalizedAt.Time.UTC()
		snap.FinalizedAt = &t
	}
	return snap, nil
}

func (s *SQLiteStore) InsertSnapshot(ctx context.Context, snap lexio.DailySnapshot) error {
	rankings, err := json.Marshal(snap.Rankings)
	if err != nil {
		return fmt.Errorf("encoding rankings: %w", err)
	}

	var finalizedAt sql.NullString
	if snap.FinalizedAt != nil {
		finalizedAt = sql.NullString{String: snap.FinalizedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_snapshots
			(word_id, date, rankings, total_players, top10_count, is_finalized, finalized_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (word_id, date) DO NOTHING
	`, snap.WordID, day(snap.Date), string(rankings), snap.TotalPlayers,
		snap.Top10Count, snap.IsFinalized, finalizedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyFinalized
	}
	return nil
}
