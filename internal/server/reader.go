package server

import (
	"context"
	"errors"
	"time"

	"github.com/lexio-game/api/internal/lexio"
	"github.com/lexio-game/api/internal/scoring"
)

const leaderboardTop = 10

// LeaderboardEntry is one row of a leaderboard view.
type LeaderboardEntry struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Rank        int    `json:"rank"`
	Guesses     int    `json:"guesses"`
	TimeSeconds int    `json:"timeSeconds"`
	Score       int    `json:"score"`
}

// LeaderboardResponse is the read model served to the presentation layer.
// PlayerRank is set when a playerId was supplied and that player holds a
// standing for the word. Finalized marks a view served from a frozen
// snapshot rather than the live standings.
type LeaderboardResponse struct {
	WordID       string             `json:"wordId"`
	Entries      []LeaderboardEntry `json:"entries"`
	TotalEntries int                `json:"totalEntries"`
	PlayerRank   *int               `json:"playerRank"`
	Finalized    bool               `json:"finalized"`
}

// buildLeaderboard assembles the leaderboard for a word: the top 10 plus,
// when the requesting player sits below them, their own row. For a past
// date with a finalized snapshot the snapshot wins over the live store;
// with no standings at all the view degrades to the raw outcome log.
// Reads never fail on missing rank data, only on storage errors.
func buildLeaderboard(ctx context.Context, store Store, wordID, playerID string, date *time.Time) (LeaderboardResponse, error) {
	resp := LeaderboardResponse{WordID: wordID, Entries: []LeaderboardEntry{}}

	if date != nil {
		snap, err := store.Snapshot(ctx, wordID, *date)
		switch {
		case err == nil && snap.IsFinalized:
			return leaderboardFromSnapshot(ctx, store, snap, playerID)
		case err != nil && !errors.Is(err, ErrNotFound):
			return resp, err
		}
		// Not finalized yet: fall through to the live view.
	}

	standings, err := store.StandingsForWord(ctx, wordID)
	if err != nil {
		return resp, err
	}
	if len(standings) == 0 {
		return leaderboardFromResults(ctx, store, wordID, playerID)
	}

	resp.TotalEntries = len(standings)
	for _, st := range standings {
		if st.Rank == nil || *st.Rank > leaderboardTop {
			continue
		}
		resp.Entries = append(resp.Entries, LeaderboardEntry{
			PlayerID:    st.PlayerID,
			Rank:        *st.Rank,
			Guesses:     st.BestGuesses,
			TimeSeconds: st.BestTimeSeconds,
			Score:       st.Score,
		})
	}

	if playerID != "" {
		own, err := store.PlayerStanding(ctx, playerID, wordID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return resp, err
		}
		if err == nil && own.Rank != nil {
			resp.PlayerRank = own.Rank
			if *own.Rank > leaderboardTop {
				resp.Entries = append(resp.Entries, LeaderboardEntry{
					PlayerID:    own.PlayerID,
					Rank:        *own.Rank,
					Guesses:     own.BestGuesses,
					TimeSeconds: own.BestTimeSeconds,
					Score:       own.Score,
				})
			}
		}
	}

	return resolveNames(ctx, store, resp)
}

func leaderboardFromSnapshot(ctx context.Context, store Store, snap lexio.DailySnapshot, playerID string) (LeaderboardResponse, error) {
	resp := LeaderboardResponse{
		WordID:       snap.WordID,
		Entries:      []LeaderboardEntry{},
		TotalEntries: snap.TotalPlayers,
		Finalized:    true,
	}

	for _, e := range snap.Rankings {
		entry := LeaderboardEntry{
			PlayerID:    e.PlayerID,
			Rank:        e.Rank,
			Guesses:     e.BestGuesses,
			TimeSeconds: e.BestTimeSeconds,
			Score:       e.Score,
		}
		if e.PlayerID == playerID {
			rank := e.Rank
			resp.PlayerRank = &rank
		}
		switch {
		case e.Rank <= leaderboardTop:
			resp.Entries = append(resp.Entries, entry)
		case e.PlayerID == playerID:
			resp.Entries = append(resp.Entries, entry)
		}
	}

	return resolveNames(ctx, store, resp)
}

// leaderboardFromResults derives an unranked view straight from the raw
// outcome log, used while the ranking pipeline has no standings for the
// word. Ranks are positional.
func leaderboardFromResults(ctx context.Context, store Store, wordID, playerID string) (LeaderboardResponse, error) {
	resp := LeaderboardResponse{WordID: wordID, Entries: []LeaderboardEntry{}}

	results, err := store.WinningResults(ctx, wordID)
	if err != nil {
		return resp, err
	}

	resp.TotalEntries = len(results)
	for i, r := range results {
		rank := i + 1
		if r.PlayerID == playerID {
			resp.PlayerRank = &rank
		}
		if rank > leaderboardTop && r.PlayerID != playerID {
			continue
		}
		score := scoring.Score(r.GuessesUsed, r.CompletionTimeSeconds, r.UsedHint, true)
		resp.Entries = append(resp.Entries, LeaderboardEntry{
			PlayerID:    r.PlayerID,
			Rank:        rank,
			Guesses:     r.GuessesUsed,
			TimeSeconds: r.CompletionTimeSeconds,
			Score:       score.Score,
		})
	}

	return resolveNames(ctx, store, resp)
}

// resolveNames fills display names from the players lookup, falling back
// to the raw player id for unknown players.
func resolveNames(ctx context.Context, store Store, resp LeaderboardResponse) (LeaderboardResponse, error) {
	ids := make([]string, len(resp.Entries))
	for i, e := range resp.Entries {
		ids[i] = e.PlayerID
	}

	names, err := store.DisplayNames(ctx, ids)
	if err != nil {
		return resp, err
	}
	for i := range resp.Entries {
		if name, ok := names[resp.Entries[i].PlayerID]; ok {
			resp.Entries[i].DisplayName = name
		} else {
			resp.Entries[i].DisplayName = resp.Entries[i].PlayerID
		}
	}
	return resp, nil
}
