package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lexio-game/api/internal/lexio"
)

// StreakResponse is a player's streak counters as served to clients.
// Players with no history get zero counters, never an error.
type StreakResponse struct {
	CurrentStreak   int     `json:"currentStreak"`
	HighestStreak   int     `json:"highestStreak"`
	StreakStartDate *string `json:"streakStartDate"`
	LastWinDate     *string `json:"lastWinDate"`
}

func streakResponse(c lexio.StreakCounters) StreakResponse {
	resp := StreakResponse{
		CurrentStreak: c.CurrentStreak,
		HighestStreak: c.HighestStreak,
	}
	if c.StreakStartDate != nil {
		s := c.StreakStartDate.Format(lexio.DateLayout)
		resp.StreakStartDate = &s
	}
	if c.LastWinDate != nil {
		s := c.LastWinDate.Format(lexio.DateLayout)
		resp.LastWinDate = &s
	}
	return resp
}

func handleStreak(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := chi.URLParam(r, "playerID")

		counters, err := store.StreakCounters(r.Context(), playerID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, streakResponse(counters))
	}
}

// handleStreakRebuild replays a player's full outcome history through the
// streak state machine. Operator-only: used for backfills and migrations.
func handleStreakRebuild(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := chi.URLParam(r, "playerID")

		counters, err := store.RebuildStreak(r.Context(), playerID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, streakResponse(counters))
	}
}
