package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lexio-game/api/internal/lexio"
)

func handleLeaderboard(store Store, cache *Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wordID := chi.URLParam(r, "wordID")
		playerID := r.URL.Query().Get("playerId")

		var date *time.Time
		if raw := r.URL.Query().Get("date"); raw != "" {
			d, err := lexio.ParseDate(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
				return
			}
			date = &d
		}

		// The generic view (no player, no date) is the hot path worth caching.
		cacheable := playerID == "" && date == nil
		if cacheable {
			if data := cache.GetLeaderboard(r.Context(), wordID); data != nil {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusOK)
				w.Write(data)
				return
			}
		}

		resp, err := buildLeaderboard(r.Context(), store, wordID, playerID, date)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if cacheable {
			if data, err := json.Marshal(resp); err == nil {
				cache.SetLeaderboard(r.Context(), wordID, data)
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
