package server

import (
	"net/http"
	"time"

	"github.com/lexio-game/api/internal/lexio"
)

// FinalizeRequest optionally names the day to finalize. Empty means the
// previous UTC calendar day.
type FinalizeRequest struct {
	Date string `json:"date"`
}

func handleFinalize(fin *Finalizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FinalizeRequest
		if r.ContentLength > 0 {
			if err := readJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		var date time.Time
		if req.Date == "" {
			date = lexio.Day(time.Now().UTC()).AddDate(0, 0, -1)
		} else {
			var err error
			if date, err = lexio.ParseDate(req.Date); err != nil {
				writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
				return
			}
		}

		report, err := fin.FinalizeDay(r.Context(), date)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, report)
	}
}
