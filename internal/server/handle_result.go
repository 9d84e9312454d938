package server

import (
	"net/http"
	"strings"

	"github.com/lexio-game/api/internal/lexio"
	"github.com/lexio-game/api/internal/scoring"
)

// ResultRequest is the completed-game event posted by the game-session
// service. Date is the calendar day (UTC) the game finished on.
type ResultRequest struct {
	PlayerID              string `json:"playerId"`
	WordID                string `json:"wordId"`
	Won                   bool   `json:"won"`
	GuessesUsed           int    `json:"guessesUsed"`
	CompletionTimeSeconds *int   `json:"completionTimeSeconds"`
	UsedHint              bool   `json:"usedHint"`
	FuzzyBonus            int    `json:"fuzzyBonus"`
	Date                  string `json:"date"`
}

// ResultResponse echoes what the event produced: the score breakdown, the
// player's standing after the rerank (wins only) and the updated streak.
type ResultResponse struct {
	Score     scoring.Result `json:"score"`
	Rank      *int           `json:"rank"`
	WasTop10  bool           `json:"wasTop10"`
	Streak    StreakResponse `json:"streak"`
	Duplicate bool           `json:"duplicate"`
}

func handleResult(rec *Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResultRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ev, errMsg := validateResult(req)
		if errMsg != "" {
			writeError(w, http.StatusBadRequest, errMsg)
			return
		}

		out, err := rec.Record(r.Context(), ev)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := ResultResponse{
			Score:     out.Score,
			Streak:    streakResponse(out.Streak),
			Duplicate: out.Duplicate,
		}
		if out.Standing != nil {
			resp.Rank = out.Standing.Rank
			resp.WasTop10 = out.Standing.WasTop10
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// validateResult applies the event contract: ids present, guesses >= 1,
// completion time present and non-negative for wins, parseable date.
// A malformed event is rejected whole — nothing is partially applied.
func validateResult(req ResultRequest) (lexio.GameResult, string) {
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	req.WordID = strings.TrimSpace(req.WordID)

	switch {
	case req.PlayerID == "" || req.WordID == "":
		return lexio.GameResult{}, "playerId and wordId are required"
	case req.GuessesUsed < 1:
		return lexio.GameResult{}, "guessesUsed must be at least 1"
	case req.FuzzyBonus < 0:
		return lexio.GameResult{}, "fuzzyBonus must not be negative"
	case req.Won && req.CompletionTimeSeconds == nil:
		return lexio.GameResult{}, "completionTimeSeconds is required for wins"
	case req.Won && *req.CompletionTimeSeconds < 0:
		return lexio.GameResult{}, "completionTimeSeconds must not be negative"
	case req.Date == "":
		return lexio.GameResult{}, "date is required"
	}

	playedOn, err := lexio.ParseDate(req.Date)
	if err != nil {
		return lexio.GameResult{}, "date must be YYYY-MM-DD"
	}

	ev := lexio.GameResult{
		PlayerID:    req.PlayerID,
		WordID:      req.WordID,
		Won:         req.Won,
		GuessesUsed: req.GuessesUsed,
		UsedHint:    req.UsedHint,
		FuzzyBonus:  req.FuzzyBonus,
		PlayedOn:    playedOn,
	}
	if req.Won {
		ev.CompletionTimeSeconds = *req.CompletionTimeSeconds
	}
	return ev, ""
}
