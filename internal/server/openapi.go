package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LeaderboardParams are the path and query parameters of the leaderboard
// read.
type LeaderboardParams struct {
	WordID   string `path:"wordID"`
	PlayerID string `query:"playerId" description:"Include this player's own rank (and row, when outside the top 10)."`
	Date     string `query:"date" description:"Calendar date (YYYY-MM-DD) for a finalized historical view."`
}

// StreakParams identify the player whose counters are read or rebuilt.
type StreakParams struct {
	PlayerID string `path:"playerID"`
}

func newOpenAPISpec() (*openapi3.Spec, error) {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Lexio API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Scoring, standings and streak API for the Lexio daily word game.")

	var err error
	add := func(oc openapi.OperationContext) {
		if err == nil {
			err = r.AddOperation(oc)
		}
	}

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	add(getHealthz)

	// POST /api/results
	postResult, _ := r.NewOperationContext(http.MethodPost, "/api/results")
	postResult.SetSummary("Record a completed game")
	postResult.SetDescription("Records a finished game, scores it, and updates the player's standing and streak. Safe to retry.")
	postResult.AddReqStructure(ResultRequest{})
	postResult.AddRespStructure(ResultResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postResult.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	add(postResult)

	// GET /api/leaderboard/{wordID}
	getLeaderboard, _ := r.NewOperationContext(http.MethodGet, "/api/leaderboard/{wordID}")
	getLeaderboard.SetSummary("Word leaderboard")
	getLeaderboard.SetDescription("Top 10 standings for a word. Pass playerId to include the caller's own rank, date for a finalized day.")
	getLeaderboard.AddReqStructure(LeaderboardParams{})
	getLeaderboard.AddRespStructure(LeaderboardResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getLeaderboard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	add(getLeaderboard)

	// GET /api/streaks/{playerID}
	getStreak, _ := r.NewOperationContext(http.MethodGet, "/api/streaks/{playerID}")
	getStreak.SetSummary("Player streak")
	getStreak.SetDescription("Returns the player's current and highest streak. Players with no history get zero counters.")
	getStreak.AddReqStructure(StreakParams{})
	getStreak.AddRespStructure(StreakResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	add(getStreak)

	// POST /api/operator/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/operator/login")
	postLogin.SetSummary("Operator login")
	postLogin.SetDescription("Authenticate with email and password. Sets operator_session cookie.")
	postLogin.AddReqStructure(OperatorLoginRequest{})
	postLogin.AddRespStructure(OperatorMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	add(postLogin)

	// POST /api/operator/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/operator/logout")
	postLogout.SetSummary("Operator logout")
	postLogout.SetDescription("Clears operator session and cookie.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	add(postLogout)

	// GET /api/operator/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/operator/me")
	getMe.SetSummary("Current operator")
	getMe.SetDescription("Returns the currently authenticated operator. Requires operator_session cookie.")
	getMe.AddRespStructure(OperatorMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	add(getMe)

	// POST /api/operator/finalize
	postFinalize, _ := r.NewOperationContext(http.MethodPost, "/api/operator/finalize")
	postFinalize.SetSummary("Finalize a day")
	postFinalize.SetDescription("Snapshots final rankings for every word played on a date. Defaults to yesterday UTC. Requires operator_session cookie.")
	postFinalize.AddReqStructure(FinalizeRequest{})
	postFinalize.AddRespStructure(FinalizeReport{}, openapi.WithHTTPStatus(http.StatusOK))
	postFinalize.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postFinalize.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	add(postFinalize)

	// POST /api/operator/streaks/{playerID}/rebuild
	postRebuild, _ := r.NewOperationContext(http.MethodPost, "/api/operator/streaks/{playerID}/rebuild")
	postRebuild.SetSummary("Rebuild a streak")
	postRebuild.SetDescription("Replays the player's completion history to reconstruct streak counters. Requires operator_session cookie.")
	postRebuild.AddReqStructure(StreakParams{})
	postRebuild.AddRespStructure(StreakResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postRebuild.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	add(postRebuild)

	if err != nil {
		return nil, err
	}
	return r.Spec, nil
}

func handleOpenAPI() http.HandlerFunc {
	spec, err := newOpenAPISpec()
	if err != nil {
		// Registration only fails on a programming error (e.g. a path
		// parameter without a matching struct field), never at request time.
		panic(fmt.Sprintf("building openapi document: %v", err))
	}
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
