package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, store *SQLiteStore, rec *Recorder, fin *Finalizer, cache *Cache, db *sql.DB, rdb *redis.Client) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Lexio API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db, rdb))

	r.Route("/api", func(r chi.Router) {
		// Scoring pipeline, called by the game-session service and clients.
		r.Post("/results", handleResult(rec))
		r.Get("/leaderboard/{wordID}", handleLeaderboard(store, cache))
		r.Get("/streaks/{playerID}", handleStreak(store))

		r.Route("/operator", func(r chi.Router) {
			r.Post("/login", handleOperatorLogin(store))
			r.Post("/logout", handleOperatorLogout(store))
			r.Get("/me", handleOperatorMe(store))

			// Finalization and streak backfills require a session.
			r.Group(func(r chi.Router) {
				r.Use(operatorAuthMiddleware(store))
				r.Post("/finalize", handleFinalize(fin))
				r.Post("/streaks/{playerID}/rebuild", handleStreakRebuild(store))
			})
		})
	})
}
