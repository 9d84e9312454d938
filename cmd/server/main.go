package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/lexio-game/api/internal/config"
	"github.com/lexio-game/api/internal/database"
	"github.com/lexio-game/api/internal/lexio"
	"github.com/lexio-game/api/internal/migrations"
	"github.com/lexio-game/api/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	// --- Redis (optional leaderboard cache) ---
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")
	} else {
		logger.Info("redis disabled, leaderboard cache off")
	}

	store := server.NewSQLiteStore(db)
	cache := server.NewCache(rdb, logger)
	rec := server.NewRecorder(store, cache, logger)
	fin := server.NewFinalizer(store, cache, logger)

	if err := server.SeedOperator(ctx, logger, store, cfg.OperatorEmail, cfg.OperatorPassword); err != nil {
		return fmt.Errorf("seeding operator: %w", err)
	}

	srv := server.New(cfg.HTTPAddr, logger, store, rec, fin, cache, db, rdb)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	g.Go(func() error {
		return runFinalizeSchedule(gctx, logger, fin, cfg.FinalizeHourUTC)
	})

	return g.Wait()
}

// runFinalizeSchedule snapshots the previous day's standings once per day,
// at the configured UTC hour. Finalization is idempotent, so a restart that
// re-fires for the same day is harmless.
func runFinalizeSchedule(ctx context.Context, logger *slog.Logger, fin *server.Finalizer, hourUTC int) error {
	for {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(next.Sub(now)):
		}

		yesterday := lexio.Day(time.Now().UTC()).AddDate(0, 0, -1)
		report, err := fin.FinalizeDay(ctx, yesterday)
		if err != nil {
			logger.Error("scheduled finalize failed", "date", yesterday.Format(lexio.DateLayout), "error", err)
			continue
		}
		logger.Info("scheduled finalize complete",
			"date", yesterday.Format(lexio.DateLayout),
			"words", len(report.Finalized),
			"errors", len(report.Errors),
		)
	}
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
