package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const leaderboardTTL = 30 * time.Second

// Cache is a read-through cache for hot leaderboard views, backed by
// redis. A nil client disables it entirely, and any redis error is treated
// as a miss — the database stays the source of truth.
type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewCache(rdb *redis.Client, logger *slog.Logger) *Cache {
	return &Cache{rdb: rdb, logger: logger}
}

func leaderboardKey(wordID string) string { return "lexio:leaderboard:" + wordID }

// GetLeaderboard returns the cached JSON view for a word, or nil on miss.
func (c *Cache) GetLeaderboard(ctx context.Context, wordID string) []byte {
	if c == nil || c.rdb == nil {
		return nil
	}
	data, err := c.rdb.Get(ctx, leaderboardKey(wordID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("leaderboard cache read failed", "word", wordID, "error", err)
		}
		return nil
	}
	return data
}

// SetLeaderboard stores the JSON view for a word with a short TTL.
func (c *Cache) SetLeaderboard(ctx context.Context, wordID string, data []byte) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, leaderboardKey(wordID), data, leaderboardTTL).Err(); err != nil {
		c.logger.Warn("leaderboard cache write failed", "word", wordID, "error", err)
	}
}

// Invalidate drops the cached view after a rerank or finalization.
func (c *Cache) Invalidate(ctx context.Context, wordID string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, leaderboardKey(wordID)).Err(); err != nil {
		c.logger.Warn("leaderboard cache invalidation failed", "word", wordID, "error", err)
	}
}
