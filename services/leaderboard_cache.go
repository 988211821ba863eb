// services/leaderboard_cache.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"challenge-platform/models"

	"github.com/redis/go-redis/v9"
)

// cachedTopSize is how many entries each re-rank pushes into Redis.
const cachedTopSize = 100

const topBoardKey = "leaderboard:global:top"

var errCacheMiss = errors.New("leaderboard cache miss")

// LeaderboardCache keeps a snapshot of the top of the board in Redis so the
// hot top-performers endpoint does not hit Postgres on every request.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardCache(addr, password string, db int) (*LeaderboardCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &LeaderboardCache{client: client, ttl: 5 * time.Minute}, nil
}

func (c *LeaderboardCache) Close() error {
	return c.client.Close()
}

// SetTop replaces the cached snapshot with the given entries (already ordered
// by ranking).
func (c *LeaderboardCache) SetTop(ctx context.Context, entries []models.LeaderboardEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling leaderboard snapshot: %w", err)
	}
	if err := c.client.Set(ctx, topBoardKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing leaderboard snapshot: %w", err)
	}
	return nil
}

// GetTop returns up to limit entries from the cached snapshot, or errCacheMiss
// when no snapshot is present.
func (c *LeaderboardCache) GetTop(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	payload, err := c.client.Get(ctx, topBoardKey).Bytes()
	if err == redis.Nil {
		return nil, errCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading leaderboard snapshot: %w", err)
	}

	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("decoding leaderboard snapshot: %w", err)
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
