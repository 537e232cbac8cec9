// Package cache provides a best-effort Redis cache for room join
// details. Nothing in the request path depends on it; a miss or a
// Redis outage only costs a token re-mint.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/anishjha12309/itero/internal/observability/logging"
)

// ErrMiss is returned when the key is absent or the cache is disabled.
var ErrMiss = errors.New("cache miss")

// Config holds the Redis connection settings. An empty Addr disables
// the cache entirely.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RoomCache caches room join details per interview session.
type RoomCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates a room cache. With an empty address the returned cache is
// a no-op whose Get always misses.
func New(cfg Config) *RoomCache {
	logger := logging.WithComponent("room-cache")
	if cfg.Addr == "" {
		logger.Info().Msg("Redis disabled, room cache is a no-op")
		return &RoomCache{ttl: cfg.TTL, logger: logger}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	logger.Info().Str("addr", cfg.Addr).Msg("Room cache connected to Redis")
	return &RoomCache{client: client, ttl: cfg.TTL, logger: logger}
}

func roomKey(sessionID string) string {
	return fmt.Sprintf("interview:%s:room", sessionID)
}

// SetRoom stores a value under the session's room key with the
// configured TTL. Failures are logged, never returned.
func (c *RoomCache) SetRoom(ctx context.Context, sessionID string, value any) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("sessionId", sessionID).Msg("Failed to marshal room details")
		return
	}
	if err := c.client.Set(ctx, roomKey(sessionID), data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("sessionId", sessionID).Msg("Failed to cache room details")
	}
}

// GetRoom loads the session's room details into out. Returns ErrMiss
// when absent or disabled.
func (c *RoomCache) GetRoom(ctx context.Context, sessionID string, out any) error {
	if c.client == nil {
		return ErrMiss
	}
	data, err := c.client.Get(ctx, roomKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("sessionId", sessionID).Msg("Room cache read failed")
		return ErrMiss
	}
	return json.Unmarshal(data, out)
}

// DeleteRoom drops the session's room key, typically when the
// interview ends.
func (c *RoomCache) DeleteRoom(ctx context.Context, sessionID string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, roomKey(sessionID)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("sessionId", sessionID).Msg("Room cache delete failed")
	}
}

// Close releases the Redis connection.
func (c *RoomCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
