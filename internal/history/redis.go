package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mediway/labreports/internal/entity"
)

const keyPrefix = "labreports:history:"

// RedisCache stores each window as a Redis list of JSON turns.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisCache connects and pings the server. A failed ping is returned so
// callers can fall back to the in-process tier.
func NewRedisCache(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		logger.Error("failed to connect to redis", "addr", cfg.Addr, "error", err)
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("connected to redis", "addr", cfg.Addr)

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}, nil
}

func key(reportID string) string {
	return keyPrefix + reportID
}

func (c *RedisCache) Get(ctx context.Context, reportID string) ([]entity.Turn, bool, error) {
	raw, err := c.client.LRange(ctx, key(reportID), 0, -1).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis lrange: %w", err)
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	turns := make([]entity.Turn, 0, len(raw))
	for _, item := range raw {
		var t entity.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, false, fmt.Errorf("decode cached turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, true, nil
}

// Set replaces the list atomically and refreshes its expiry.
func (c *RedisCache) Set(ctx context.Context, reportID string, turns []entity.Turn) error {
	values := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
		values = append(values, string(b))
	}
	k := key(reportID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		if len(values) > 0 {
			pipe.RPush(ctx, k, values...)
			pipe.Expire(ctx, k, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set window: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, reportID string) error {
	if err := c.client.Del(ctx, key(reportID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
