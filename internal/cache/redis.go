package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/aliexpress-scraper/internal/models"
)

const redisKeyPrefix = "scrape:result:"

// Redis stores results as JSON with a server-side TTL, letting several
// scraper instances share one cache.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedis(addr string, db int, ttl time.Duration, logger *slog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &Redis{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "cache"),
	}, nil
}

func (r *Redis) Get(ctx context.Context, query string) (*models.ScrapeResult, bool) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+Key(query)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("cache lookup failed", "error", err)
		}
		return nil, false
	}

	var result models.ScrapeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		r.logger.Warn("cache entry corrupt, dropping", "error", err)
		r.client.Del(ctx, redisKeyPrefix+Key(query))
		return nil, false
	}
	return &result, true
}

func (r *Redis) Set(ctx context.Context, query string, result *models.ScrapeResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		r.logger.Warn("cache encode failed", "error", err)
		return
	}
	if err := r.client.Set(ctx, redisKeyPrefix+Key(query), raw, r.ttl).Err(); err != nil {
		r.logger.Warn("cache store failed", "error", err)
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
