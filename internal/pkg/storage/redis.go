package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/config"
	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

// RedisClient caches the latest per-bookmaker event snapshot with a TTL, so
// HTTP handlers can serve data without hitting the bookmakers or Postgres.
type RedisClient struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(cfg *config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client, ttl: cfg.SnapshotTTL}, nil
}

func snapshotKey(sourceID string) string {
	return "events:" + sourceID
}

// StoreSourceEvents replaces the cached snapshot for one bookmaker.
func (r *RedisClient) StoreSourceEvents(ctx context.Context, sourceID string, events []models.SourceEvent) error {
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to marshal events for %s: %w", sourceID, err)
	}
	if err := r.client.Set(ctx, snapshotKey(sourceID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store events for %s: %w", sourceID, err)
	}
	return r.client.SAdd(ctx, "events:sources", sourceID).Err()
}

// GetSourceEvents returns the cached snapshot for one bookmaker, or nil when
// the snapshot expired or was never written.
func (r *RedisClient) GetSourceEvents(ctx context.Context, sourceID string) ([]models.SourceEvent, error) {
	data, err := r.client.Get(ctx, snapshotKey(sourceID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get events for %s: %w", sourceID, err)
	}
	var events []models.SourceEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal events for %s: %w", sourceID, err)
	}
	return events, nil
}

// GetAllSourceEvents returns every bookmaker's cached snapshot.
func (r *RedisClient) GetAllSourceEvents(ctx context.Context) (map[string][]models.SourceEvent, error) {
	sources, err := r.client.SMembers(ctx, "events:sources").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot sources: %w", err)
	}

	result := map[string][]models.SourceEvent{}
	for _, sourceID := range sources {
		events, err := r.GetSourceEvents(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		if events != nil {
			result[sourceID] = events
		}
	}
	return result, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
