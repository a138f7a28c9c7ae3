// Package cache publishes match actions to the Redis queue drained by the historian.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list used when none is configured.
const DefaultQueueName = "uno_actions"

// ActionRecord is one logged match transition.
type ActionRecord struct {
	MatchID       uuid.UUID      `json:"match_id"`
	ActionIndex   int            `json:"action_index"`
	ActorUserID   uuid.UUID      `json:"actor_user_id"`
	ActionType    string         `json:"action_type"`
	ActionPayload map[string]any `json:"action_payload"`
	Timestamp     int64          `json:"timestamp"` // epoch millis
}

// Connect opens a client for cfg and pings it.
func Connect(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// RedisPublisher pushes records onto a Redis list.
type RedisPublisher struct {
	client redis.Cmdable
	queue  string
}

func NewRedisPublisher(client redis.Cmdable, queue string) *RedisPublisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &RedisPublisher{client: client, queue: queue}
}

func (p *RedisPublisher) Queue() string { return p.queue }

// Publish serializes rec to JSON and appends it to the queue.
func (p *RedisPublisher) Publish(ctx context.Context, rec ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := p.client.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// DecodeAction parses one queue entry.
func DecodeAction(payload string) (ActionRecord, error) {
	var rec ActionRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return ActionRecord{}, fmt.Errorf("invalid action record: %w", err)
	}
	if rec.MatchID == uuid.Nil {
		return ActionRecord{}, fmt.Errorf("invalid action record: missing match_id")
	}
	return rec, nil
}
