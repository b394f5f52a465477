package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var historyTracer = otel.Tracer("jeevansetu/chat-history")

// HistoryStore keeps recent chat turns per user in redis so the
// assistant can carry conversational context across requests.
type HistoryStore struct {
	client *redis.Client
	limit  int
	ttl    time.Duration
}

// NewHistoryStore creates a redis-backed history store. limit is the
// number of turns sent back to the model; twice as many are retained.
func NewHistoryStore(client *redis.Client, limit int, ttl time.Duration) *HistoryStore {
	if client == nil {
		panic("assistant: redis client required")
	}
	if limit <= 0 {
		limit = 10
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &HistoryStore{client: client, limit: limit, ttl: ttl}
}

func historyKey(userID string) string {
	return "chat:history:" + userID
}

// Append stores one turn at the tail of the user's history.
func (s *HistoryStore) Append(ctx context.Context, userID string, msg Message) error {
	ctx, span := historyTracer.Start(ctx, "history.append")
	defer span.End()
	span.SetAttributes(attribute.String("chat.role", msg.Role))

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("assistant: encode history message: %w", err)
	}

	key := historyKey(userID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-2*s.limit), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("assistant: append history: %w", err)
	}
	return nil
}

// Recent returns the last turns for the user, oldest first.
func (s *HistoryStore) Recent(ctx context.Context, userID string) ([]Message, error) {
	ctx, span := historyTracer.Start(ctx, "history.recent")
	defer span.End()

	raw, err := s.client.LRange(ctx, historyKey(userID), int64(-s.limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("assistant: load history: %w", err)
	}

	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	span.SetAttributes(attribute.Int("chat.history_size", len(out)))
	return out, nil
}

// Clear drops the user's history.
func (s *HistoryStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, historyKey(userID)).Err(); err != nil {
		return fmt.Errorf("assistant: clear history: %w", err)
	}
	return nil
}
