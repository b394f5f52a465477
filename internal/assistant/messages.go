package assistant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// MessageStore is the durable record of chat turns in Postgres. The
// redis history cache serves the model context; this table is what
// survives restarts and cache eviction.
type MessageStore struct {
	db    pgxDB
	limit int
}

// NewMessageStore creates a Postgres-backed message store. limit caps
// how many turns Recent returns.
func NewMessageStore(pool *pgxpool.Pool, limit int) *MessageStore {
	if pool == nil {
		panic("assistant: pgx pool required")
	}
	return newMessageStoreWithDB(pool, limit)
}

func newMessageStoreWithDB(db pgxDB, limit int) *MessageStore {
	if limit <= 0 {
		limit = 10
	}
	return &MessageStore{db: db, limit: limit}
}

// Append persists one chat turn.
func (s *MessageStore) Append(ctx context.Context, userID string, msg Message) error {
	if userID == "" || msg.Role == "" {
		return fmt.Errorf("assistant: user id and role are required")
	}

	query := `
		INSERT INTO ai_chat_messages (id, user_id, role, content)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.Exec(ctx, query, uuid.New(), userID, msg.Role, msg.Content); err != nil {
		return fmt.Errorf("assistant: persist chat message: %w", err)
	}
	return nil
}

// Recent returns the user's last turns, oldest first.
func (s *MessageStore) Recent(ctx context.Context, userID string) ([]Message, error) {
	query := `
		SELECT role, content
		FROM ai_chat_messages
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, userID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("assistant: load chat messages: %w", err)
	}
	defer rows.Close()

	var newestFirst []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, fmt.Errorf("assistant: scan chat message: %w", err)
		}
		newestFirst = append(newestFirst, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("assistant: iterate chat messages: %w", err)
	}

	out := make([]Message, len(newestFirst))
	for i, msg := range newestFirst {
		out[len(newestFirst)-1-i] = msg
	}
	return out, nil
}
