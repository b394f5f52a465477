// Package audit records and queries the immutable trail of
// state-changing actions on diagnostic cases.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one immutable audit record. Workflow transactions append
// their own rows inside the same transaction; this service covers
// standalone appends and the read path.
type Entry struct {
	ID        string          `json:"id"`
	CaseID    string          `json:"case_id"`
	ActorID   string          `json:"actor_id,omitempty"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Filter narrows an audit query.
type Filter struct {
	CaseID    string
	ActorID   string
	Action    string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// Service reads and writes case_audit_logs.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Append inserts an audit entry. ID and CreatedAt are filled when zero.
func (s *Service) Append(ctx context.Context, entry Entry) error {
	if entry.CaseID == "" || entry.Action == "" {
		return fmt.Errorf("audit: case id and action are required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO case_audit_logs (id, report_id, actor_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.CaseID,
		nullString(entry.ActorID),
		entry.Action,
		entry.Details,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to append entry: %w", err)
	}
	return nil
}

// ListForCase returns a case's full trail, newest first.
func (s *Service) ListForCase(ctx context.Context, caseID string) ([]Entry, error) {
	return s.Query(ctx, Filter{CaseID: caseID})
}

// Query retrieves audit entries matching the filter, newest first.
func (s *Service) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `
		SELECT id, report_id, actor_id, action, details, created_at
		FROM case_audit_logs
		WHERE 1=1
	`
	var args []interface{}
	argIdx := 1

	if filter.CaseID != "" {
		query += fmt.Sprintf(" AND report_id = $%d", argIdx)
		args = append(args, filter.CaseID)
		argIdx++
	}
	if filter.ActorID != "" {
		query += fmt.Sprintf(" AND actor_id = $%d", argIdx)
		args = append(args, filter.ActorID)
		argIdx++
	}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, filter.Action)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var actorID sql.NullString
		if err := rows.Scan(&e.ID, &e.CaseID, &actorID, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: failed to scan entry: %w", err)
		}
		e.ActorID = actorID.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: row iteration: %w", err)
	}
	return entries, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
