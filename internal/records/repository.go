// Package records stores patient health records: past diagnoses,
// prescriptions and attached documents.
package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRecordNotFound is returned when the record id references no row
// owned by the caller.
var ErrRecordNotFound = errors.New("health record not found")

// Record is one health record entry.
type Record struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	RecordDate  time.Time `json:"record_date"`
	DoctorName  string    `json:"doctor_name,omitempty"`
	Diagnosis   string    `json:"diagnosis,omitempty"`
	Prescription string   `json:"prescription,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Attachments []string  `json:"attachments,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewRecord is the input for creating a record.
type NewRecord struct {
	Title        string    `json:"title"`
	RecordDate   time.Time `json:"recordDate"`
	DoctorName   string    `json:"doctorName"`
	Diagnosis    string    `json:"diagnosis"`
	Prescription string    `json:"prescription"`
	Notes        string    `json:"notes"`
	Attachments  []string  `json:"attachments"`
}

type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads and writes health_records. All queries are scoped to
// the owning user; records are never visible across accounts.
type Repository struct {
	db pgxDB
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("records: pgx pool required")
	}
	return &Repository{db: pool}
}

func newRepositoryWithDB(db pgxDB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, user_id, title, record_date, doctor_name, diagnosis, prescription, notes, attachments, created_at, updated_at`

// Create inserts a health record for the user.
func (r *Repository) Create(ctx context.Context, userID string, in *NewRecord) (*Record, error) {
	if in == nil || userID == "" || strings.TrimSpace(in.Title) == "" || in.RecordDate.IsZero() {
		return nil, fmt.Errorf("records: user id, title and record date are required")
	}

	id := uuid.New()
	query := `
		INSERT INTO health_records (id, user_id, title, record_date, doctor_name, diagnosis, prescription, notes, attachments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		userID,
		in.Title,
		in.RecordDate,
		in.DoctorName,
		in.Diagnosis,
		in.Prescription,
		in.Notes,
		in.Attachments,
	).Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("records: insert failed: %w", err)
	}

	return &Record{
		ID:           id.String(),
		UserID:       userID,
		Title:        in.Title,
		RecordDate:   in.RecordDate,
		DoctorName:   in.DoctorName,
		Diagnosis:    in.Diagnosis,
		Prescription: in.Prescription,
		Notes:        in.Notes,
		Attachments:  in.Attachments,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// ListForUser returns the user's records, newest record date first.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM health_records WHERE user_id = $1 ORDER BY record_date DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("records: list failed: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("records: scan failed: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Get loads one record owned by the user.
func (r *Repository) Get(ctx context.Context, userID, recordID string) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM health_records WHERE id = $1 AND user_id = $2`
	rec, err := scanRecord(r.db.QueryRow(ctx, query, recordID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("records: select failed: %w", err)
	}
	return rec, nil
}

// Delete removes a record owned by the user.
func (r *Repository) Delete(ctx context.Context, userID, recordID string) error {
	query := `DELETE FROM health_records WHERE id = $1 AND user_id = $2`
	ct, err := r.db.Exec(ctx, query, recordID, userID)
	if err != nil {
		return fmt.Errorf("records: delete failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var doctorName, diagnosis, prescription, notes pgtype.Text
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Title,
		&rec.RecordDate,
		&doctorName,
		&diagnosis,
		&prescription,
		&notes,
		&rec.Attachments,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.DoctorName = doctorName.String
	rec.Diagnosis = diagnosis.String
	rec.Prescription = prescription.String
	rec.Notes = notes.String
	return &rec, nil
}
