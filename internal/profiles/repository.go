// Package profiles stores user profiles and is the authority for
// application roles.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jeevansetu/telehealth-platform/internal/identity"
)

// ErrProfileNotFound is returned when the user id references no profile.
var ErrProfileNotFound = errors.New("profile not found")

// Profile is a registered platform user.
type Profile struct {
	ID        string        `json:"id"`
	FullName  string        `json:"full_name"`
	Email     string        `json:"email,omitempty"`
	Role      identity.Role `json:"role"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads and writes the profiles table.
type Repository struct {
	db pgxDB
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("profiles: pgx pool required")
	}
	return &Repository{db: pool}
}

func newRepositoryWithDB(db pgxDB) *Repository {
	return &Repository{db: db}
}

// Get loads a profile by user id.
func (r *Repository) Get(ctx context.Context, userID string) (*Profile, error) {
	query := `
		SELECT id, full_name, email, role, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`
	var p Profile
	var email pgtype.Text
	var role string
	if err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.ID, &p.FullName, &email, &role, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("profiles: select failed: %w", err)
	}
	p.Email = email.String
	p.Role = identity.Role(role)
	return &p, nil
}

// GetRole resolves the authoritative role for a user. Satisfies
// cases.RoleChecker.
func (r *Repository) GetRole(ctx context.Context, userID string) (identity.Role, error) {
	query := `SELECT role FROM profiles WHERE id = $1`
	var role string
	if err := r.db.QueryRow(ctx, query, userID).Scan(&role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("profiles: role lookup failed: %w", err)
	}
	return identity.Role(role), nil
}

// Upsert creates or updates a profile. Role changes go through here so
// there is exactly one write path for authorization data.
func (r *Repository) Upsert(ctx context.Context, p *Profile) error {
	if p == nil || p.ID == "" || p.FullName == "" {
		return fmt.Errorf("profiles: id and full name are required")
	}
	if !p.Role.Valid() {
		return fmt.Errorf("profiles: invalid role %q", p.Role)
	}

	query := `
		INSERT INTO profiles (id, full_name, email, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    email = EXCLUDED.email,
		    role = EXCLUDED.role,
		    updated_at = now()
	`
	if _, err := r.db.Exec(ctx, query, p.ID, p.FullName, p.Email, string(p.Role)); err != nil {
		return fmt.Errorf("profiles: upsert failed: %w", err)
	}
	return nil
}
