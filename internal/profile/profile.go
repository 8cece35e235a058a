// Package profile reads user profiles and roles. Profiles are provisioned by
// the identity provider; this package only upserts the display fields carried
// in tokens.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("profile not found")

type Profile struct {
	ID       uuid.UUID
	FullName string
	Email    string
	Admin    bool
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Profile, error) {
	query := `
		SELECT p.id, p.full_name, p.email,
			EXISTS (SELECT 1 FROM user_roles r WHERE r.user_id = p.id AND r.role = 'admin')
		FROM profiles p
		WHERE p.id = $1
	`

	var p Profile
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.FullName, &p.Email, &p.Admin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("getting profile: %w", err)
	}

	return &p, nil
}

// Ensure creates the profile on first sight and refreshes its display fields
// afterwards. Empty values never overwrite stored ones.
func (s *Store) Ensure(ctx context.Context, id uuid.UUID, email, fullName string) error {
	query := `
		INSERT INTO profiles (id, email, full_name, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET email = COALESCE(NULLIF(EXCLUDED.email, ''), profiles.email),
			full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), profiles.full_name)
	`

	if _, err := s.db.ExecContext(ctx, query, id, email, fullName); err != nil {
		return fmt.Errorf("ensuring profile: %w", err)
	}

	return nil
}

func (s *Store) IsAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	var admin bool

	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role = 'admin')`, id,
	).Scan(&admin)
	if err != nil {
		return false, fmt.Errorf("checking admin role: %w", err)
	}

	return admin, nil
}

// AdminEmail returns the address of the earliest registered admin.
func (s *Store) AdminEmail(ctx context.Context) (string, error) {
	query := `
		SELECT p.email
		FROM user_roles r
		JOIN profiles p ON p.id = r.user_id
		WHERE r.role = 'admin'
		ORDER BY r.created_at ASC
		LIMIT 1
	`

	var email string
	if err := s.db.QueryRowContext(ctx, query).Scan(&email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("finding admin email: %w", err)
	}

	return email, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting profiles: %w", err)
	}

	return n, nil
}
