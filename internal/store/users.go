package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"
)

// UserRecord is a user row including its password hash; the hash is empty for
// accounts that never set a password
type UserRecord struct {
	models.User
	PasswordHash string `db:"password_hash"`
}

const userColumns = "id, name, email, role, provider, password_hash"

// GetUserByEmail retrieves a user by normalized email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	var u UserRecord
	err := s.db.GetContext(ctx, &u, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user; a taken email yields ErrConflict
func (s *Store) CreateUser(ctx context.Context, u *UserRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, role, provider, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Name, u.Email, u.Role, u.Provider, u.PasswordHash)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", u.Email, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpsertProviderUser returns the existing account for u.Email or creates u
func (s *Store) UpsertProviderUser(ctx context.Context, u *UserRecord) (*UserRecord, error) {
	var out UserRecord
	err := s.db.GetContext(ctx, &out,
		`INSERT INTO users (id, name, email, role, provider, password_hash)
		 VALUES ($1, $2, $3, $4, $5, '')
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING `+userColumns,
		u.ID, u.Name, u.Email, u.Role, u.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &out, nil
}
