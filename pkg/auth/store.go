package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// IdentityStore loads canonical account records
type IdentityStore interface {
	GetIdentity(ctx context.Context, id int64) (*Identity, error)
}

// PostgresIdentityStore reads identities from the users table
type PostgresIdentityStore struct {
	db *sql.DB
}

// NewPostgresIdentityStore creates a new PostgreSQL-backed identity store
func NewPostgresIdentityStore(db *sql.DB) *PostgresIdentityStore {
	return &PostgresIdentityStore{db: db}
}

// GetIdentity retrieves a user by id. The password column is never selected.
func (s *PostgresIdentityStore) GetIdentity(ctx context.Context, id int64) (*Identity, error) {
	query := `
		SELECT user_id, username, email, avatar_url, role, status, is_verified, created_at, last_login
		FROM users
		WHERE user_id = $1
	`
	identity := &Identity{}
	var email, avatarURL sql.NullString
	var lastLogin sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&identity.ID, &identity.Username, &email, &avatarURL, &identity.Role,
		&identity.Status, &identity.IsVerified, &identity.CreatedAt, &lastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	identity.Email = email.String
	identity.AvatarURL = avatarURL.String
	if lastLogin.Valid {
		t := lastLogin.Time
		identity.LastLogin = &t
	}

	return identity, nil
}
