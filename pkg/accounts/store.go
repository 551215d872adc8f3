package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// Store persists accounts
type Store interface {
	Create(ctx context.Context, username, email, passwordHash string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	MarkVerified(ctx context.Context, email string) error
	DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL account store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts an unverified account and its empty wallet in one transaction
func (s *PostgresStore) Create(ctx context.Context, username, email, passwordHash string) (*Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var taken bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&taken); err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&taken); err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	account := &Account{Username: username, Email: email}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, role, status, is_verified)
		VALUES ($1, $2, $3, 'user', 'active', FALSE)
		RETURNING user_id, created_at
	`, username, email, passwordHash).Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		return nil, mapUniqueViolation(err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO wallets (user_id, balance) VALUES ($1, 0)`, account.ID); err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return account, nil
}

// mapUniqueViolation covers the race where another registration commits between the checks and the insert
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if strings.Contains(pqErr.Constraint, "email") {
			return ErrEmailTaken
		}
		return ErrUsernameTaken
	}
	return fmt.Errorf("failed to create account: %w", err)
}

// FindByEmail looks an account up by normalized email
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	account := &Account{}
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, username, email, is_verified, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&account.ID, &account.Username, &account.Email, &account.IsVerified, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return account, nil
}

// MarkVerified flags the account as verified
func (s *PostgresStore) MarkVerified(ctx context.Context, email string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET is_verified = TRUE WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("failed to verify account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUnverifiedBefore removes accounts that were never verified and were
// created before cutoff. Dependent rows go with them through ON DELETE CASCADE.
func (s *PostgresStore) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM users WHERE NOT is_verified AND created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge unverified accounts: %w", err)
	}
	return result.RowsAffected()
}
