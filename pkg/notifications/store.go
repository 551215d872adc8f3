package notifications

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store persists notifications
type Store interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, userID int64, since time.Time, limit, offset int) ([]*Notification, error)
	Count(ctx context.Context, userID int64, since time.Time) (int, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	ActiveUserIDs(ctx context.Context) ([]int64, error)
}

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL notification store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts n and fills in its ID and CreatedAt
func (s *PostgresStore) Create(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (user_id, category, title, message, is_read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING notification_id, created_at
	`
	err := s.db.QueryRowContext(ctx, query, n.UserID, n.Category, n.Title, n.Message).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	n.IsRead = false
	return nil
}

// List returns the user's notifications created at or after since, newest first
func (s *PostgresStore) List(ctx context.Context, userID int64, since time.Time, limit, offset int) ([]*Notification, error) {
	query := `
		SELECT notification_id, user_id, category, title, message, is_read, created_at
		FROM notifications
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC, notification_id DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := s.db.QueryContext(ctx, query, userID, since, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*Notification{}
	for rows.Next() {
		n := &Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Category, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// Count returns how many notifications List would page through
func (s *PostgresStore) Count(ctx context.Context, userID int64, since time.Time) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND created_at >= $2`,
		userID, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return total, nil
}

// MarkRead marks one of the user's notifications as read
func (s *PostgresStore) MarkRead(ctx context.Context, userID, notificationID int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE notification_id = $1 AND user_id = $2`,
		notificationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read
func (s *PostgresStore) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected()
}

// ActiveUserIDs returns every active account, the audience of a global broadcast
func (s *PostgresStore) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM users WHERE status = 'active' ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
