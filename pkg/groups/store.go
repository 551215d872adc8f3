package groups

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Store provides the lookups and membership mutations for groups
type Store interface {
	GetGroup(ctx context.Context, groupID int64) (*Group, error)
	GetMembership(ctx context.Context, groupID, userID int64) (*Membership, error)
	GetComic(ctx context.Context, comicID int64) (*Comic, error)
	GetChapter(ctx context.Context, chapterID int64) (*Chapter, error)
	ListMembers(ctx context.Context, groupID int64) ([]*Member, error)
	AddMember(ctx context.Context, groupID, userID int64, role Role) (*Membership, error)
	UpdateMemberRole(ctx context.Context, groupID, userID int64, role Role) error
	RemoveMember(ctx context.Context, groupID, userID int64) error
	TransferLeadership(ctx context.Context, groupID, userID int64) error
}

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed group store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetGroup retrieves a group by id
func (s *PostgresStore) GetGroup(ctx context.Context, groupID int64) (*Group, error) {
	query := `
		SELECT group_id, name, description, avatar_url, owner_id, created_at
		FROM translation_groups
		WHERE group_id = $1
	`
	group := &Group{}
	var description, avatarURL sql.NullString
	err := s.db.QueryRowContext(ctx, query, groupID).Scan(
		&group.ID, &group.Name, &description, &avatarURL, &group.OwnerID, &group.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	group.Description = description.String
	group.AvatarURL = avatarURL.String

	return group, nil
}

// GetMembership retrieves the membership link for a user in a group
func (s *PostgresStore) GetMembership(ctx context.Context, groupID, userID int64) (*Membership, error) {
	query := `
		SELECT group_id, user_id, role, joined_at
		FROM translation_group_members
		WHERE group_id = $1 AND user_id = $2
	`
	m := &Membership{}
	err := s.db.QueryRowContext(ctx, query, groupID, userID).Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return m, nil
}

// GetComic retrieves the owning group of a comic
func (s *PostgresStore) GetComic(ctx context.Context, comicID int64) (*Comic, error) {
	query := `SELECT comic_id, group_id, title FROM comics WHERE comic_id = $1`

	c := &Comic{}
	var groupID sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, comicID).Scan(&c.ID, &groupID, &c.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comic: %w", err)
	}
	// A comic detached from any group cannot be scoped
	if !groupID.Valid {
		return nil, fmt.Errorf("comic %d has no owning group: %w", comicID, ErrResourceNotFound)
	}
	c.GroupID = groupID.Int64

	return c, nil
}

// GetChapter retrieves the owning comic of a chapter
func (s *PostgresStore) GetChapter(ctx context.Context, chapterID int64) (*Chapter, error) {
	query := `SELECT chapter_id, comic_id, chapter_number, title FROM chapters WHERE chapter_id = $1`

	c := &Chapter{}
	var title sql.NullString
	err := s.db.QueryRowContext(ctx, query, chapterID).Scan(&c.ID, &c.ComicID, &c.Number, &title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	c.Title = title.String

	return c, nil
}

// ListMembers retrieves all members of a group, leaders first
func (s *PostgresStore) ListMembers(ctx context.Context, groupID int64) ([]*Member, error) {
	query := `
		SELECT m.group_id, m.user_id, m.role, m.joined_at, u.username, u.avatar_url
		FROM translation_group_members m
		JOIN users u ON u.user_id = m.user_id
		WHERE m.group_id = $1
		ORDER BY m.role = 'leader' DESC, m.joined_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []*Member{}
	for rows.Next() {
		member := &Member{}
		var avatarURL sql.NullString
		if err := rows.Scan(
			&member.GroupID, &member.UserID, &member.Role, &member.JoinedAt,
			&member.Username, &avatarURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		member.AvatarURL = avatarURL.String
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	return members, nil
}

// AddMember creates the membership link for a user
func (s *PostgresStore) AddMember(ctx context.Context, groupID, userID int64, role Role) (*Membership, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	query := `
		INSERT INTO translation_group_members (group_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING group_id, user_id, role, joined_at
	`
	m := &Membership{}
	err := s.db.QueryRowContext(ctx, query, groupID, userID, role).Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicateMembership
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return m, nil
}

// UpdateMemberRole changes a member's role
func (s *PostgresStore) UpdateMemberRole(ctx context.Context, groupID, userID int64, role Role) error {
	if !role.IsValid() {
		return ErrInvalidRole
	}

	query := `UPDATE translation_group_members SET role = $1 WHERE group_id = $2 AND user_id = $3`
	result, err := s.db.ExecContext(ctx, query, role, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	return expectOneRow(result)
}

// RemoveMember deletes the membership link
func (s *PostgresStore) RemoveMember(ctx context.Context, groupID, userID int64) error {
	query := `DELETE FROM translation_group_members WHERE group_id = $1 AND user_id = $2`
	result, err := s.db.ExecContext(ctx, query, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return expectOneRow(result)
}

// TransferLeadership demotes the current leaders and promotes userID in one transaction.
// The target must already be a member.
func (s *PostgresStore) TransferLeadership(ctx context.Context, groupID, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	demote := `
		UPDATE translation_group_members SET role = 'member'
		WHERE group_id = $1 AND role = 'leader' AND user_id <> $2
	`
	if _, err := tx.ExecContext(ctx, demote, groupID, userID); err != nil {
		return fmt.Errorf("failed to demote leaders: %w", err)
	}

	promote := `UPDATE translation_group_members SET role = 'leader' WHERE group_id = $1 AND user_id = $2`
	result, err := tx.ExecContext(ctx, promote, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to promote leader: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMembershipNotFound
	}
	return nil
}
