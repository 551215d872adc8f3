package quests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultDailyQuests is how many quests a user receives per day
const DefaultDailyQuests = 3

// Service manages daily quest assignment and reward claims
type Service struct {
	db     *sql.DB
	perDay int
	now    func() time.Time
}

// NewService creates a new quest service. perDay <= 0 uses DefaultDailyQuests.
func NewService(db *sql.DB, perDay int) *Service {
	if perDay <= 0 {
		perDay = DefaultDailyQuests
	}
	return &Service{db: db, perDay: perDay, now: time.Now}
}

// Daily returns today's quests for the user, assigning a random set on the
// first call of the day. At most one quest per category is assigned.
func (s *Service) Daily(ctx context.Context, identityID int64) ([]*Assignment, error) {
	day := dayOf(s.now())

	assignments, err := s.listForDay(ctx, identityID, day)
	if err != nil {
		return nil, err
	}
	if len(assignments) > 0 {
		return assignments, nil
	}

	if err := s.assign(ctx, identityID, day); err != nil {
		return nil, err
	}

	return s.listForDay(ctx, identityID, day)
}

// assign inserts random templates for the day. A transaction-scoped advisory
// lock on the user serializes concurrent callers (a request racing the cron
// assigner); whoever acquires it second sees the rows already present and
// inserts nothing.
func (s *Service) assign(ctx context.Context, identityID int64, day time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, identityID); err != nil {
		return fmt.Errorf("failed to lock quest assignment: %w", err)
	}

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_quests WHERE user_id = $1 AND assigned_date = $2`,
		identityID, day,
	).Scan(&existing); err != nil {
		return fmt.Errorf("failed to count assigned quests: %w", err)
	}
	if existing > 0 {
		return tx.Commit()
	}

	query := `
		INSERT INTO user_quests (user_id, quest_id, progress, is_claimed, assigned_date)
		SELECT $1, picked.quest_id, 0, FALSE, $2
		FROM (
			SELECT DISTINCT ON (category) quest_id, category
			FROM quests
			ORDER BY category, random()
		) picked
		ORDER BY random()
		LIMIT $3
		ON CONFLICT (user_id, quest_id, assigned_date) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, identityID, day, s.perDay)
	if err != nil {
		return fmt.Errorf("failed to assign quests: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if inserted == 0 {
		return ErrNoTemplates
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Service) listForDay(ctx context.Context, identityID int64, day time.Time) ([]*Assignment, error) {
	query := `
		SELECT uq.user_quest_id, q.quest_id, q.title, q.category, q.reward_coins,
		       uq.progress, q.target_value, uq.is_claimed, uq.assigned_date
		FROM user_quests uq
		JOIN quests q ON q.quest_id = uq.quest_id
		WHERE uq.user_id = $1 AND uq.assigned_date = $2
		ORDER BY uq.user_quest_id
	`
	rows, err := s.db.QueryContext(ctx, query, identityID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	defer rows.Close()

	assignments := []*Assignment{}
	for rows.Next() {
		a := &Assignment{}
		if err := rows.Scan(
			&a.ID, &a.QuestID, &a.Title, &a.Category, &a.Reward,
			&a.Progress, &a.Target, &a.Claimed, &a.Day,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}

	return assignments, nil
}

// Claim marks a completed quest as claimed and credits its reward to the
// user's wallet, recording a credit transaction. All of it commits or none.
func (s *Service) Claim(ctx context.Context, identityID, userQuestID int64) (*ClaimResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		title    string
		progress int
		target   int
		reward   int
		claimed  bool
	)
	err = tx.QueryRowContext(ctx, `
		SELECT q.title, uq.progress, q.target_value, q.reward_coins, uq.is_claimed
		FROM user_quests uq
		JOIN quests q ON q.quest_id = uq.quest_id
		WHERE uq.user_quest_id = $1 AND uq.user_id = $2
		FOR UPDATE OF uq
	`, userQuestID, identityID).Scan(&title, &progress, &target, &reward, &claimed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQuestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load quest: %w", err)
	}
	if claimed {
		return nil, ErrAlreadyClaimed
	}
	if progress < target {
		return nil, ErrNotCompleted
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE user_quests SET is_claimed = TRUE, claimed_at = $1 WHERE user_quest_id = $2`,
		s.now(), userQuestID,
	); err != nil {
		return nil, fmt.Errorf("failed to mark quest claimed: %w", err)
	}

	var walletID, balance int64
	err = tx.QueryRowContext(ctx,
		`UPDATE wallets SET balance = balance + $1 WHERE user_id = $2 RETURNING wallet_id, balance`,
		reward, identityID,
	).Scan(&walletID, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to credit wallet: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (wallet_id, amount, status, type, description)
		VALUES ($1, $2, 'success', 'credit', $3)
	`, walletID, reward, "Quest reward: "+title); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &ClaimResult{UserQuestID: userQuestID, Reward: reward, Balance: balance}, nil
}
