package quests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Accumulator advances today's quest counters
type Accumulator struct {
	db  *sql.DB
	now func() time.Time
}

// NewAccumulator creates a new accumulator
func NewAccumulator(db *sql.DB) *Accumulator {
	return &Accumulator{db: db, now: time.Now}
}

// Increment adds amount to the caller's unclaimed quest in category for today,
// capped at the quest's target. The read and the capped write happen in one
// statement so concurrent increments are never lost.
//
// When no unclaimed quest of that category is assigned today it returns
// nil, nil and creates nothing. A quest already at its target stays at its
// target and is reported as completed again.
func (a *Accumulator) Increment(ctx context.Context, identityID int64, category Category, amount int) (*Result, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !category.IsValid() {
		return nil, ErrInvalidCategory
	}

	query := `
		WITH target AS (
			SELECT uq.user_quest_id, uq.progress
			FROM user_quests uq
			JOIN quests q ON q.quest_id = uq.quest_id
			WHERE uq.user_id = $1 AND q.category = $2 AND uq.assigned_date = $3
				AND NOT uq.is_claimed
			ORDER BY uq.user_quest_id
			LIMIT 1
		)
		UPDATE user_quests uq
		SET progress = LEAST(uq.progress + $4, q.target_value)
		FROM quests q, target
		WHERE uq.user_quest_id = target.user_quest_id AND q.quest_id = uq.quest_id
		RETURNING uq.user_quest_id, uq.progress, q.target_value, target.progress
	`
	result := &Result{}
	err := a.db.QueryRowContext(ctx, query, identityID, category, dayOf(a.now()), amount).
		Scan(&result.UserQuestID, &result.Progress, &result.Target, &result.previous)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to increment quest progress: %w", err)
	}
	result.Completed = result.Progress >= result.Target

	return result, nil
}
