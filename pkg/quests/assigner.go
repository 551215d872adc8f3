package quests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Assigner pre-assigns daily quests to recently active users so the first
// request of the day does not pay for assignment.
type Assigner struct {
	service     *Service
	logger      logrus.FieldLogger
	activeSince time.Duration
	concurrency int
}

// NewAssigner creates an assigner for users seen within activeSince
func NewAssigner(service *Service, logger logrus.FieldLogger, activeSince time.Duration) *Assigner {
	return &Assigner{
		service:     service,
		logger:      logger,
		activeSince: activeSince,
		concurrency: 4,
	}
}

// Run assigns today's quests to every active user and returns how many users were processed.
// Failures for individual users are logged and do not stop the run.
func (a *Assigner) Run(ctx context.Context) (int, error) {
	cutoff := a.service.now().Add(-a.activeSince)

	rows, err := a.service.db.QueryContext(ctx,
		`SELECT user_id FROM users WHERE status = 'active' AND is_verified AND last_login >= $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to list active users: %w", err)
	}
	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan user: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to list active users: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for _, id := range userIDs {
		id := id
		g.Go(func() error {
			if _, err := a.service.Daily(gctx, id); err != nil {
				if errors.Is(err, ErrNoTemplates) {
					return err
				}
				a.logger.WithError(err).WithField("user_id", id).Warn("failed to assign daily quests")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	a.logger.WithField("users", len(userIDs)).Info("daily quests assigned")
	return len(userIDs), nil
}
