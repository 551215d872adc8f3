package quests

import (
	"context"
	"time"

	"github.com/platinummonkey/panelhub/pkg/async"
	"github.com/platinummonkey/panelhub/pkg/observability"
	"github.com/sirupsen/logrus"
)

// EventQuestCompleted is emitted to the user when an increment first completes a quest
const EventQuestCompleted = "quest:completed"

// Emitter delivers live events to an identity's connections
type Emitter interface {
	Emit(identityID int64, event string, payload any)
}

// Tracker records activity against quests without blocking the caller.
// Other flows (reading, commenting, rating) call Track after their own work succeeds.
type Tracker struct {
	accumulator *Accumulator
	emitter     Emitter
	logger      logrus.FieldLogger
	metrics     *observability.Metrics
	timeout     time.Duration
}

// NewTracker creates a new tracker. emitter may be nil.
func NewTracker(accumulator *Accumulator, emitter Emitter, logger logrus.FieldLogger, metrics *observability.Metrics) *Tracker {
	return &Tracker{
		accumulator: accumulator,
		emitter:     emitter,
		logger:      logger,
		metrics:     metrics,
		timeout:     5 * time.Second,
	}
}

// Increment runs the accumulator synchronously and records the outcome
func (t *Tracker) Increment(ctx context.Context, identityID int64, category Category, amount int) (*Result, error) {
	result, err := t.accumulator.Increment(ctx, identityID, category, amount)
	switch {
	case err != nil:
		t.metrics.QuestIncrement(string(category), "error")
		return nil, err
	case result == nil:
		t.metrics.QuestIncrement(string(category), "noop")
		return nil, nil
	case result.JustCompleted():
		t.metrics.QuestIncrement(string(category), "completed")
		if t.emitter != nil {
			t.emitter.Emit(identityID, EventQuestCompleted, result)
		}
	case result.Completed:
		t.metrics.QuestIncrement(string(category), "saturated")
	default:
		t.metrics.QuestIncrement(string(category), "advanced")
	}
	return result, nil
}

// Track increments in the background. The returned channel closes when done.
func (t *Tracker) Track(ctx context.Context, identityID int64, category Category, amount int) <-chan struct{} {
	logger := t.logger.WithFields(logrus.Fields{
		"user_id":  identityID,
		"category": category,
	})
	return async.SafeGo(ctx, logger, t.timeout, "quest progress", func(ctx context.Context) error {
		_, err := t.Increment(ctx, identityID, category, amount)
		return err
	})
}
