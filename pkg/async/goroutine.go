package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
)

// SafeGo executes a function in a goroutine with:
// - Panic recovery
// - Timeout enforcement
// - Error logging
//
// The goroutine keeps the values of parentCtx but not its cancellation, so a
// task started from an HTTP handler survives the response being written.
//
// Example:
//
//	SafeGo(r.Context(), logger, 5*time.Second, "quest progress", func(ctx context.Context) error {
//	    _, err := accumulator.Increment(ctx, userID, quests.CategoryComment, 1)
//	    return err
//	})
func SafeGo(parentCtx context.Context, logger logrus.FieldLogger, timeout time.Duration, taskName string, fn func(context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parentCtx), timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(logrus.Fields{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("panic in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			// Background tasks are best effort; the caller already responded
			logger.WithField("task", taskName).WithError(err).Warn("background task failed")
		}
	}()
	return done
}
