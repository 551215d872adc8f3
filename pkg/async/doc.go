// Package async provides safe execution of best-effort background tasks.
//
// SafeGo runs a function in its own goroutine with panic recovery, a timeout,
// and error logging. It returns a channel closed on completion so tests and
// shutdown paths can wait for the task.
//
//	done := async.SafeGo(r.Context(), logger, 5*time.Second, "quest progress", func(ctx context.Context) error {
//		return tracker.track(ctx)
//	})
//
// # Related Packages
//
//   - pkg/quests: Uses SafeGo for progress tracking triggered by other flows
package async
