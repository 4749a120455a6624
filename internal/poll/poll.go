// Package poll runs a task on a fixed interval.
//
// The tracker's scheduling contract is "invoke every T": the reconciliation
// body is a plain function of the fetched page and the stores, and this
// package owns when it fires. One run happens immediately so a fresh watch
// shows data without waiting a full interval.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Task is one unit of periodic work. A Task returning an error does not stop
// the runner; transient scrape failures must not kill the watch loop.
type Task func(ctx context.Context) error

// Runner invokes a Task every Interval until the context is cancelled.
type Runner struct {
	Interval time.Duration
	Task     Task
	Log      *slog.Logger
}

// Run blocks until ctx is cancelled. The task runs once immediately, then on
// every tick. Task errors are logged and swallowed; only a non-positive
// interval is a setup error.
func (r *Runner) Run(ctx context.Context) error {
	if r.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", r.Interval)
	}
	log := r.Log
	if log == nil {
		log = slog.Default()
	}

	r.runOnce(ctx, log)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx, log)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, log *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	if err := r.Task(ctx); err != nil {
		log.Error("poll task failed", "error", err)
	}
}
