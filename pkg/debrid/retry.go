package debrid

import (
	"context"
	"time"

	"epstream/pkg/logger"
)

// RetryPolicy is chosen by the caller; the pipeline never retries on its own.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// NoRetry runs the pipeline exactly once.
var NoRetry = RetryPolicy{MaxAttempts: 1}

// UnrestrictWithRetry re-runs the whole pipeline from scratch while the
// previous run ended in NotReadyYet and attempts remain. A partially
// processed task is never resumed. It returns the last task.
func (p *Pipeline) UnrestrictWithRetry(ctx context.Context, magnet, token string, policy RetryPolicy) *Task {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	log := logger.FromContext(ctx)

	for attempt := 1; ; attempt++ {
		task := p.Run(ctx, magnet, token)
		task.Attempt = attempt
		if task.Failure == nil || !task.Failure.Kind.Recoverable() || attempt >= attempts {
			return task
		}
		if ctx.Err() != nil {
			return task
		}

		log.Debug("Debrid task not ready, retrying", "task_id", task.ExternalTaskID, "attempt", attempt, "max_attempts", attempts, "wait", policy.Interval)

		timer := time.NewTimer(policy.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return task
		case <-timer.C:
		}
	}
}
