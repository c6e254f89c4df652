package execute

import (
	"context"
	"time"
)

// RetryPolicy bounds re-attempts of a flaky command. Only the two
// network-bound operations (keyring refresh, full system upgrade) run
// under a retry policy; everything else is attempt-once.
type RetryPolicy struct {
	// MaxAttempts is the total invocation budget, including the first.
	MaxAttempts int

	// Delay is the fixed pause between attempts.
	Delay time.Duration
}

// DefaultRetry is the policy applied to network-flaky package-manager
// operations.
var DefaultRetry = RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second}

// RunRetry executes cmd under the given policy. In dry-run a single
// announcement is made and success reported. Each failed attempt logs a
// warning and sleeps policy.Delay; the last attempt's error is returned
// once the budget is exhausted.
func (e *Executor) RunRetry(ctx context.Context, cmd Command, policy RetryPolicy) error {
	if e.dryRun {
		e.log.DryRunf("would run (with up to %d attempts): %s", policy.MaxAttempts, cmd)
		return nil
	}

	var err error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}

		err = e.Run(ctx, cmd)
		if err == nil {
			return nil
		}

		if attempt < policy.MaxAttempts {
			e.log.WithError(err).Warnf("attempt %d/%d failed, retrying in %s",
				attempt, policy.MaxAttempts, policy.Delay)
			e.sleep(policy.Delay)
		}
	}
	return err
}
