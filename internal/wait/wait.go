// File: internal/wait/wait.go
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrTimeout reports that a bounded wait ran out of time before its condition held.
var ErrTimeout = errors.New("wait timed out")

// DefaultInterval is used when a caller passes a non-positive poll interval.
const DefaultInterval = 250 * time.Millisecond

// Condition reports whether the awaited state has been reached. A non-nil error
// aborts the wait immediately.
type Condition func(ctx context.Context) (bool, error)

// Until polls cond every interval until it returns true, returns an error, or the
// timeout elapses. The first check runs immediately and the last one runs at the
// deadline, so a condition that holds by then is never reported as a timeout. On
// timeout the returned error wraps ErrTimeout and names what was being waited for.
// Cancellation of ctx itself is returned as the context's error.
func Until(ctx context.Context, what string, timeout, interval time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	deadline := time.Now().Add(timeout)
	// The check at the deadline still needs a live context to probe with.
	probeCtx, cancel := context.WithDeadline(ctx, deadline.Add(interval))
	defer cancel()
	timedOut := func() error {
		return fmt.Errorf("%s: timed out after %v: %w", what, timeout, ErrTimeout)
	}

	// Burst of one lets the first probe through without delay.
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delay := limiter.Reserve().Delay()
		if remaining := time.Until(deadline); delay > remaining {
			delay = max(remaining, 0)
		}
		timer.Reset(delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		ok, err := cond(probeCtx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if probeCtx.Err() != nil {
				return timedOut()
			}
			return fmt.Errorf("%s: %w", what, err)
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return timedOut()
		}
	}
}
