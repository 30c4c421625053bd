// Package fanout scatters best-effort deliveries over a recipient list. Each
// attempt runs independently with its own timeout; one recipient failing never
// blocks or aborts the others.
package fanout

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultLimit bounds how many attempts run at once.
	DefaultLimit = 8
	// DefaultAttemptTimeout caps a single recipient delivery.
	DefaultAttemptTimeout = 10 * time.Second
)

// SendFunc delivers to a single recipient.
type SendFunc func(ctx context.Context, recipient int64) error

// Tally reports the aggregate outcome of a fan-out.
type Tally struct {
	Delivered int
	Total     int
}

// Options tunes a fan-out run. Zero values fall back to defaults.
type Options struct {
	Limit          int
	AttemptTimeout time.Duration
}

// Broadcast sends to every recipient and returns once all attempts have
// completed or timed out individually. Failures are counted, not propagated.
func Broadcast(ctx context.Context, recipients []int64, send SendFunc, opts Options) Tally {
	tally := Tally{Total: len(recipients)}
	if len(recipients) == 0 || send == nil {
		return tally
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	attemptTimeout := opts.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}

	var delivered atomic.Int64

	group := new(errgroup.Group)
	group.SetLimit(limit)

	for _, recipient := range recipients {
		recipient := recipient
		group.Go(func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
			defer cancel()

			if err := send(attemptCtx, recipient); err == nil {
				delivered.Add(1)
			}
			// Failures are isolated per recipient.
			return nil
		})
	}

	_ = group.Wait()

	tally.Delivered = int(delivered.Load())
	return tally
}
