package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is a bounded retry policy with a fixed delay between attempts.
type Policy struct {
	// MaxAttempts counts the first try, a value of 2 means "retry once".
	MaxAttempts int
	Backoff     time.Duration
}

// Permanent marks an error that must not be retried.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs fn until it succeeds, returns a permanent error, the attempts are
// exhausted or ctx is done. fn receives the 1-based attempt number. The error
// of the last attempt is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error, notify func(err error, wait time.Duration)) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(p.Backoff)
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := fn(ctx, attempt)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(errors.Join(ctx.Err(), err))
		}
		return err
	}, b, notify)
	return err
}
