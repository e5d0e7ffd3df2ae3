// Package retry runs operations with exponential backoff.
//
// Only failures marked with [Transient] are retried. Everything else is
// returned on the first attempt, so a backend decides which of its errors
// are worth a second try (a throttled query, a timed-out CLI call) and which
// are not (not logged in, malformed scope).
package retry

import (
	"context"
	"errors"
	"time"
)

// TransientError marks an error as retryable.
type TransientError struct{ Err error }

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a [TransientError]. Transient(nil) is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err (or anything it wraps) is a [TransientError].
func IsTransient(err error) bool {
	return errors.As(err, new(*TransientError))
}

// Policy configures [Do].
type Policy struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultPolicy is 3 attempts starting at one second.
var DefaultPolicy = Policy{Attempts: 3, Delay: time.Second, MaxDelay: 10 * time.Second}

// Do executes fn until it succeeds, returns a non-transient error, or the
// attempts are exhausted. The delay doubles after each failed attempt and is
// capped at MaxDelay when set. Returns ctx.Err() if cancelled while waiting.
func Do(ctx context.Context, p Policy, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsTransient(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
				if p.MaxDelay > 0 && delay > p.MaxDelay {
					delay = p.MaxDelay
				}
			}
		}
	}
	return lastErr
}
