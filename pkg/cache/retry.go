package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when a cache backend cannot be reached.
var ErrUnavailable = errors.New("cache unavailable")

// transientError marks a failure that may go away on retry.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as worth retrying. Transient(nil) is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked with [Transient].
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Backoff retries an operation, doubling the delay after each failure.
type Backoff struct {
	Attempts int
	Delay    time.Duration
}

// connectBackoff is used when dialing a backend.
var connectBackoff = Backoff{Attempts: 3, Delay: 200 * time.Millisecond}

// Do calls fn until it succeeds, returns an error not marked transient, or
// the attempts run out. The last error is returned.
func (b Backoff) Do(ctx context.Context, fn func(context.Context) error) error {
	delay := b.Delay
	var err error
	for i := range max(1, b.Attempts) {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
		if err = fn(ctx); err == nil || !IsTransient(err) {
			return err
		}
	}
	return err
}
