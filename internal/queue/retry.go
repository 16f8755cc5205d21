package queue

import (
	"context"
	"errors"
	"time"
)

// Deliverer hands one event to its final destination.
type Deliverer interface {
	Deliver(ctx context.Context, ev Event) error
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Backoff is an exponential retry policy.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// Delay returns the wait before retry number attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	return d
}

// DeliverWithRetry calls d until it succeeds, returns a permanent error,
// the attempt budget runs out or ctx ends. The last error is returned.
func DeliverWithRetry(ctx context.Context, d Deliverer, ev Event, b Backoff) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = d.Deliver(ctx, ev); err == nil || IsPermanent(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		t := time.NewTimer(b.Delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}
