// Package retry runs an operation a bounded number of times with a fixed
// delay between attempts.
package retry

import (
	"context"
	"errors"
	"strings"
	"time"
)

// sleepFunc is overridden in tests to avoid real delays.
var sleepFunc = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy describes how many times to attempt an operation and how long to
// pause between attempts.
type Policy struct {
	Attempts int
	Delay    time.Duration
	// Retryable decides whether an error is worth another attempt. A nil
	// Retryable retries every error.
	Retryable func(error) bool
	// OnRetry is called before each pause with the 1-based attempt that failed.
	OnRetry func(attempt int, err error)
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// are used up, or ctx is done. The last error is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if i == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(i, err)
		}
		if serr := sleepFunc(ctx, p.Delay); serr != nil {
			return errors.Join(err, serr)
		}
	}
	return err
}

// transientMarkers are the network error codes Chrome reports for dropped or
// refused connections that usually succeed on a second attempt.
var transientMarkers = []string{
	"ERR_CONNECTION_CLOSED",
	"ERR_CONNECTION_RESET",
	"ERR_CONNECTION_ABORTED",
	"ERR_EMPTY_RESPONSE",
	"ERR_TIMED_OUT",
	"ERR_NETWORK_CHANGED",
}

// IsTransientNavigation reports whether err looks like a dropped connection
// during page load.
func IsTransientNavigation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
