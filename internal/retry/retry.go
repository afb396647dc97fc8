// Package retry implements the attempt loop used for artifact downloads.
//
// A Policy bundles the attempt budget, the backoff schedule and a classifier
// that separates fatal errors from retryable ones. The sleep function is
// pluggable so tests can observe backoff without waiting for it.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Decision is the classifier verdict for a failed attempt.
type Decision int

const (
	// Retry schedules another attempt if the budget allows.
	Retry Decision = iota

	// Stop ends the loop and returns the error as-is.
	Stop
)

// Classifier inspects an attempt error and decides whether to retry.
type Classifier func(err error) Decision

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// NotifyFunc is told about every failed attempt that will be retried.
// attempt is 1-based; wait is the backoff before the next attempt.
type NotifyFunc func(attempt int, err error, wait time.Duration)

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Policy describes how many times to try and how long to wait in between.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// Cooldown is the wait after the first failed attempt.
	Cooldown time.Duration

	// Exponent scales the wait for each further attempt. 1 keeps it constant.
	Exponent float64

	// MaxWait caps the wait. Zero means no cap.
	MaxWait time.Duration

	// Classify decides which errors are worth retrying. Nil retries every
	// error except context cancellation.
	Classify Classifier

	// Sleep performs the backoff wait. Nil uses a timer bound to the context.
	Sleep SleepFunc
}

// DefaultPolicy returns five attempts with a constant five second wait.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts: 5,
		Cooldown:    5 * time.Second,
		Exponent:    1,
	}
}

// Wait returns the backoff before the attempt following the given 1-based
// failed attempt.
func (p *Policy) Wait(attempt int) time.Duration {
	exp := p.Exponent
	if exp <= 0 {
		exp = 1
	}
	wait := time.Duration(float64(p.Cooldown) * math.Pow(exp, float64(attempt-1)))
	if p.MaxWait > 0 && wait > p.MaxWait {
		wait = p.MaxWait
	}
	return wait
}

// Do runs op until it succeeds, the classifier stops the loop, the budget
// is used up, or ctx is done. It returns the number of attempts made.
//
// Errors returned:
//   - nil when an attempt succeeded
//   - the attempt error unchanged when the classifier says Stop
//   - *ExhaustedError when the last allowed attempt failed
//   - ctx.Err() when the context ended during a backoff wait
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error, notify NotifyFunc) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}

		if p.classify(err) == Stop {
			return attempt, err
		}

		if attempt == maxAttempts {
			return attempt, &ExhaustedError{Attempts: attempt, Last: err}
		}

		wait := p.Wait(attempt)
		if notify != nil {
			notify(attempt, err, wait)
		}
		if serr := p.sleep(ctx, wait); serr != nil {
			return attempt, serr
		}
	}

	return maxAttempts, &ExhaustedError{Attempts: maxAttempts, Last: err}
}

func (p *Policy) classify(err error) Decision {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Stop
	}
	if p.Classify == nil {
		return Retry
	}
	return p.Classify(err)
}

func (p *Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext waits for d or until ctx is done, whichever comes first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
