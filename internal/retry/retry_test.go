package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("connection reset")
	errFatal     = errors.New("not found")
)

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func newTestPolicy(s *recordingSleeper) *Policy {
	p := DefaultPolicy()
	p.Sleep = s.Sleep
	p.Classify = func(err error) Decision {
		if errors.Is(err, errFatal) {
			return Stop
		}
		return Retry
	}
	return p
}

func TestPolicy_SucceedsAfterTransientFailures(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := newTestPolicy(sleeper)

	var notified []int
	attempts, err := p.Do(context.Background(), func(_ context.Context, attempt int) error {
		if attempt < 3 {
			return errTransient
		}
		return nil
	}, func(attempt int, err error, wait time.Duration) {
		notified = append(notified, attempt)
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 5*time.Second, wait)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, notified)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, sleeper.waits)
}

func TestPolicy_StopsOnFatalError(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := newTestPolicy(sleeper)

	attempts, err := p.Do(context.Background(), func(context.Context, int) error {
		return errFatal
	}, nil)

	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, errFatal)
	assert.Empty(t, sleeper.waits)
}

func TestPolicy_Exhausted(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := newTestPolicy(sleeper)

	calls := 0
	attempts, err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		return errTransient
	}, nil)

	assert.Equal(t, 5, attempts)
	assert.Equal(t, 5, calls)
	assert.Len(t, sleeper.waits, 4, "no wait after the last attempt")

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 5, exhausted.Attempts)
	assert.ErrorIs(t, err, errTransient)
}

func TestPolicy_ContextCanceledDuringWait(t *testing.T) {
	p := DefaultPolicy()
	p.Cooldown = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	attempts, err := p.Do(ctx, func(context.Context, int) error {
		cancel()
		return errTransient
	}, nil)

	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicy_Wait(t *testing.T) {
	p := &Policy{Cooldown: 200 * time.Millisecond, Exponent: 4, MaxWait: 5 * time.Second}

	assert.Equal(t, 200*time.Millisecond, p.Wait(1))
	assert.Equal(t, 800*time.Millisecond, p.Wait(2))
	assert.Equal(t, 3200*time.Millisecond, p.Wait(3))
	assert.Equal(t, 5*time.Second, p.Wait(4))
}

func TestSleepContext(t *testing.T) {
	start := time.Now()
	require.NoError(t, SleepContext(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}
