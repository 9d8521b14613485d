package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func TestDo_SucceedsOnThirdAttempt(t *testing.T) {
	rec := &recordingSleeper{}
	r := New(nil).WithSleeper(rec.sleep)

	calls := 0
	attempts, err := r.Do(context.Background(), PaymentSessionPolicy(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("503")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
	require.Len(t, rec.delays, 2)

	// base*2^i + jitter in [0, 1s)
	for i, d := range rec.delays {
		floor := 2 * time.Second * time.Duration(1<<i)
		assert.GreaterOrEqual(t, d, floor)
		assert.Less(t, d, floor+time.Second)
	}
	assert.Greater(t, rec.delays[1], rec.delays[0])
}

func TestDo_DelaysWithMaximalJitterStayMonotonic(t *testing.T) {
	rec := &recordingSleeper{}
	r := New(nil).
		WithSleeper(rec.sleep).
		WithJitter(func(max time.Duration) time.Duration { return max - time.Nanosecond })

	_, err := r.Do(context.Background(), DispatchPolicy(), func(ctx context.Context) error {
		return errors.New("500")
	})
	require.Error(t, err)
	require.Len(t, rec.delays, 2)
	assert.Equal(t, 2*time.Second-time.Nanosecond, rec.delays[0])
	assert.Equal(t, 3*time.Second-time.Nanosecond, rec.delays[1])
}

func TestDo_ExhaustedWrapsLastError(t *testing.T) {
	rec := &recordingSleeper{}
	r := New(nil).WithSleeper(rec.sleep).WithJitter(func(time.Duration) time.Duration { return 0 })

	last := errors.New("third failure")
	calls := 0
	attempts, err := r.Do(context.Background(), DispatchPolicy(), func(ctx context.Context) error {
		calls++
		if calls == 3 {
			return last
		}
		return errors.New("earlier failure")
	})

	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, last)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	rec := &recordingSleeper{}
	r := New(nil).WithSleeper(rec.sleep)

	bad := errors.New("400 bad request")
	attempts, err := r.Do(context.Background(), DispatchPolicy(), func(ctx context.Context) error {
		return Permanent(bad)
	})
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, bad)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Empty(t, rec.delays)
}

func TestDo_StopsWhenContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(nil).WithSleeper(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})

	calls := 0
	_, err := r.Do(ctx, DispatchPolicy(), func(ctx context.Context) error {
		calls++
		return errors.New("down")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRandomJitterBounds(t *testing.T) {
	j := randomJitter()
	for i := 0; i < 1000; i++ {
		d := j(time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, time.Second)
	}
	assert.Zero(t, j(0))
}

func TestSleepContext_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := SleepContext(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
