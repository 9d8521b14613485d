// Package retry runs an operation with bounded exponential backoff plus additive jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrExhausted is wrapped by the error Do returns when every attempt failed
var ErrExhausted = errors.New("retry budget exhausted")

// Policy bounds a retried operation. The delay before retry i (0-based) is
// BaseDelay*2^i plus a jitter drawn from [0, MaxJitter).
type Policy struct {
	Name        string
	BaseDelay   time.Duration
	MaxAttempts int
	MaxJitter   time.Duration
}

// PaymentSessionPolicy is used for payment-configuration requests
func PaymentSessionPolicy() Policy {
	return Policy{Name: "payment_session", BaseDelay: 2 * time.Second, MaxAttempts: 3, MaxJitter: time.Second}
}

// DispatchPolicy is used for order dispatch
func DispatchPolicy() Policy {
	return Policy{Name: "dispatch", BaseDelay: time.Second, MaxAttempts: 3, MaxJitter: time.Second}
}

// Delay returns the backoff before retry index i, without jitter
func (p Policy) Delay(i int) time.Duration {
	return p.BaseDelay * time.Duration(1<<uint(i))
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Jitter returns a random duration in [0, max)
type Jitter func(max time.Duration) time.Duration

// Retrier executes operations under a Policy
type Retrier struct {
	sleep  Sleeper
	jitter Jitter
	logger *zap.Logger
}

// New creates a retrier that sleeps on timers and draws jitter from math/rand
func New(logger *zap.Logger) *Retrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{sleep: SleepContext, jitter: randomJitter(), logger: logger}
}

// WithSleeper replaces how the retrier waits between attempts
func (r *Retrier) WithSleeper(s Sleeper) *Retrier {
	cp := *r
	cp.sleep = s
	return &cp
}

// WithJitter replaces the jitter source
func (r *Retrier) WithJitter(j Jitter) *Retrier {
	cp := *r
	cp.jitter = j
	return &cp
}

// Do calls fn until it succeeds, the policy's attempts are spent or ctx is done.
// Attempts run strictly one after another. It returns the number of attempts made.
func (r *Retrier) Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.Delay(attempt - 1)
			if p.MaxJitter > 0 {
				delay += r.jitter(p.MaxJitter)
			}
			r.logger.Info("Retrying after backoff",
				zap.String("operation", p.Name),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := r.sleep(ctx, delay); err != nil {
				return attempt, err
			}
		}

		err := fn(ctx)
		if err == nil {
			return attempt + 1, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return attempt + 1, ctx.Err()
		}
		var perm *PermanentError
		if errors.As(err, &perm) {
			return attempt + 1, perm.Err
		}
		r.logger.Warn("Attempt failed",
			zap.String("operation", p.Name),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err),
		)
	}
	return maxAttempts, fmt.Errorf("%s: %w: %w", p.Name, ErrExhausted, lastErr)
}

// PermanentError stops retrying immediately
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// SleepContext waits on a timer and returns early with ctx.Err() on cancellation
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

func randomJitter() Jitter {
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func(max time.Duration) time.Duration {
		if max <= 0 {
			return 0
		}
		mu.Lock()
		defer mu.Unlock()
		return time.Duration(rng.Int63n(int64(max)))
	}
}
