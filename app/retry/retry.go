// Package retry runs remote calls with bounded attempts and exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var ErrExhausted = errors.New("all attempts failed")

const DefaultMaxAttempts = 3

// Policy describes how an operation is retried. A non-nil error from Accept
// marks a result as unacceptable and consumes an attempt like a call failure.
// Sleep returns a non-nil error only once ctx is done.
type Policy[T any] struct {
	Name        string
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Accept      func(T) error
	Sleep       func(ctx context.Context, d time.Duration) error
}

// Exponential waits unit * 2^attempt after the zero-indexed failed attempt.
func Exponential(unit time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return unit * time.Duration(1<<uint(attempt))
	}
}

// SleepContext waits for d or until ctx is done.
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

// attemptBackOff feeds a per-attempt delay function to the backoff package.
type attemptBackOff struct {
	delay   func(int) time.Duration
	attempt int
}

func (b *attemptBackOff) NextBackOff() time.Duration {
	d := b.delay(b.attempt)
	b.attempt++
	return d
}

func (b *attemptBackOff) Reset() { b.attempt = 0 }

// sleepTimer fires once sleep returns without error.
type sleepTimer struct {
	ctx   context.Context
	sleep func(context.Context, time.Duration) error
	c     chan time.Time
}

func (t *sleepTimer) Start(d time.Duration) {
	go func() {
		if err := t.sleep(t.ctx, d); err == nil {
			t.c <- time.Now()
		}
	}()
}

func (t *sleepTimer) Stop() {}

func (t *sleepTimer) C() <-chan time.Time { return t.c }

// Do calls op until it returns an accepted result or the attempts run out.
// There is no wait after the last attempt. The returned error wraps
// ErrExhausted and the last failure cause.
func Do[T any](ctx context.Context, policy Policy[T], op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	delay := policy.Backoff
	if delay == nil {
		delay = Exponential(time.Second)
	}

	var timer backoff.Timer
	if policy.Sleep != nil {
		timer = &sleepTimer{ctx: ctx, sleep: policy.Sleep, c: make(chan time.Time, 1)}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(&attemptBackOff{delay: delay}, uint64(attempts-1)), ctx)

	attempt := 0
	result, err := backoff.RetryNotifyWithTimerAndData(func() (T, error) {
		if err := ctx.Err(); err != nil {
			return zero, backoff.Permanent(err)
		}
		attempt++

		result, err := op(ctx)
		if err == nil && policy.Accept != nil {
			err = policy.Accept(result)
		}
		if err != nil {
			slog.Warn("Remote call attempt failed", "call", policy.Name, "attempt", attempt, "max_attempts", attempts, "error", err)
			return zero, err
		}
		return result, nil
	}, b, nil, timer)
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, fmt.Errorf("%s: %w", policy.Name, ctxErr)
	}
	return zero, fmt.Errorf("%s: %w after %d attempts: %w", policy.Name, ErrExhausted, attempts, err)
}
