package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	retrygo "github.com/avast/retry-go"
)

// ErrAttemptTimeout is returned by an attempt that outlived Policy.AttemptTimeout.
var ErrAttemptTimeout = errors.New("attempt timed out")

// Policy is a capped exponential backoff: attempt n waits
// min(BaseDelay*2^(n-1), MaxDelay) before the next try.
type Policy struct {
	Attempts       uint
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Attempts:       3,
		BaseDelay:      2 * time.Second,
		MaxDelay:       8 * time.Second,
		AttemptTimeout: 30 * time.Second,
	}
}

// WithTimeout returns a copy of p with a different per-attempt timeout.
func (p Policy) WithTimeout(d time.Duration) Policy {
	p.AttemptTimeout = d
	return p
}

// Delay is the wait after the n-th failed attempt (n starts at 1).
func (p Policy) Delay(n uint) time.Duration {
	if n == 0 {
		n = 1
	}
	d := p.BaseDelay
	for i := uint(1); i < n; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

type options struct {
	onRetry func(attempt uint, wait time.Duration, err error)
	retryIf func(error) bool
}

type Option func(*options)

// OnRetry is called after a failed attempt that will be retried, with the
// 1-based attempt number and the wait before the next one.
func OnRetry(fn func(attempt uint, wait time.Duration, err error)) Option {
	return func(o *options) { o.onRetry = fn }
}

// If limits retries to errors for which fn returns true.
func If(fn func(error) bool) Option {
	return func(o *options) { o.retryIf = fn }
}

// Do runs fn until it succeeds, the policy is exhausted, ctx is done or the
// error is not retryable. Each attempt gets its own timeout.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error, opts ...Option) error {
	o := options{retryIf: func(error) bool { return true }}
	for _, opt := range opts {
		opt(&o)
	}
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}

	return retrygo.Do(
		func() error {
			return p.attempt(ctx, fn)
		},
		retrygo.Context(ctx),
		retrygo.Attempts(attempts),
		retrygo.Delay(p.BaseDelay),
		retrygo.MaxDelay(p.MaxDelay),
		retrygo.DelayType(retrygo.BackOffDelay),
		retrygo.LastErrorOnly(true),
		retrygo.RetryIf(o.retryIf),
		retrygo.OnRetry(func(n uint, err error) {
			// retry-go reports the final failure too
			if o.onRetry != nil && n+1 < attempts {
				o.onRetry(n+1, p.Delay(n+1), err)
			}
		}),
	)
}

func (p Policy) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(attemptCtx) }()

	select {
	case err := <-done:
		return err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w after %s", ErrAttemptTimeout, p.AttemptTimeout)
	}
}
