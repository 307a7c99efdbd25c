package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// ErrRateLimited marks an upstream 429. Call sites wrap provider errors with
// it so the policy knows the attempt is retryable.
var ErrRateLimited = errors.New("rate limited")

// ErrUpstream marks a transient upstream failure (timeout, 5xx).
var ErrUpstream = errors.New("transient upstream error")

// Policy is an explicit backoff policy shared by all external-call sites.
// Delay doubles per attempt starting at BaseDelay, capped at MaxDelay,
// with up to Jitter of random spread added.
type Policy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Jitter      time.Duration `yaml:"jitter"`
}

// DefaultPolicy returns the engine-wide default: 3 attempts, 500ms base.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      250 * time.Millisecond,
	}
}

// Retryable reports whether err is worth retrying under this policy.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstream) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. ctx cancellation aborts between attempts.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := p.BaseDelay
	for i := 0; i < attempts; i++ {
		if i > 0 {
			wait := delay
			if p.Jitter > 0 {
				wait += time.Duration(rand.Int63n(int64(p.Jitter)))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			delay *= 2
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return err
		}
	}
	return err
}
