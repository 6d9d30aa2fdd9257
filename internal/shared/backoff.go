package shared

import (
	"context"
	"errors"
	"time"
)

// Backoff is the retry policy shared by every caller of a provider client.
// Transient failures (ErrProviderUnavailable, ErrRateLimited) are retried
// with exponential delay; everything else surfaces immediately.
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultBackoff returns the policy used when the config does not override
// it: 3 attempts, 500ms base, 10s ceiling.
func DefaultBackoff() Backoff {
	return Backoff{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}
}

// Retryable reports whether an error class is worth retrying.
func Retryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrRateLimited)
}

// Delay returns the wait before attempt n (0-based). A provider-supplied
// retry-after hint on err takes precedence over the exponential schedule.
func (b Backoff) Delay(attempt int, err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	d := b.BaseDelay << attempt
	if b.MaxDelay > 0 && d > b.MaxDelay {
		d = b.MaxDelay
	}
	return d
}

// Retry runs fn up to MaxAttempts times, sleeping per Delay between
// retryable failures. Context cancellation aborts the wait and returns the
// context error.
func (b Backoff) Retry(ctx context.Context, fn func() error) error {
	attempts := b.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !Retryable(err) || attempt == attempts-1 {
			return err
		}

		timer := time.NewTimer(b.Delay(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
