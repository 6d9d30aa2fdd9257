// Package limiter gates provider API traffic with per-credential token
// buckets so concurrent jobs sharing a credential stay inside the
// provider's global rate limit.
package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tracklift/tracklift/internal/shared"
)

// Limiter wraps a token bucket. Acquire blocks cooperatively until a token
// is available or the wait deadline elapses.
type Limiter struct {
	bucket  *rate.Limiter
	timeout time.Duration
}

// New creates a Limiter refilling at rps tokens per second with the given
// burst capacity. timeout bounds each Acquire wait; zero means the caller's
// context is the only deadline.
func New(rps float64, burst int, timeout time.Duration) *Limiter {
	if rps <= 0 {
		rps = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		bucket:  rate.NewLimiter(rate.Limit(rps), burst),
		timeout: timeout,
	}
}

// Acquire blocks until a token is available. Returns ErrRateLimitTimeout
// when the limiter's own deadline elapses first, or the context error when
// the caller's context ends the wait.
func (l *Limiter) Acquire(ctx context.Context) error {
	wait := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		wait, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	if err := l.bucket.Wait(wait); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", shared.ErrRateLimitTimeout, err)
	}
	return nil
}

// Registry hands out one Limiter per (provider, credential) pair. Safe for
// concurrent use; two jobs running against the same credential share the
// same bucket.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{limiters: make(map[string]*Limiter)}
}

// For returns the Limiter for the given provider and credential, creating
// it with the supplied parameters on first use. Later calls with different
// parameters return the existing Limiter unchanged.
func (r *Registry) For(provider, credential string, rps float64, burst int, timeout time.Duration) *Limiter {
	key := provider + "\x00" + credential

	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[key]; ok {
		return l
	}
	l := New(rps, burst, timeout)
	r.limiters[key] = l
	return l
}
