package shared

import (
	"fmt"
	"time"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors. The engine treats an expired token the same as
	// an invalid one; refresh is the caller's responsibility.
	ErrAuth             = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// Provider errors
	ErrProviderUnavailable = fmt.Errorf("provider unavailable")
	ErrRateLimited         = fmt.Errorf("rate limited")
	ErrRateLimitTimeout    = fmt.Errorf("rate limit wait timed out")
	ErrQuotaExceeded       = fmt.Errorf("account quota exceeded")
	ErrPlaylistNotFound    = fmt.Errorf("playlist not found")
	ErrTrackNotFound       = fmt.Errorf("track not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)

// RateLimitError wraps ErrRateLimited with the provider's retry-after hint.
// RetryAfter is zero when the provider sent no hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
