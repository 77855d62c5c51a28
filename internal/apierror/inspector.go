package apierror

import (
	"errors"
	"strings"
	"time"

	sferrors "github.com/sfxops/sfx-export/internal/errors"
)

// IsAuthError reports whether the error represents an authentication or
// authorization failure. Auth errors are never retried: a second attempt
// with the same token fails identically.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sferrors.ErrInvalidToken) ||
		errors.Is(err, sferrors.ErrMissingToken) {
		return true
	}
	var apiErr *sferrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "invalid token")
}

// IsRateLimitError reports whether the error represents upstream throttling.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sferrors.ErrRateLimit) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

// IsNetworkError reports whether the error represents a transport-level
// failure (connection, DNS, TLS, timeout).
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sferrors.ErrNetworkFailure) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "dial tcp") ||
		strings.Contains(errStr, "tls handshake") ||
		strings.Contains(errStr, "network is unreachable")
}

// IsRetryable reports whether the pipeline's bounded retry policy applies.
// Rate limits, transport failures, and API statuses other than 401/403 are
// retryable. Auth failures are not: a second attempt with the same token
// fails identically.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsAuthError(err) {
		return false
	}
	if IsRateLimitError(err) || IsNetworkError(err) {
		return true
	}
	var apiErr *sferrors.APIError
	return errors.As(err, &apiErr)
}

// RetryAfter extracts the upstream Retry-After hint from the error chain.
// The second return is false when no hint is present.
func RetryAfter(err error) (time.Duration, bool) {
	var rle *sferrors.RateLimitError
	if errors.As(err, &rle) && rle.RetryAfter > 0 {
		return rle.RetryAfter, true
	}
	return 0, false
}
