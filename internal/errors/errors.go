// Copyright 2025 SFX Ops, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errors defines sentinel and typed errors for consistent error
// handling across the application. These errors map to specific exit codes
// in the CLI for proper scripting support.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for consistent error handling and exit code mapping
var (
	// ErrMissingToken indicates no API token was provided.
	// Configuration error, fatal before any network call. Maps to exit code 2.
	ErrMissingToken = errors.New("api token is required")

	// ErrMissingRealm indicates an empty realm was configured.
	// Configuration error, fatal before any network call. Maps to exit code 2.
	ErrMissingRealm = errors.New("realm is required")

	// ErrInvalidToken indicates SignalFx rejected the token (401/403).
	// Maps to exit code 2.
	ErrInvalidToken = errors.New("invalid signalfx token")

	// ErrNetworkFailure indicates a network connection problem.
	// Maps to exit code 3.
	ErrNetworkFailure = errors.New("network connection failed")

	// ErrRateLimit indicates the SignalFx API rate limit has been exceeded.
	// Maps to exit code 2.
	ErrRateLimit = errors.New("signalfx rate limit exceeded")
)

// RateLimitError carries the upstream throttling hint alongside the
// ErrRateLimit sentinel. RetryAfter is zero when the API provided no
// Retry-After header; callers fall back to their own backoff.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// Unwrap makes errors.Is(err, ErrRateLimit) hold for every RateLimitError.
func (e *RateLimitError) Unwrap() error { return ErrRateLimit }

// APIError represents a non-2xx response from the SignalFx API. The body is
// truncated by the client before being attached here.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("signalfx api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("signalfx api error: status %d: %s", e.StatusCode, e.Body)
}
