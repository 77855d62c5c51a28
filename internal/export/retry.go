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

package export

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sfxops/sfx-export/internal/apierror"
	"github.com/sfxops/sfx-export/internal/signalfx"
)

// RetryPolicy configures the bounded retry behavior for page fetches.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries per page, first call included.
	MaxAttempts int
	// InitialBackoff is the first backoff duration.
	InitialBackoff time.Duration
	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration
}

// DefaultRetryPolicy returns the default retry configuration.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// newBackOff builds the interval source for one retried operation.
func (p *Pipeline) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.retry.InitialBackoff
	bo.MaxInterval = p.retry.MaxBackoff
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.1
	bo.MaxElapsedTime = 0 // attempts are bounded by count, not elapsed time
	bo.Reset()
	return bo
}

// fetchPageWithRetry fetches one page, retrying transient failures up to
// the policy's attempt bound. A rate-limit hint from the API overrides the
// computed backoff for that wait. Non-retryable errors (auth, most 4xx)
// return immediately; cancellation is honored both between attempts and
// during the backoff sleep.
func (p *Pipeline) fetchPageWithRetry(ctx context.Context, offset int) (*signalfx.DetectorPage, error) {
	bo := p.newBackOff()

	var lastErr error
	for attempt := 1; attempt <= p.retry.MaxAttempts; attempt++ {
		page, err := p.client.FetchDetectors(ctx, signalfx.FetchOptions{
			Offset:   offset,
			PageSize: p.pageSize,
		})
		if err == nil {
			return page, nil
		}
		lastErr = err

		if !apierror.IsRetryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == p.retry.MaxAttempts {
			break
		}

		wait := bo.NextBackOff()
		if hint, ok := apierror.RetryAfter(err); ok {
			wait = hint
		}

		p.log.Warn().
			Err(err).
			Int("offset", offset).
			Int("attempt", attempt).
			Int("max_attempts", p.retry.MaxAttempts).
			Dur("backoff", wait).
			Msg("page fetch failed, backing off before retry")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("page fetch at offset %d failed after %d attempts: %w",
		offset, p.retry.MaxAttempts, lastErr)
}

// fetchDetectorWithRetry applies the same bounded policy to a single
// detector lookup.
func (p *Pipeline) fetchDetectorWithRetry(ctx context.Context, id string) (signalfx.Detector, error) {
	bo := p.newBackOff()

	var lastErr error
	for attempt := 1; attempt <= p.retry.MaxAttempts; attempt++ {
		det, err := p.client.GetDetector(ctx, id)
		if err == nil {
			return det, nil
		}
		lastErr = err

		if !apierror.IsRetryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == p.retry.MaxAttempts {
			break
		}

		wait := bo.NextBackOff()
		if hint, ok := apierror.RetryAfter(err); ok {
			wait = hint
		}

		p.log.Warn().
			Err(err).
			Str("detector_id", id).
			Int("attempt", attempt).
			Int("max_attempts", p.retry.MaxAttempts).
			Dur("backoff", wait).
			Msg("detector fetch failed, backing off before retry")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("fetch of detector %s failed after %d attempts: %w",
		id, p.retry.MaxAttempts, lastErr)
}
