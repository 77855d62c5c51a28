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

package signalfx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sfxops/sfx-export/internal/apierror"
	sferrors "github.com/sfxops/sfx-export/internal/errors"
	"github.com/sfxops/sfx-export/pkg/version"
)

const (
	detectorPath = "/v2/detector"

	// maxResponseBytes caps response bodies to prevent memory issues.
	maxResponseBytes = 10 * 1024 * 1024

	// maxErrorBodyBytes caps how much of an error response body is carried
	// into an APIError.
	maxErrorBodyBytes = 512
)

// BaseURLForRealm constructs the API host for a realm. The default us0
// realm uses the bare host; every other realm is embedded in the hostname.
func BaseURLForRealm(realm string) string {
	if realm == "us0" {
		return "https://api.signalfx.com"
	}
	return fmt.Sprintf("https://api.%s.signalfx.com", realm)
}

// RESTClient implements the Client interface against the SignalFx REST API.
// It is configured with:
//   - Authentication via the org token on every request
//   - A realm-derived (or overridden) base URL
//   - Client-side request pacing to stay under the upstream rate limit
//   - Response size limiting to prevent memory issues
//   - Optimized connection pooling for API performance
type RESTClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// Option customizes a RESTClient.
type Option func(*RESTClient)

// WithEndpoint overrides the realm-derived base URL. Used for testing and
// for proxied deployments.
func WithEndpoint(endpoint string) Option {
	return func(c *RESTClient) {
		c.baseURL = strings.TrimRight(endpoint, "/")
	}
}

// WithRequestRate sets the client-side pacing in requests per second.
func WithRequestRate(perSecond float64) Option {
	return func(c *RESTClient) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. The auth transport is
// still applied on top of the client's transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *RESTClient) {
		base := hc.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		auth := c.httpClient.Transport.(*authTransport)
		auth.base = base
		hc.Transport = auth
		c.httpClient = hc
	}
}

// New creates a SignalFx API client for the given token and realm. It fails
// before any network call when the token is empty or the realm is blank.
func New(token, realm string, opts ...Option) (*RESTClient, error) {
	if strings.TrimSpace(token) == "" {
		return nil, sferrors.ErrMissingToken
	}
	if strings.TrimSpace(realm) == "" {
		return nil, sferrors.ErrMissingRealm
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	c := &RESTClient{
		httpClient: &http.Client{
			Transport: &authTransport{
				token: token,
				base:  transport,
			},
			Timeout: 30 * time.Second,
		},
		baseURL: BaseURLForRealm(realm),
		limiter: rate.NewLimiter(rate.Limit(4), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// FetchDetectors retrieves one page of detectors. HasMore is derived from
// the API's count field when present, falling back to page fullness.
func (c *RESTClient) FetchDetectors(ctx context.Context, opts FetchOptions) (*DetectorPage, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	query := url.Values{
		"offset": {strconv.Itoa(opts.Offset)},
		"limit":  {strconv.Itoa(pageSize)},
	}

	body, err := c.doGet(ctx, detectorPath, query)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Count   int        `json:"count"`
		Results []Detector `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode detector page at offset %d: %w", opts.Offset, err)
	}

	page := &DetectorPage{
		Detectors:  resp.Results,
		TotalCount: resp.Count,
	}
	if resp.Count > 0 {
		page.HasMore = opts.Offset+len(resp.Results) < resp.Count
	} else {
		page.HasMore = len(resp.Results) == pageSize
	}

	return page, nil
}

// GetDetector retrieves a single detector by id.
func (c *RESTClient) GetDetector(ctx context.Context, id string) (Detector, error) {
	body, err := c.doGet(ctx, detectorPath+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var d Detector
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("failed to decode detector %s: %w", id, err)
	}
	return d, nil
}

// TestConnection validates the token and realm with a single minimal page
// request. Expected HTTP failures are translated into a readable reason
// instead of surfacing as errors.
func (c *RESTClient) TestConnection(ctx context.Context) ConnectionStatus {
	_, err := c.doGet(ctx, detectorPath, url.Values{"limit": {"1"}})
	if err == nil {
		return ConnectionStatus{OK: true, Reason: "connection ok"}
	}

	status := ConnectionStatus{Err: err}
	var apiErr *sferrors.APIError
	switch {
	case apierror.IsAuthError(err):
		status.Reason = "401 unauthorized: token was rejected, check the org token"
	case apierror.IsRateLimitError(err):
		status.Reason = "rate limited: the API is throttling requests, try again shortly"
	case apierror.IsNetworkError(err):
		status.Reason = "network unreachable: check connectivity and that the realm is correct"
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		status.Reason = "realm not found: the endpoint exists but the detector API is absent"
	default:
		status.Reason = err.Error()
	}
	return status
}

// doGet performs one authenticated GET and maps failures onto the error
// taxonomy. It does not retry.
func (c *RESTClient) doGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", path, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Cancellation is not a transport failure.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("signalfx api unreachable: %v: %w", err, sferrors.ErrNetworkFailure)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.mapStatusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v: %w", err, sferrors.ErrNetworkFailure)
	}
	return body, nil
}

// mapStatusError maps a non-2xx response to a typed error.
// 403 is treated as auth, not rate limiting: SignalFx signals throttling
// with 429 only.
func (c *RESTClient) mapStatusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("signalfx authentication failed (status %d): %w",
			resp.StatusCode, sferrors.ErrInvalidToken)
	case http.StatusTooManyRequests:
		return &sferrors.RateLimitError{RetryAfter: parseRetryAfter(resp.Header)}
	default:
		return &sferrors.APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
}

// parseRetryAfter reads the Retry-After header as either delay seconds or
// an HTTP date. Returns zero when absent or unparseable.
func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// limitedReader wraps a ReadCloser with a size limit to prevent excessive
// memory usage.
type limitedReader struct {
	io.ReadCloser
	limit int64
	read  int64
}

// Read implements io.Reader with size limit enforcement.
func (lr *limitedReader) Read(p []byte) (n int, err error) {
	if lr.read >= lr.limit {
		return 0, fmt.Errorf("response size exceeded limit of %d bytes", lr.limit)
	}

	remaining := lr.limit - lr.read
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err = lr.ReadCloser.Read(p)
	lr.read += int64(n)

	return n, err
}

// authTransport adds the SignalFx auth header and safety limits to HTTP
// requests.
type authTransport struct {
	token string
	base  http.RoundTripper
}

// RoundTrip implements http.RoundTripper
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	req = req.Clone(req.Context())

	req.Header.Set("X-SF-Token", t.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", fmt.Sprintf("sfx-export/%s", version.Version))

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.Body != nil {
		resp.Body = &limitedReader{
			ReadCloser: resp.Body,
			limit:      maxResponseBytes,
		}
	}

	return resp, nil
}
