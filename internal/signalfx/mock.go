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
	"fmt"

	sferrors "github.com/sfxops/sfx-export/internal/errors"
)

// MockClient is a mock implementation of the Client interface for testing.
// It serves pages from the Detectors slice honoring offset and page size,
// and can inject an error script that is consumed one entry per
// FetchDetectors call (nil entries mean success).
type MockClient struct {
	// Detectors to serve, in API order.
	Detectors []Detector

	// Script holds per-call results for FetchDetectors. Call N returns
	// Script[N] when it is non-nil. Calls past the end of the script
	// succeed.
	Script []error

	// ConnectionErr, when set, makes TestConnection report failure.
	ConnectionErr error

	// Track calls for verification
	FetchCalls int
	LastOpts   FetchOptions
}

// NewMockClient creates a mock client with default test data.
func NewMockClient() *MockClient {
	return &MockClient{Detectors: generateTestDetectors()}
}

// MockOption configures a MockClient.
type MockOption func(*MockClient)

// WithDetectors sets specific detectors to serve.
func WithDetectors(detectors []Detector) MockOption {
	return func(m *MockClient) {
		m.Detectors = detectors
	}
}

// WithScript sets the per-call error script for FetchDetectors.
func WithScript(script ...error) MockOption {
	return func(m *MockClient) {
		m.Script = script
	}
}

// WithConnectionFailure makes TestConnection fail with the given error.
func WithConnectionFailure(err error) MockOption {
	return func(m *MockClient) {
		m.ConnectionErr = err
	}
}

// NewMockClientWithOptions creates a mock client with options.
func NewMockClientWithOptions(opts ...MockOption) *MockClient {
	mock := NewMockClient()
	for _, opt := range opts {
		opt(mock)
	}
	return mock
}

// FetchDetectors implements the Client interface.
func (m *MockClient) FetchDetectors(ctx context.Context, opts FetchOptions) (*DetectorPage, error) {
	call := m.FetchCalls
	m.FetchCalls++
	m.LastOpts = opts

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if call < len(m.Script) && m.Script[call] != nil {
		return nil, m.Script[call]
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	start := opts.Offset
	if start > len(m.Detectors) {
		start = len(m.Detectors)
	}
	end := start + pageSize
	if end > len(m.Detectors) {
		end = len(m.Detectors)
	}

	return &DetectorPage{
		Detectors:  m.Detectors[start:end],
		TotalCount: len(m.Detectors),
		HasMore:    end < len(m.Detectors),
	}, nil
}

// GetDetector implements the Client interface.
func (m *MockClient) GetDetector(ctx context.Context, id string) (Detector, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	for _, d := range m.Detectors {
		if d.ID() == id {
			return d, nil
		}
	}
	return nil, &sferrors.APIError{StatusCode: 404, Body: fmt.Sprintf("detector %s not found", id)}
}

// TestConnection implements the Client interface.
func (m *MockClient) TestConnection(ctx context.Context) ConnectionStatus {
	if m.ConnectionErr != nil {
		return ConnectionStatus{Reason: m.ConnectionErr.Error(), Err: m.ConnectionErr}
	}
	return ConnectionStatus{OK: true, Reason: "connection ok"}
}

// generateTestDetectors creates sample detector data for testing.
func generateTestDetectors() []Detector {
	return []Detector{
		{
			"id":          "D1000001",
			"name":        "High CPU utilization",
			"description": "Fires when CPU exceeds 90% for 5 minutes",
			"programText": "detect(when(data('cpu.utilization').mean() > 90, '5m')).publish('cpu')",
			"rules": []any{
				map[string]any{"severity": "Critical", "detectLabel": "cpu"},
			},
		},
		{
			"id":          "D1000002",
			"name":        "Memory pressure",
			"description": "Fires on sustained memory pressure",
			"programText": "detect(when(data('memory.utilization').mean() > 85, '10m')).publish('mem')",
			"rules": []any{
				map[string]any{"severity": "Warning", "detectLabel": "mem"},
			},
		},
		{
			"id":          "D1000003",
			"name":        "Disk almost full",
			"description": "Fires when disk usage crosses 95%",
			"programText": "detect(when(data('disk.utilization').max() > 95)).publish('disk')",
			"rules": []any{
				map[string]any{"severity": "Critical", "detectLabel": "disk"},
			},
		},
	}
}
