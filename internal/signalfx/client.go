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

import "context"

// Client defines the interface for interacting with the SignalFx API.
// This interface allows for easy mocking in tests.
type Client interface {
	// FetchDetectors retrieves one page of detectors starting at
	// opts.Offset. It returns the raw records plus pagination information;
	// it never retries internally.
	FetchDetectors(ctx context.Context, opts FetchOptions) (*DetectorPage, error)

	// GetDetector retrieves a single detector by its identifier.
	GetDetector(ctx context.Context, id string) (Detector, error)

	// TestConnection issues one lightweight request to validate the token
	// and realm before a full export run.
	TestConnection(ctx context.Context) ConnectionStatus
}
