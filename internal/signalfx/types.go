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

// Detector is one alert definition as returned by the API. The upstream
// schema is large and changes between releases, so the record is carried as
// an opaque document and passed through to the export verbatim. Only the
// identifier and name are ever interpreted.
type Detector map[string]any

// ID returns the detector's identifier, or "" when absent or not a string.
func (d Detector) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Name returns the detector's display name, or "" when absent or not a string.
func (d Detector) Name() string {
	name, _ := d["name"].(string)
	return name
}

// DetectorPage represents one page of the detector collection. TotalCount
// is the API's count field when present (0 when the API omitted it), and
// HasMore indicates whether another page remains after this one.
type DetectorPage struct {
	Detectors  []Detector
	TotalCount int
	HasMore    bool
}

// FetchOptions configures a single page fetch.
type FetchOptions struct {
	// Offset is the number of detectors to skip.
	Offset int

	// PageSize controls how many detectors to request.
	// Defaults to 50 if not specified.
	PageSize int
}

// DefaultPageSize is the page size used when FetchOptions leaves it unset.
const DefaultPageSize = 50

// ConnectionStatus is the outcome of a connectivity probe. Expected HTTP
// failures (bad token, unknown realm) are folded into OK/Reason rather than
// surfacing as errors; Err carries the classified cause for exit-code
// mapping when OK is false.
type ConnectionStatus struct {
	OK     bool
	Reason string
	Err    error
}
