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
	"time"

	"github.com/sfxops/sfx-export/internal/signalfx"
)

// exportTool identifies this exporter in document metadata.
const exportTool = "sfx-export"

// Metadata annotates an exported detector. It lives as a sibling of the
// detector body and is never merged into it, so the original record stays
// intact.
type Metadata struct {
	ExportedAt time.Time `yaml:"exported_at"`
	OriginalID string    `yaml:"original_id"`
	ExportTool string    `yaml:"export_tool"`
}

// Document is the shape of every exported detector file.
type Document struct {
	Metadata Metadata          `yaml:"metadata"`
	Detector signalfx.Detector `yaml:"detector"`
}

// systemFields are upstream bookkeeping fields stripped from the detector
// body before export; they would churn on every run and are meaningless
// outside the originating org. The detector id survives in the metadata
// block.
var systemFields = map[string]struct{}{
	"id":               {},
	"createdOn":        {},
	"creator":          {},
	"createdBy":        {},
	"lastUpdatedOn":    {},
	"lastUpdatedBy":    {},
	"lastUpdateUserId": {},
	"lastUpdateTime":   {},
	"updateTime":       {},
	"createTime":       {},
}

// cleanDetector returns a copy of the detector without system-generated
// fields. The input record is never mutated.
func cleanDetector(d signalfx.Detector) signalfx.Detector {
	cleaned := make(signalfx.Detector, len(d))
	for key, value := range d {
		if _, excluded := systemFields[key]; excluded {
			continue
		}
		cleaned[key] = value
	}
	return cleaned
}

// newDocument assembles the export document for one detector.
func newDocument(d signalfx.Detector, exportedAt time.Time) Document {
	return Document{
		Metadata: Metadata{
			ExportedAt: exportedAt,
			OriginalID: d.ID(),
			ExportTool: exportTool,
		},
		Detector: cleanDetector(d),
	}
}
