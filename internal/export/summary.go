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

import "time"

// summaryFileName is the document name of the per-run summary; the writer
// appends the .yaml extension.
const summaryFileName = "export_summary"

// Failure records one detector that could not be exported.
type Failure struct {
	ID     string `yaml:"id"`
	Reason string `yaml:"reason"`
}

// Summary is the aggregate end-of-run report. It is accumulated
// incrementally by the pipeline, which owns it exclusively for the duration
// of the run, and written once as export_summary.yaml.
//
// TotalFound counts records actually encountered: with an item limit in
// effect it reflects the truncation point, not the full upstream total.
type Summary struct {
	ExportedAtStart time.Time `yaml:"exported_at_start"`
	ExportedAtEnd   time.Time `yaml:"exported_at_end"`
	TotalFound      int       `yaml:"total_found"`
	ExportedCount   int       `yaml:"exported_count"`
	FailedCount     int       `yaml:"failed_count"`
	Failures        []Failure `yaml:"failures"`
	OutputDir       string    `yaml:"output_dir"`
}

func newSummary(outputDir string) *Summary {
	return &Summary{
		ExportedAtStart: time.Now().UTC(),
		Failures:        []Failure{},
		OutputDir:       outputDir,
	}
}

func (s *Summary) recordFound() {
	s.TotalFound++
}

func (s *Summary) recordExported() {
	s.ExportedCount++
}

func (s *Summary) recordFailure(id, reason string) {
	s.FailedCount++
	s.Failures = append(s.Failures, Failure{ID: id, Reason: reason})
}

func (s *Summary) finish() {
	s.ExportedAtEnd = time.Now().UTC()
}

// Duration returns the wall-clock time the run took.
func (s *Summary) Duration() time.Duration {
	return s.ExportedAtEnd.Sub(s.ExportedAtStart)
}
