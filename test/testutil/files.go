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

package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// ReadYAMLFile parses a YAML file into a generic map.
func ReadYAMLFile(t *testing.T, path string) map[string]any {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Failed to parse %s as YAML: %v", path, err)
	}
	return doc
}

// AssertDetectorFile validates the shape of an exported detector file: a
// metadata block carrying the original id, and a detector body with the
// system fields stripped.
func AssertDetectorFile(t *testing.T, path, wantID string) {
	t.Helper()

	doc := ReadYAMLFile(t, path)

	meta, ok := doc["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("%s: missing metadata block", path)
	}
	if got := meta["original_id"]; got != wantID {
		t.Errorf("%s: original_id = %v, want %v", path, got, wantID)
	}
	if meta["exported_at"] == nil {
		t.Errorf("%s: missing exported_at", path)
	}
	if meta["export_tool"] != "sfx-export" {
		t.Errorf("%s: export_tool = %v, want sfx-export", path, meta["export_tool"])
	}

	det, ok := doc["detector"].(map[string]any)
	if !ok {
		t.Fatalf("%s: missing detector block", path)
	}
	for _, field := range []string{"id", "createdOn", "lastUpdatedOn", "creator"} {
		if _, present := det[field]; present {
			t.Errorf("%s: system field %q should be stripped", path, field)
		}
	}
}

// AssertSummaryFile validates export_summary.yaml against expected counts.
func AssertSummaryFile(t *testing.T, dir string, found, exported, failed int) {
	t.Helper()

	doc := ReadYAMLFile(t, filepath.Join(dir, "export_summary.yaml"))

	checks := map[string]int{
		"total_found":    found,
		"exported_count": exported,
		"failed_count":   failed,
	}
	for key, want := range checks {
		got, ok := doc[key].(int)
		if !ok {
			t.Errorf("summary: %s missing or not an integer (%v)", key, doc[key])
			continue
		}
		if got != want {
			t.Errorf("summary: %s = %d, want %d", key, got, want)
		}
	}

	for _, key := range []string{"exported_at_start", "exported_at_end", "output_dir"} {
		if doc[key] == nil {
			t.Errorf("summary: missing %s", key)
		}
	}
}

// CountDetectorFiles counts YAML files in dir, excluding the summary.
func CountDetectorFiles(t *testing.T, dir string) int {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir %s: %v", dir, err)
	}

	count := 0
	for _, e := range entries {
		name := e.Name()
		if name == "export_summary.yaml" || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		count++
	}
	return count
}
