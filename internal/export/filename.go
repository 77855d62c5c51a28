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
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/sfxops/sfx-export/internal/signalfx"
)

var errNoUsableName = errors.New("detector has neither a usable name nor an id")

// fileName derives the filesystem-safe base name for a detector's output
// file from its display name, falling back to the identifier when the name
// contains nothing safe to keep.
func fileName(d signalfx.Detector) (string, error) {
	if name := sanitize(d.Name()); name != "" {
		return name, nil
	}
	if id := sanitize(d.ID()); id != "" {
		return id, nil
	}
	return "", errNoUsableName
}

// uniqueFileName resolves collisions between detectors that sanitize to the
// same base name, first by suffixing the detector id and then by counting
// up, so no two records ever share an output file. seen is owned by the
// caller and spans one export run.
func uniqueFileName(seen map[string]bool, base string, d signalfx.Detector) string {
	if !seen[base] {
		return base
	}
	if id := sanitize(d.ID()); id != "" {
		if name := base + "_" + id; !seen[name] {
			return name
		}
	}
	for n := 2; ; n++ {
		if name := base + "_" + strconv.Itoa(n); !seen[name] {
			return name
		}
	}
}

// sanitize keeps letters, digits, dashes, underscores, and spaces, then
// folds spaces into underscores. Everything else is dropped.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == ' ' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimSpace(b.String())
	return strings.ReplaceAll(cleaned, " ", "_")
}
