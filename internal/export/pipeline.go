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
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/sfxops/sfx-export/internal/output"
	"github.com/sfxops/sfx-export/internal/signalfx"
)

// Result is the three-way outcome of an export run.
type Result int

const (
	// ResultSuccess: every discovered detector was exported.
	ResultSuccess Result = iota
	// ResultPartial: the run completed but some detectors failed to export.
	ResultPartial
	// ResultFailed: the run aborted before completing.
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultPartial:
		return "partial"
	case ResultFailed:
		return "failed"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// RunReport is what a run hands back to the caller. Nothing escapes Run as
// an unhandled failure: Err carries the fatal cause only when Result is
// ResultFailed, and Summary is always populated, even for aborted runs.
type RunReport struct {
	Summary *Summary
	Result  Result
	Err     error
}

// Options configures a Pipeline.
type Options struct {
	// Limit caps how many detectors are exported. Zero means no limit.
	Limit int
	// PageSize is the page size for collection fetches. Defaults to
	// signalfx.DefaultPageSize.
	PageSize int
	// Retry is the bounded retry policy for page fetches. Zero value means
	// DefaultRetryPolicy.
	Retry RetryPolicy
}

// Pipeline drives a single export run. It is not safe for concurrent use;
// create one per run.
type Pipeline struct {
	client   signalfx.Client
	writer   *output.Writer
	log      zerolog.Logger
	limit    int
	pageSize int
	retry    RetryPolicy
}

// New creates an export pipeline writing through the given writer.
func New(client signalfx.Client, writer *output.Writer, log zerolog.Logger, opts Options) *Pipeline {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = signalfx.DefaultPageSize
	}
	retry := opts.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}

	return &Pipeline{
		client:   client,
		writer:   writer,
		log:      log,
		limit:    opts.Limit,
		pageSize: pageSize,
		retry:    retry,
	}
}

// errWriteFailed marks per-item failures that happened at the filesystem
// boundary rather than during conversion.
var errWriteFailed = errors.New("detector file write failed")

// Run exports the detector collection. It pages through the API until the
// collection is exhausted or the item limit is reached, isolates per-item
// failures, and always finishes by writing export_summary.yaml — including
// after a fatal abort, where the summary reflects partial progress.
func (p *Pipeline) Run(ctx context.Context) *RunReport {
	sum := newSummary(p.writer.Dir())
	seen := make(map[string]bool)
	var fatal error

	p.log.Info().Str("output_dir", p.writer.Dir()).Int("page_size", p.pageSize).Msg("starting export")

pages:
	for offset := 0; ; offset += p.pageSize {
		if err := ctx.Err(); err != nil {
			fatal = err
			break
		}

		page, err := p.fetchPageWithRetry(ctx, offset)
		if err != nil {
			fatal = err
			break
		}

		records := page.Detectors
		if p.limit > 0 && sum.TotalFound+len(records) > p.limit {
			records = records[:p.limit-sum.TotalFound]
		}

		p.log.Debug().
			Int("offset", offset).
			Int("records", len(records)).
			Bool("has_more", page.HasMore).
			Msg("page fetched")

		for _, det := range records {
			sum.recordFound()
			if err := p.exportDetector(det, seen, sum); err != nil {
				// A write failure before anything landed on disk means the
				// directory itself is unusable; every later record would
				// fail the same way.
				if errors.Is(err, errWriteFailed) && sum.ExportedCount == 0 {
					fatal = err
					break pages
				}
			}
		}

		if p.limit > 0 && sum.TotalFound >= p.limit {
			break
		}
		if !page.HasMore {
			break
		}
	}

	return p.finishRun(sum, fatal)
}

// RunOne exports a single detector by id, producing the same document and
// summary shape as a full run.
func (p *Pipeline) RunOne(ctx context.Context, id string) *RunReport {
	sum := newSummary(p.writer.Dir())
	var fatal error

	det, err := p.fetchDetectorWithRetry(ctx, id)
	if err != nil {
		fatal = err
	} else {
		sum.recordFound()
		if err := p.exportDetector(det, make(map[string]bool), sum); err != nil {
			if errors.Is(err, errWriteFailed) {
				fatal = err
			}
		}
	}

	return p.finishRun(sum, fatal)
}

// exportDetector converts and writes one record. Conversion and write
// failures are folded into the summary; the returned error only signals
// the failure class to the caller, which decides whether to escalate.
func (p *Pipeline) exportDetector(det signalfx.Detector, seen map[string]bool, sum *Summary) error {
	id := det.ID()
	if id == "" {
		id = "(unknown)"
	}

	base, err := fileName(det)
	if err != nil {
		reason := err.Error()
		sum.recordFailure(id, reason)
		p.log.Error().Str("detector_id", id).Str("reason", reason).Msg("skipping detector")
		return err
	}
	name := uniqueFileName(seen, base, det)

	doc := newDocument(det, time.Now().UTC())
	data, err := yaml.Marshal(doc)
	if err != nil {
		reason := fmt.Sprintf("serialization failed: %v", err)
		sum.recordFailure(id, reason)
		p.log.Error().Str("detector_id", id).Str("reason", reason).Msg("skipping detector")
		return err
	}

	if err := p.writer.WriteBytes(name, data); err != nil {
		reason := fmt.Sprintf("write failed: %v", err)
		sum.recordFailure(id, reason)
		p.log.Error().Str("detector_id", id).Str("reason", reason).Msg("skipping detector")
		return fmt.Errorf("%w: %v", errWriteFailed, err)
	}

	seen[name] = true
	sum.recordExported()
	p.log.Debug().Str("detector_id", id).Str("file", p.writer.Path(name)).Msg("detector exported")
	return nil
}

// finishRun stamps the summary, persists it, and assembles the report.
// The summary write is best-effort on an already-fatal run.
func (p *Pipeline) finishRun(sum *Summary, fatal error) *RunReport {
	sum.finish()

	if err := p.writer.WriteDocument(summaryFileName, sum); err != nil {
		p.log.Error().Err(err).Msg("failed to write export summary")
		if fatal == nil {
			fatal = err
		}
	}

	result := ResultSuccess
	switch {
	case fatal != nil:
		result = ResultFailed
	case sum.FailedCount > 0:
		result = ResultPartial
	}

	evt := p.log.Info()
	if fatal != nil {
		evt = p.log.Error().Err(fatal)
	}
	evt.Stringer("result", result).
		Int("total_found", sum.TotalFound).
		Int("exported", sum.ExportedCount).
		Int("failed", sum.FailedCount).
		Dur("duration", sum.Duration()).
		Msg("export finished")

	return &RunReport{Summary: sum, Result: result, Err: fatal}
}
