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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	sferrors "github.com/sfxops/sfx-export/internal/errors"
	"github.com/sfxops/sfx-export/internal/output"
	"github.com/sfxops/sfx-export/internal/signalfx"
)

// fastRetry keeps test runs quick while still exercising the retry loop.
var fastRetry = RetryPolicy{
	MaxAttempts:    3,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     5 * time.Millisecond,
}

func testDetectors(n int) []signalfx.Detector {
	detectors := make([]signalfx.Detector, 0, n)
	for i := 1; i <= n; i++ {
		detectors = append(detectors, signalfx.Detector{
			"id":          fmt.Sprintf("D%03d", i),
			"name":        fmt.Sprintf("Detector %03d", i),
			"programText": "detect(when(data('x').mean() > 1)).publish('x')",
			"createdOn":   1700000000000,
		})
	}
	return detectors
}

func newTestPipeline(t *testing.T, client signalfx.Client, opts Options) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := output.NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	opts.Retry = fastRetry
	return New(client, w, zerolog.Nop(), opts), dir
}

func yamlFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading output dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func readSummary(t *testing.T, dir string) *Summary {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "export_summary.yaml"))
	if err != nil {
		t.Fatalf("summary file missing: %v", err)
	}
	var sum Summary
	if err := yaml.Unmarshal(data, &sum); err != nil {
		t.Fatalf("summary file not valid YAML: %v", err)
	}
	return &sum
}

// Three detectors with page size two: two fetches, three detector files
// plus the summary, all counts accounted for.
func TestRun_PaginatedScenario(t *testing.T) {
	mock := signalfx.NewMockClientWithOptions(signalfx.WithDetectors(testDetectors(3)))
	p, dir := newTestPipeline(t, mock, Options{PageSize: 2})

	report := p.Run(context.Background())

	if report.Result != ResultSuccess {
		t.Fatalf("Result = %s, want success (err: %v)", report.Result, report.Err)
	}
	if mock.FetchCalls != 2 {
		t.Errorf("FetchCalls = %d, want 2", mock.FetchCalls)
	}
	if got := len(yamlFiles(t, dir)); got != 4 {
		t.Errorf("file count = %d, want 3 detectors + 1 summary", got)
	}

	sum := readSummary(t, dir)
	if sum.TotalFound != 3 || sum.ExportedCount != 3 || sum.FailedCount != 0 {
		t.Errorf("summary = found %d, exported %d, failed %d; want 3, 3, 0",
			sum.TotalFound, sum.ExportedCount, sum.FailedCount)
	}
	if sum.OutputDir != dir {
		t.Errorf("OutputDir = %s, want %s", sum.OutputDir, dir)
	}
}

func TestRun_DetectorFileContent(t *testing.T) {
	mock := signalfx.NewMockClientWithOptions(signalfx.WithDetectors(testDetectors(1)))
	p, dir := newTestPipeline(t, mock, Options{})

	if report := p.Run(context.Background()); report.Result != ResultSuccess {
		t.Fatalf("Result = %s, want success", report.Result)
	}

	data, err := os.ReadFile(filepath.Join(dir, "Detector_001.yaml"))
	if err != nil {
		t.Fatalf("expected detector file: %v", err)
	}

	var doc struct {
		Metadata Metadata       `yaml:"metadata"`
		Detector map[string]any `yaml:"detector"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("detector file not valid YAML: %v", err)
	}
	if doc.Metadata.OriginalID != "D001" {
		t.Errorf("original_id = %q, want D001", doc.Metadata.OriginalID)
	}
	if _, ok := doc.Detector["id"]; ok {
		t.Error("detector body should not include the stripped id field")
	}
	if _, ok := doc.Detector["programText"]; !ok {
		t.Error("detector body should pass programText through")
	}
}

func TestRun_EmptyCollection(t *testing.T) {
	mock := signalfx.NewMockClientWithOptions(signalfx.WithDetectors(nil))
	p, dir := newTestPipeline(t, mock, Options{})

	report := p.Run(context.Background())

	if report.Result != ResultSuccess {
		t.Fatalf("Result = %s, want success", report.Result)
	}
	files := yamlFiles(t, dir)
	if len(files) != 1 || files[0] != "export_summary.yaml" {
		t.Errorf("files = %v, want only the summary", files)
	}
	sum := readSummary(t, dir)
	if sum.TotalFound != 0 || sum.ExportedCount != 0 {
		t.Errorf("summary = found %d, exported %d; want 0, 0", sum.TotalFound, sum.ExportedCount)
	}
}

func TestRun_LimitTruncation(t *testing.T) {
	mock := signalfx.NewMockClientWithOptions(signalfx.WithDetectors(testDetectors(5)))
	p, dir := newTestPipeline(t, mock, Options{PageSize: 2, Limit: 3})

	report := p.Run(context.Background())

	if report.Result != ResultSuccess {
		t.Fatalf("Result = %s, want success", report.Result)
	}
	// Two pages satisfy a limit of three; the third page is never fetched.
	if mock.FetchCalls != 2 {
		t.Errorf("FetchCalls = %d, want 2", mock.FetchCalls)
	}
	if got := len(yamlFiles(t, dir)); got != 4 {
		t.Errorf("file count = %d, want 3 detectors + 1 summary", got)
	}

	sum := readSummary(t, dir)
	if sum.TotalFound != 3 {
		t.Errorf("TotalFound = %d, want 3 (truncation point, not upstream total)", sum.TotalFound)
	}
	if sum.ExportedCount != 3 {
		t.Errorf("ExportedCount = %d, want 3", sum.ExportedCount)
	}

	// The exported three are the first three in API order.
	for _, name := range []string{"Detector_001.yaml", "Detector_002.yaml", "Detector_003.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
}

func TestRun_PerItemFailureIsolation(t *testing.T) {
	detectors := testDetectors(10)
	// One record with nothing to derive a filename from fails conversion.
	detectors[4] = signalfx.Detector{"name": "///", "programText": "detect(...)"}

	mock := signalfx.NewMockClientWithOptions(signalfx.WithDetectors(detectors))
	p, dir := newTestPipeline(t, mock, Options{PageSize: 4})

	report := p.Run(context.Background())

	if report.Result != ResultPartial {
		t.Fatalf("Result = %s, want partial", report.Result)
	}
	if report.Err != nil {
		t.Errorf("partial run should not carry a fatal error, got %v", report.Err)
	}
	if got := len(yamlFiles(t, dir)); got != 10 {
		t.Errorf("file count = %d, want 9 detectors + 1 summary", got)
	}

	sum := readSummary(t, dir)
	if sum.TotalFound != 10 || sum.ExportedCount != 9 || sum.FailedCount != 1 {
		t.Errorf("summary = found %d, exported %d, failed %d; want 10, 9, 1",
			sum.TotalFound, sum.ExportedCount, sum.FailedCount)
	}
	if len(sum.Failures) != 1 {
		t.Fatalf("len(Failures) = %d, want 1", len(sum.Failures))
	}
	if sum.Failures[0].ID != "(unknown)" {
		t.Errorf("failure id = %q, want (unknown)", sum.Failures[0].ID)
	}
	if sum.Failures[0].Reason == "" {
		t.Error("failure reason must not be empty")
	}
}

func TestRun_AuthFailureAbortsWithoutRetry(t *testing.T) {
	mock := signalfx.NewMockClientWithOptions(
		signalfx.WithDetectors(testDetectors(5)),
		signalfx.WithScript(fmt.Errorf("authentication failed: %w", sferrors.ErrInvalidToken)),
	)
	p, dir := newTestPipeline(t, mock, Options{})

	report := p.Run(context.Background())

	if report.Result != ResultFailed {
		t.Fatalf("Result = %s, want failed", report.Result)
	}
	if mock.FetchCalls != 1 {
		t.Errorf("FetchCalls = %d, want 1 (no retry on auth failure)", mock.FetchCalls)
	}

	sum := readSummary(t, dir)
	if sum.ExportedCount != 0 {
		t.Errorf("ExportedCount = %d, want 0", sum.ExportedCount)
	}
}

func TestRun_RateLimitRecovery(t *testing.T) {
	mock := signalfx.NewMockClientWithOptions(
		signalfx.WithDetectors(testDetectors(2)),
		signalfx.WithScript(&sferrors.RateLimitError{RetryAfter: 2 * time.Millisecond}),
	)
	p, dir := newTestPipeline(t, mock, Options{PageSize: 10})

	report := p.Run(context.Background())

	if report.Result != ResultSuccess {
		t.Fatalf("Result = %s, want success after rate-limit retry (err: %v)", report.Result, report.Err)
	}
	if mock.FetchCalls != 2 {
		t.Errorf("FetchCalls = %d, want 2 (throttled call plus retry)", mock.FetchCalls)
	}

	sum := readSummary(t, dir)
	if sum.ExportedCount != 2 || sum.FailedCount != 0 {
		t.Errorf("summary = exported %d, failed %d; want 2, 0", sum.ExportedCount, sum.FailedCount)
	}
}

func TestRun_RetriesExhaustedIsFatal(t *testing.T) {
	mock := signalfx.NewMockClientWithOptions(
		signalfx.WithDetectors(testDetectors(2)),
		signalfx.WithScript(
			sferrors.ErrNetworkFailure,
			sferrors.ErrNetworkFailure,
			sferrors.ErrNetworkFailure,
		),
	)
	p, dir := newTestPipeline(t, mock, Options{})

	report := p.Run(context.Background())

	if report.Result != ResultFailed {
		t.Fatalf("Result = %s, want failed", report.Result)
	}
	if mock.FetchCalls != fastRetry.MaxAttempts {
		t.Errorf("FetchCalls = %d, want %d", mock.FetchCalls, fastRetry.MaxAttempts)
	}
	if report.Err == nil || !strings.Contains(report.Err.Error(), "after 3 attempts") {
		t.Errorf("Err = %v, want exhausted-attempts error", report.Err)
	}

	// The summary still lands on disk after a fatal abort.
	sum := readSummary(t, dir)
	if sum.ExportedCount != 0 {
		t.Errorf("ExportedCount = %d, want 0", sum.ExportedCount)
	}
}

func TestRun_TransientFailureMidRun(t *testing.T) {
	// Page one succeeds, page two fails once and then succeeds.
	mock := signalfx.NewMockClientWithOptions(
		signalfx.WithDetectors(testDetectors(3)),
		signalfx.WithScript(nil, sferrors.ErrNetworkFailure),
	)
	p, dir := newTestPipeline(t, mock, Options{PageSize: 2})

	report := p.Run(context.Background())

	if report.Result != ResultSuccess {
		t.Fatalf("Result = %s, want success (err: %v)", report.Result, report.Err)
	}
	if mock.FetchCalls != 3 {
		t.Errorf("FetchCalls = %d, want 3 (two pages, one retried)", mock.FetchCalls)
	}
	sum := readSummary(t, dir)
	if sum.ExportedCount != 3 {
		t.Errorf("ExportedCount = %d, want 3", sum.ExportedCount)
	}
}

func TestRun_TransientClientErrorIsRetried(t *testing.T) {
	// A non-auth 4xx gets the bounded retry; 401/403 are the only
	// immediately fatal statuses.
	mock := signalfx.NewMockClientWithOptions(
		signalfx.WithDetectors(testDetectors(2)),
		signalfx.WithScript(&sferrors.APIError{StatusCode: 408, Body: "request timeout"}),
	)
	p, dir := newTestPipeline(t, mock, Options{})

	report := p.Run(context.Background())

	if report.Result != ResultSuccess {
		t.Fatalf("Result = %s, want success after retried 408 (err: %v)", report.Result, report.Err)
	}
	if mock.FetchCalls != 2 {
		t.Errorf("FetchCalls = %d, want 2 (timed-out call plus retry)", mock.FetchCalls)
	}
	sum := readSummary(t, dir)
	if sum.ExportedCount != 2 {
		t.Errorf("ExportedCount = %d, want 2", sum.ExportedCount)
	}
}

func TestRun_DuplicateNamesGetDistinctFiles(t *testing.T) {
	detectors := []signalfx.Detector{
		{"id": "DA", "name": "Same Name"},
		{"id": "DB", "name": "Same Name"},
	}
	mock := signalfx.NewMockClientWithOptions(signalfx.WithDetectors(detectors))
	p, dir := newTestPipeline(t, mock, Options{})

	report := p.Run(context.Background())

	if report.Result != ResultSuccess {
		t.Fatalf("Result = %s, want success", report.Result)
	}
	for _, name := range []string{"Same_Name.yaml", "Same_Name_DB.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
}

// maskExportedAt blanks the export timestamp so file contents can be
// compared across runs.
func maskExportedAt(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		if strings.Contains(line, "exported_at:") {
			lines[i] = "exported_at: masked"
		}
	}
	return strings.Join(lines, "\n")
}

// Two runs over the same collection produce the same file set with
// byte-identical contents, the export timestamp aside.
func TestRun_RepeatedExportIsStable(t *testing.T) {
	detectors := testDetectors(3)

	runOnce := func() string {
		mock := signalfx.NewMockClientWithOptions(signalfx.WithDetectors(detectors))
		p, dir := newTestPipeline(t, mock, Options{PageSize: 2})
		if report := p.Run(context.Background()); report.Result != ResultSuccess {
			t.Fatalf("Result = %s, want success (err: %v)", report.Result, report.Err)
		}
		return dir
	}

	dir1 := runOnce()
	dir2 := runOnce()

	files1 := yamlFiles(t, dir1)
	files2 := yamlFiles(t, dir2)
	if len(files1) != len(files2) {
		t.Fatalf("file sets differ: %v vs %v", files1, files2)
	}

	for _, name := range files1 {
		if name == "export_summary.yaml" {
			continue
		}
		first := maskExportedAt(t, filepath.Join(dir1, name))
		second := maskExportedAt(t, filepath.Join(dir2, name))
		if first != second {
			t.Errorf("%s differs between runs:\n--- run 1 ---\n%s\n--- run 2 ---\n%s", name, first, second)
		}
	}
}

func TestRun_CanceledContext(t *testing.T) {
	mock := signalfx.NewMockClientWithOptions(signalfx.WithDetectors(testDetectors(3)))
	p, dir := newTestPipeline(t, mock, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := p.Run(ctx)

	if report.Result != ResultFailed {
		t.Fatalf("Result = %s, want failed", report.Result)
	}
	// A canceled run still writes its summary.
	sum := readSummary(t, dir)
	if sum.ExportedCount != 0 {
		t.Errorf("ExportedCount = %d, want 0", sum.ExportedCount)
	}
}

func TestRun_UnusableOutputDirectoryIsFatal(t *testing.T) {
	mock := signalfx.NewMockClientWithOptions(signalfx.WithDetectors(testDetectors(3)))

	dir := filepath.Join(t.TempDir(), "out")
	w, err := output.NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	// Replace the directory with a regular file so every write fails.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New(mock, w, zerolog.Nop(), Options{Retry: fastRetry})
	report := p.Run(context.Background())

	if report.Result != ResultFailed {
		t.Fatalf("Result = %s, want failed when the directory is unusable", report.Result)
	}
	if report.Err == nil {
		t.Fatal("fatal run must carry the cause")
	}
	// The very first write failure aborts; remaining records are not attempted.
	if report.Summary.FailedCount != 1 {
		t.Errorf("FailedCount = %d, want 1 (first failure escalates)", report.Summary.FailedCount)
	}
}

func TestRunOne(t *testing.T) {
	mock := signalfx.NewMockClient() // three sample detectors
	p, dir := newTestPipeline(t, mock, Options{})

	report := p.RunOne(context.Background(), "D1000002")

	if report.Result != ResultSuccess {
		t.Fatalf("Result = %s, want success (err: %v)", report.Result, report.Err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Memory_pressure.yaml")); err != nil {
		t.Errorf("expected exported detector file: %v", err)
	}
	sum := readSummary(t, dir)
	if sum.TotalFound != 1 || sum.ExportedCount != 1 {
		t.Errorf("summary = found %d, exported %d; want 1, 1", sum.TotalFound, sum.ExportedCount)
	}
}

func TestRunOne_NotFound(t *testing.T) {
	mock := signalfx.NewMockClient()
	p, _ := newTestPipeline(t, mock, Options{})

	report := p.RunOne(context.Background(), "does-not-exist")

	if report.Result != ResultFailed {
		t.Fatalf("Result = %s, want failed", report.Result)
	}
	if report.Summary.ExportedCount != 0 {
		t.Errorf("ExportedCount = %d, want 0", report.Summary.ExportedCount)
	}
}

func TestResultString(t *testing.T) {
	tests := []struct {
		result Result
		want   string
	}{
		{ResultSuccess, "success"},
		{ResultPartial, "partial"},
		{ResultFailed, "failed"},
	}
	for _, tt := range tests {
		if got := tt.result.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.result), got, tt.want)
		}
	}
}
