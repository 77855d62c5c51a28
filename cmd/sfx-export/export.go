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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sfxops/sfx-export/internal/apierror"
	"github.com/sfxops/sfx-export/internal/config"
	sferrors "github.com/sfxops/sfx-export/internal/errors"
	"github.com/sfxops/sfx-export/internal/export"
	"github.com/sfxops/sfx-export/internal/output"
	"github.com/sfxops/sfx-export/internal/signalfx"
)

// errPartialExport marks a run that completed with per-detector failures.
// It maps to its own exit code so scripts can tell partial from clean runs.
var errPartialExport = errors.New("export completed with failures")

// exportOptions holds the flag values for one export invocation.
type exportOptions struct {
	token          string
	realm          string
	outputDir      string
	limit          int
	configPath     string
	testConnection bool
	verbose        bool
}

func newExportCommand() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export [detector-id]",
		Short: "Export detector definitions to YAML files",
		Long: `Export detector definitions from the Splunk Observability Cloud API to
YAML files, one file per detector, plus an export_summary.yaml describing
the run.

With no argument the full detector collection is exported. With a detector
id argument only that detector is exported.

Authentication is required via an API access token:
  - Use --token flag to provide the token directly
  - Or set the SFX_TOKEN environment variable`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detectorID := ""
			if len(args) == 1 {
				detectorID = args[0]
			}
			return runExport(cmd.Context(), detectorID, opts)
		},
	}

	cmd.Flags().StringVar(&opts.token, "token", "", "API access token (overrides SFX_TOKEN env var)")
	cmd.Flags().StringVar(&opts.realm, "realm", "", "SignalFx realm, e.g. us0, eu0 (default from config)")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Directory to write YAML files to (default from config)")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Export at most this many detectors (0 = no limit)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to config file")
	cmd.Flags().BoolVar(&opts.testConnection, "test-connection", false, "Verify API credentials and connectivity, then exit")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	return cmd
}

// runExport executes the export command.
func runExport(ctx context.Context, detectorID string, opts exportOptions) error {
	if opts.limit < 0 {
		return fmt.Errorf("invalid --limit %d: must be a positive integer (0 means no limit)", opts.limit)
	}

	log := newLogger(opts.verbose)

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	token := resolveToken(opts.token, cfg.SignalFx.TokenEnv)
	if token == "" {
		return fmt.Errorf("API token not found. Set %s or use --token flag: %w",
			cfg.SignalFx.TokenEnv, sferrors.ErrMissingToken)
	}

	client, err := newClient(token, cfg)
	if err != nil {
		return err
	}

	if opts.testConnection {
		return runConnectionTest(ctx, client, cfg.SignalFx.Realm)
	}

	status := client.TestConnection(ctx)
	if !status.OK {
		return fmt.Errorf("connection check failed (%s): %w", status.Reason, status.Err)
	}

	writer, err := output.NewWriter(cfg.Export.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	pipeline := export.New(client, writer, log, export.Options{
		Limit:    opts.limit,
		PageSize: cfg.Export.PageSize,
		Retry: export.RetryPolicy{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: cfg.Retry.InitialBackoff.AsDuration(),
			MaxBackoff:     cfg.Retry.MaxBackoff.AsDuration(),
		},
	})

	var report *export.RunReport
	if detectorID != "" {
		report = pipeline.RunOne(ctx, detectorID)
	} else {
		report = pipeline.Run(ctx)
	}

	renderReport(os.Stderr, report)

	switch report.Result {
	case export.ResultFailed:
		return report.Err
	case export.ResultPartial:
		return errPartialExport
	}
	return nil
}

// newLogger builds the run logger. Verbose mode switches to human-readable
// console output at debug level; the default is info-level JSON on stderr.
func newLogger(verbose bool) zerolog.Logger {
	if verbose {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()
}

// applyFlagOverrides layers command-line flags over the loaded config.
func applyFlagOverrides(cfg *config.Config, opts exportOptions) {
	if opts.realm != "" {
		cfg.SignalFx.Realm = opts.realm
	}
	if opts.outputDir != "" {
		cfg.Export.OutputDir = opts.outputDir
	}
}

// resolveToken returns the API token from flag or environment variable.
func resolveToken(flagToken, envVar string) string {
	if flagToken != "" {
		return flagToken
	}
	return os.Getenv(envVar)
}

// newClient builds the API client from resolved configuration.
func newClient(token string, cfg *config.Config) (signalfx.Client, error) {
	var clientOpts []signalfx.Option
	if cfg.SignalFx.Endpoint != "" {
		clientOpts = append(clientOpts, signalfx.WithEndpoint(cfg.SignalFx.Endpoint))
	}
	if cfg.SignalFx.RequestsPerSecond > 0 {
		clientOpts = append(clientOpts, signalfx.WithRequestRate(cfg.SignalFx.RequestsPerSecond))
	}
	return signalfx.New(token, cfg.SignalFx.Realm, clientOpts...)
}

// runConnectionTest probes the API and reports the outcome without
// exporting anything.
func runConnectionTest(ctx context.Context, client signalfx.Client, realm string) error {
	status := client.TestConnection(ctx)
	if !status.OK {
		return fmt.Errorf("connection to realm %s failed (%s): %w", realm, status.Reason, status.Err)
	}
	fmt.Fprintf(os.Stderr, "Connection to realm %s OK\n", realm)
	return nil
}

// renderReport prints the human-readable run outcome.
func renderReport(w *os.File, report *export.RunReport) {
	sum := report.Summary
	switch report.Result {
	case export.ResultSuccess:
		fmt.Fprintf(w, "Exported %d detectors to %s in %s\n",
			sum.ExportedCount, sum.OutputDir, sum.Duration().Round(time.Millisecond))
	case export.ResultPartial:
		fmt.Fprintf(w, "Exported %d of %d detectors to %s (%d failed, see export_summary.yaml)\n",
			sum.ExportedCount, sum.TotalFound, sum.OutputDir, sum.FailedCount)
	case export.ResultFailed:
		fmt.Fprintf(w, "Export aborted after %d of %d detectors (see export_summary.yaml)\n",
			sum.ExportedCount, sum.TotalFound)
	}
}

// mapErrorToExitCode maps internal errors to appropriate exit codes.
func mapErrorToExitCode(err error) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, errPartialExport) {
		return 4 // Completed with per-detector failures
	}

	if apierror.IsAuthError(err) || apierror.IsRateLimitError(err) {
		return 2 // Authentication/authorization errors
	}

	if apierror.IsNetworkError(err) {
		return 3 // Network errors
	}

	return 1 // General error
}
