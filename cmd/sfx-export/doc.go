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

// Package main implements the sfx-export command-line interface.
// The tool exports alert detector definitions from the Splunk
// Observability Cloud (SignalFx) REST API into per-detector YAML files,
// plus an export_summary.yaml describing the run.
//
// The CLI supports:
//   - Exporting the full detector collection (default behavior)
//   - Exporting a single detector by id
//   - Verifying credentials and connectivity with --test-connection
//   - API token authentication via flag or environment variable
//   - Graceful error handling with appropriate exit codes
//
// Usage:
//
//	sfx-export export [detector-id] [flags]
//
// Example:
//
//	export SFX_TOKEN=your_token
//	sfx-export export --realm us1 --output-dir ./alerts
//
// Exit codes:
//   - 0: Success
//   - 1: General error
//   - 2: Authentication/authorization error
//   - 3: Network error
//   - 4: Completed with per-detector failures
package main
