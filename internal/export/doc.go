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

// Package export drives the detector export pipeline: it pages through the
// detector collection, converts each record into a YAML document with
// export metadata, writes one file per detector, and produces an end-of-run
// summary.
//
// Failure handling follows two tiers. A failure confined to one record
// (serialization, single file write) is logged, counted in the summary, and
// never aborts the run. A page-level failure goes through bounded
// capped-exponential retry when it is transient (rate limit, network, 5xx)
// and aborts the run when it is not (auth, exhausted retries). Every run,
// aborted or not, ends by writing export_summary.yaml reflecting the
// progress made.
package export
