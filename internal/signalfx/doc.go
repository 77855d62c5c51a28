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

// Package signalfx provides the client for the Splunk Observability Cloud
// (SignalFx) REST API. The client is realm-aware, authenticates every
// request with an org token, and exposes offset-based pagination over the
// detector collection endpoint.
//
// The client performs no retry looping of its own. Rate limits, transport
// failures, and non-2xx responses surface as typed errors from
// internal/errors; the export pipeline owns the retry and backoff policy.
package signalfx
