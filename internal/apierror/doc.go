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

// Package apierror classifies errors returned by the SignalFx client so the
// export pipeline can decide between aborting and retrying. Classification
// checks the typed error chain first and falls back to message inspection
// for errors that originate below the client (DNS, TLS, raw transport).
package apierror
