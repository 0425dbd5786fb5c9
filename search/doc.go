// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package search provides cross-chain agent discovery over the registry
// backends.
//
// The Engine implements a multi-stage candidate pipeline:
//   - Identifier and semantic filters seed per-chain candidate sets
//   - Metadata and feedback scans narrow them with backend reads
//   - Surviving candidates are fetched in bulk and assembled
//
// Filters the structured backends can evaluate are compiled into a single
// predicate tree and pushed down; everything else narrows candidates
// between stages. Chains without a configured backend are skipped, never
// failed. Results are merged, sorted in memory and truncated to the
// requested size.
package search
