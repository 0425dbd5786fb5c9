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


// Package subgraph implements the backend interfaces against The Graph
// deployments of the agent registries.
//
// Deployed schemas have drifted: field spellings, derived columns and the
// metadata collection name differ between versions. Rather than probing by
// failure, each client introspects its deployment once and assembles its
// query documents from the discovered vocabulary (see Capabilities). A
// pinned Capabilities value skips the probe, which tests and air-gapped
// deployments use.
//
// The Registry maps chain ids to clients using the endpoint layering from
// the chains package, building each client lazily on first use.
package subgraph
