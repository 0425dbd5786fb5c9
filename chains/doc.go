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


// Package chains holds the per-chain endpoint configuration and resolves
// chain selectors to concrete chain sets.
//
// Endpoint resolution layers three sources, most specific first:
//   - explicit per-chain overrides from the Config
//   - built-in default deployments
//   - SUBGRAPH_URL_<chainID> environment variables
//
// Chain resolution never fails: selectors naming unknown or malformed
// chains simply resolve to fewer chains.
package chains
