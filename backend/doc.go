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


// Package backend defines the interface between the search engine and the
// per-chain structured backends that index agent registrations.
//
// The engine compiles filters into a backend-independent predicate tree
// (Cond) and obtains clients through a Registry, so backends can be swapped
// per chain and mocked in tests. Implementations live in subpackages; see
// backend/subgraph for the GraphQL client.
package backend
