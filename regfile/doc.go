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


// Package regfile fetches and parses agent registration files.
//
// An agent's on-chain record points at a registration document by URI.
// The URI may be an ipfs:// reference, a bare IPFS content id, or a
// plain http(s) URL; public gateway URLs are recognized and rewritten to
// the configured gateway so operators control which gateway serves
// traffic.
//
// Fetched files are cached by resolved URL and digested with BLAKE2b so
// refresh runs can detect unchanged documents without re-parsing them.
package regfile
