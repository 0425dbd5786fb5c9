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


// Package storage provides the local persistence layer for agentdex.
//
// This package defines store interfaces that decouple persistence from the
// search and refresh logic. The local store caches agent snapshots so that
// single-agent lookups keep working when a chain's indexer is unreachable,
// and so refresh runs can compare registration-file content hashes instead
// of re-parsing unchanged files.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - AgentStore: Cached agent snapshots, keyed by chain-qualified agent id
//   - CursorStore: Progress markers for resumable background jobs
//   - TransactionManager: Transaction support
//
// Records are encoded with the MUS binary format. Each record begins with a
// version tag; see serialization.go for the layouts.
//
// # Usage
//
// Create the stores over a shared backend:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	agents := badger.NewAgentRepository(backend)
//	cursors := badger.NewCursorRepository(backend)
//
// Use in tests with in-memory storage:
//
//	agents, cursors, backend, err := badger.NewMemoryStore()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Thread Safety
//
// All store implementations must be thread-safe and support concurrent
// access from multiple goroutines.
//
// # Context Support
//
// All store methods accept context.Context for cancellation and timeout
// support. Pass context.Background() for operations without specific
// timeout requirements.
package storage
