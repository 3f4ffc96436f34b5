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

// Package storage provides the storage abstraction layer for noteseek.
//
// It defines the ports the retrieval engine consumes so backends can be
// swapped without touching search logic:
//
//   - VectorStore: chunk embeddings and nearest-neighbour queries
//   - EmbeddingStore: persistent embedding cache keyed by content hash
//   - DocumentSource / DocumentStore: the corpus of notes and videos
//   - CheckpointRepository: resumable reindex progress
//
// # Implementations
//
//   - storage/badger: embedded BadgerDB vector index, embedding cache and checkpoints
//   - storage/pgvector: PostgreSQL with the pgvector extension
//   - storage/sqlite: note store backed by SQLite
//   - MemorySource in this package: an in-memory DocumentStore for tests and tools
//
// Values written to key-value backends use the mus binary format
// (see serialization.go).
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeouts.
package storage
