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


// Package ingestion keeps the vector index in step with the corpus.
//
// The Pipeline splits each document into chunks, embeds every chunk and
// replaces the document's vectors in the store. Chunks whose embedding
// keeps failing after bounded retries are skipped and logged; a document
// fails only when none of its chunks could be embedded or the store
// rejects the write.
//
// Bulk indexing runs on a worker pool. Submit queues a single document for
// background indexing and logs any failure.
package ingestion
