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


// Package search ranks a corpus snapshot against a free-text query.
//
// Three strategies implement Strategy:
//   - KeywordStrategy: local phrase, proximity and word scoring
//   - SemanticStrategy: query embedding against a chunked vector index
//   - HybridStrategy: runs both concurrently and fuses their scores
//
// Semantic search is best effort. A failing embedder or vector store yields
// no semantic results rather than an error, and the hybrid strategy falls
// back to keyword results. Run exposes the fault in its Report so callers
// can record the degradation.
package search
