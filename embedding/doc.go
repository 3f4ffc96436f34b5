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


// Package embedding wraps an ai.Embedder with the policies the retrieval
// engine needs around it: input truncation, a content-hash keyed TTL cache
// with an optional persistent second level, request throttling and a per
// call timeout.
//
// Provider satisfies ai.Embedder, so it can be handed to anything that
// embeds text:
//
//	provider, err := embedding.NewProvider(aiProvider.Embedder(),
//	    embedding.WithStore(repos.Embeddings),
//	    embedding.WithRateLimit(10, 5),
//	)
//	vec, err := provider.Embed(ctx, "knots for climbing")
package embedding
