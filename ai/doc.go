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

// Package ai provides abstractions for the model services used by noteseek.
//
// Two capabilities are consumed by the retrieval engine:
//
//   - Embedder: turns text into vectors for semantic search
//   - Completer: answers a prompt built from assembled context
//
// AIProvider bundles both so they share configuration.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs via langchaingo (OpenAI, Ollama, vLLM, LocalAI)
//   - ai/mock: deterministic test doubles
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and read call counts.
//
// # Usage Example
//
//	provider, err := openai.NewProvider(ai.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "Hello world")
//	out, err := provider.Completer().Complete(ctx, prompt, ai.CompletionOptions{Temperature: 0.2})
package ai
