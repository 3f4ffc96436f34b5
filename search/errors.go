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


package search

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrStrategyRequired is returned when a hybrid strategy is missing a branch.
	ErrStrategyRequired = errors.New("search strategy required")

	// ErrAllStrategiesFailed is returned when every strategy that ran faulted.
	ErrAllStrategiesFailed = errors.New("all search strategies failed")
)
