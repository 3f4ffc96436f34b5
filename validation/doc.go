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


// Package validation guards search results against matches that score well
// but answer the wrong question, such as a reaction video from an unrelated
// channel that shares generic words with the query.
//
// Analyze parses a query into entities, intent and a content preference.
// Validate checks one candidate against that analysis, and Rerank applies
// the verdicts to a ranked list: strict queries (those naming a specific
// person) keep only valid results, other queries down-weight weak matches.
package validation
