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

// Package orchestrator composes search, validation, caching and context
// assembly into one request/response cycle.
//
// Each request walks a fixed state machine:
//
//	Idle -> CacheCheck -> CacheHit  -> ContextBuild -> Done
//	                   -> CacheMiss -> Searching -> Merging -> Validating -> CacheStore -> ContextBuild -> Done
//
// A request ends in Failed when the corpus cannot be read or every
// strategy faults, and in Cancelled when it is superseded or its context
// ends. Cancelled runs never write the result cache.
//
// At most one request per session is in flight: a new request for a
// session cancels the previous one. Identical concurrent cache misses
// share a single search.
package orchestrator
