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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyID indicates the document ID is empty.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrInvalidSourceType indicates an unknown SourceType value.
	ErrInvalidSourceType = errors.New("invalid source type")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrInvalidChunkID indicates a chunk vector ID could not be parsed.
	ErrInvalidChunkID = errors.New("invalid chunk id")

	// ErrInvalidSearchMethod indicates an unknown SearchMethod value.
	ErrInvalidSearchMethod = errors.New("invalid search method")
)
