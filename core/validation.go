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

import (
	"fmt"
	"time"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - SourceType must be note or video
//   - CreatedAt must not be in the future
//
// NOT validated:
//   - Content (documents without a body are indexed by title)
//   - ChannelName and VideoID (optional even for videos)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyID)
	}

	if err := ValidateSourceType(doc.SourceType); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if !IsValidTimestamp(doc.CreatedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateSourceType validates that a SourceType has a known value.
func ValidateSourceType(s SourceType) error {
	if s != SourceTypeNote && s != SourceTypeVideo {
		return fmt.Errorf("%w: value %q", ErrInvalidSourceType, s)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
