package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateDocument(t *testing.T) {
	validTime := time.Now().Add(-1 * time.Hour)
	futureTime := time.Now().Add(1 * time.Hour)

	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name: "valid note",
			doc: &Document{
				ID:         "n1",
				Title:      "Groceries",
				Content:    "milk, eggs",
				SourceType: SourceTypeNote,
				CreatedAt:  validTime,
			},
		},
		{
			name: "video without transcript",
			doc: &Document{
				ID:          "v1",
				Title:       "Talk",
				SourceType:  SourceTypeVideo,
				CreatedAt:   validTime,
				ChannelName: "Channel",
			},
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name: "empty id",
			doc: &Document{
				SourceType: SourceTypeNote,
				CreatedAt:  validTime,
			},
			wantErr: ErrEmptyID,
		},
		{
			name: "unknown source type",
			doc: &Document{
				ID:         "x",
				SourceType: SourceType("podcast"),
				CreatedAt:  validTime,
			},
			wantErr: ErrInvalidSourceType,
		},
		{
			name: "future timestamp",
			doc: &Document{
				ID:         "x",
				SourceType: SourceTypeNote,
				CreatedAt:  futureTime,
			},
			wantErr: ErrInvalidTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("ValidateDocument() error = %v, want wrapped ErrInvalidDocument", err)
			}
		})
	}
}

func TestIsTranscription(t *testing.T) {
	video := Document{SourceType: SourceTypeVideo, Content: "transcript"}
	if !video.IsTranscription() {
		t.Error("video with content should be a transcription")
	}
	video.Content = ""
	if video.IsTranscription() {
		t.Error("video without content is not a transcription")
	}
	note := Document{SourceType: SourceTypeNote, Content: "text"}
	if note.IsTranscription() {
		t.Error("notes are never transcriptions")
	}
}
