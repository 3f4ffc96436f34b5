package main

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/storage/sqlite"
)

// seedEntry is one document of a YAML seed file.
type seedEntry struct {
	ID      string    `yaml:"id"`
	Title   string    `yaml:"title"`
	Content string    `yaml:"content"`
	Format  string    `yaml:"format"`
	Type    string    `yaml:"type"`
	Created time.Time `yaml:"created"`
	Channel string    `yaml:"channel"`
	VideoID string    `yaml:"video_id"`
}

type seedFile struct {
	Documents []seedEntry `yaml:"documents"`
}

// toEntry fills defaults: a random id, the note type, plain text and the
// current time.
func (s seedEntry) toEntry(now time.Time) (sqlite.Entry, error) {
	entry := sqlite.Entry{
		Document: core.Document{
			ID:          s.ID,
			Title:       strings.TrimSpace(s.Title),
			Content:     s.Content,
			SourceType:  core.SourceType(strings.ToLower(s.Type)),
			CreatedAt:   s.Created,
			ChannelName: s.Channel,
			VideoID:     s.VideoID,
		},
		Format: strings.ToLower(s.Format),
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SourceType == "" {
		entry.SourceType = core.SourceTypeNote
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	switch entry.Format {
	case "":
		entry.Format = sqlite.FormatText
	case sqlite.FormatText, sqlite.FormatHTML:
	default:
		return sqlite.Entry{}, fmt.Errorf("document %q: unknown format %q", entry.Title, s.Format)
	}
	if err := core.ValidateDocument(&entry.Document); err != nil {
		return sqlite.Entry{}, fmt.Errorf("document %q: %w", entry.Title, err)
	}
	return entry, nil
}

// entriesFromReader decodes a seed file and returns an iterator over its
// entries. Every entry is checked before the iterator is returned.
func entriesFromReader(r io.Reader, now time.Time) (iter.Seq[sqlite.Entry], error) {
	var file seedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	entries := make([]sqlite.Entry, 0, len(file.Documents))
	for _, s := range file.Documents {
		entry, err := s.toEntry(now)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entriesFromSlice(entries), nil
}

// entriesFromFile returns an iterator over the documents of a seed file.
func entriesFromFile(filename string, now time.Time) (iter.Seq[sqlite.Entry], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return entriesFromReader(f, now)
}

func entriesFromSlice(entries []sqlite.Entry) iter.Seq[sqlite.Entry] {
	return func(yield func(sqlite.Entry) bool) {
		for _, e := range entries {
			if !yield(e) {
				return
			}
		}
	}
}

// writeBatched reads from a source iterator and writes entries to the store
// in batches. It returns the number of entries written.
func writeBatched(ctx context.Context, store *sqlite.Store, source iter.Seq[sqlite.Entry], batchSize int) (int, error) {
	if batchSize < 1 {
		batchSize = 1
	}
	batch := make([]sqlite.Entry, 0, batchSize)
	written := 0

	for entry := range source {
		batch = append(batch, entry)
		if len(batch) == batchSize {
			if err := store.PutEntries(ctx, batch...); err != nil {
				return written, err
			}
			written += len(batch)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := store.PutEntries(ctx, batch...); err != nil {
			return written, err
		}
		written += len(batch)
	}

	return written, nil
}
