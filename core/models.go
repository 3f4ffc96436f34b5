package core

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// SourceType identifies where a document came from.
type SourceType string

const (
	// SourceTypeNote is a user-authored note.
	SourceTypeNote SourceType = "note"
	// SourceTypeVideo is a saved video, usually with a transcript.
	SourceTypeVideo SourceType = "video"
)

// Label is the bracketed tag used when a document is rendered into model context.
func (s SourceType) Label() string {
	return "[" + strings.ToUpper(string(s)) + "]"
}

// Document is a read-only snapshot of a corpus entry. An empty Content
// means the document has no body (for example a video without transcript).
type Document struct {
	ID          string
	Title       string
	Content     string
	SourceType  SourceType
	CreatedAt   time.Time
	ChannelName string // video only
	VideoID     string // video only
}

// IsTranscription reports whether the document is a video with transcript text.
func (d *Document) IsTranscription() bool {
	return d.SourceType == SourceTypeVideo && d.Content != ""
}

// ContentHash returns a 64-bit BLAKE2b digest of text. Identical text
// always hashes to the same value.
func ContentHash(text string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return binary.LittleEndian.Uint64(h.Sum(nil))
}

// ChunkID builds the vector ID for chunk index of a document.
func ChunkID(documentID string, index int) string {
	return documentID + "#" + strconv.Itoa(index)
}

// ParseChunkID splits a vector ID produced by ChunkID.
func ParseChunkID(id string) (documentID string, index int, err error) {
	pos := strings.LastIndexByte(id, '#')
	if pos <= 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidChunkID, id)
	}
	index, err = strconv.Atoi(id[pos+1:])
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidChunkID, id)
	}
	return id[:pos], index, nil
}

// ChunkMetadata describes the slice of a document a vector was computed from.
type ChunkMetadata struct {
	DocumentID   string
	Title        string
	ContentChunk string
	SourceType   SourceType
	CreatedAt    time.Time
	ChunkIndex   int
	TotalChunks  int
}

// EmbeddingVector is one indexed chunk.
type EmbeddingVector struct {
	ID       string
	Values   []float32
	Metadata ChunkMetadata
}

// VectorMatch is a chunk returned by a vector store query.
type VectorMatch struct {
	ID       string
	Score    float64
	Metadata ChunkMetadata
}
