package ingestion

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/poiesic/noteseek/core"
)

// separators split at paragraph, then line, then sentence, then word
// boundaries before falling back to single characters.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits document content into pieces sized for embedding.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

// NewChunker creates a chunker producing chunks of about size characters
// with overlap characters shared between neighbours.
func NewChunker(size, overlap int) *Chunker {
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(separators),
		),
	}
}

// Chunk returns the text chunks of doc. A document without content is a
// single chunk of its title.
func (c *Chunker) Chunk(doc *core.Document) ([]string, error) {
	content := strings.TrimSpace(doc.Content)
	if content == "" {
		if title := strings.TrimSpace(doc.Title); title != "" {
			return []string{title}, nil
		}
		return nil, nil
	}
	parts, err := c.splitter.SplitText(content)
	if err != nil {
		return nil, err
	}
	chunks := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			chunks = append(chunks, p)
		}
	}
	return chunks, nil
}
