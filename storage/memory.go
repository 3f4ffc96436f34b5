package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/poiesic/noteseek/core"
)

// MemorySource is an in-memory DocumentStore. ListDocuments returns
// documents ordered by ID.
type MemorySource struct {
	mu   sync.RWMutex
	docs map[string]core.Document
}

var _ DocumentStore = (*MemorySource)(nil)

// NewMemorySource creates a store holding docs.
func NewMemorySource(docs ...core.Document) *MemorySource {
	s := &MemorySource{docs: make(map[string]core.Document, len(docs))}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return s
}

// ListDocuments returns a snapshot of every document.
func (s *MemorySource) ListDocuments(ctx context.Context) ([]core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b core.Document) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// PutDocuments inserts or replaces documents.
func (s *MemorySource) PutDocuments(ctx context.Context, docs ...core.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return nil
}

// GetDocument returns a copy of the document with id.
func (s *MemorySource) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

// DeleteDocument removes the document with id.
func (s *MemorySource) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	return nil
}
