package reindex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/ingestion"
	"github.com/poiesic/noteseek/storage"
	"github.com/poiesic/noteseek/storage/badger"
)

type mockIndexer struct {
	mu      sync.Mutex
	batches [][]string
	fail    map[string]bool
	onBatch func(n int)
}

func (m *mockIndexer) IndexAll(ctx context.Context, docs []core.Document, _ ingestion.ProgressFunc) (int, error) {
	m.mu.Lock()
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	m.batches = append(m.batches, ids)
	n := len(m.batches)
	m.mu.Unlock()

	if m.onBatch != nil {
		m.onBatch(n)
	}

	var errs []error
	indexed := 0
	for _, d := range docs {
		if m.fail[d.ID] {
			errs = append(errs, fmt.Errorf("%s: boom", d.ID))
			continue
		}
		indexed++
	}
	return indexed, errors.Join(errs...)
}

func (m *mockIndexer) indexedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

func testCorpus(n int) *storage.MemorySource {
	docs := make([]core.Document, n)
	for i := range docs {
		docs[i] = core.Document{
			ID:         fmt.Sprintf("note-%02d", i),
			Title:      fmt.Sprintf("Note %d", i),
			Content:    "body",
			SourceType: core.SourceTypeNote,
			CreatedAt:  time.Unix(1700000000, 0),
		}
	}
	return storage.NewMemorySource(docs...)
}

func newTestCheckpoints(t *testing.T) *badger.CheckpointRepository {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos.Checkpoints
}

func TestNewReindexer(t *testing.T) {
	_, err := NewReindexer(nil, &mockIndexer{}, nil)
	assert.ErrorIs(t, err, ErrSourceRequired)

	_, err = NewReindexer(testCorpus(1), nil, nil)
	assert.ErrorIs(t, err, ErrIndexerRequired)

	r, err := NewReindexer(testCorpus(1), &mockIndexer{}, &Config{})
	require.NoError(t, err)
	assert.Equal(t, 50, r.config.BatchSize)
	assert.Equal(t, 50, r.config.ReportInterval)
	assert.Equal(t, DefaultCheckpointName, r.config.CheckpointName)
}

func TestReindexer_Run(t *testing.T) {
	ctx := context.Background()
	indexer := &mockIndexer{}
	var out bytes.Buffer

	r, err := NewReindexer(testCorpus(7), indexer, &Config{BatchSize: 3, ReportInterval: 3}, WithProgress(&out))
	require.NoError(t, err)

	summary, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.Total)
	assert.Equal(t, 7, summary.Indexed)
	assert.Zero(t, summary.Failed)
	assert.Zero(t, summary.Resumed)

	require.Len(t, indexer.batches, 3)
	assert.Equal(t, []string{"note-00", "note-01", "note-02"}, indexer.batches[0])
	assert.Equal(t, []string{"note-06"}, indexer.batches[2])

	assert.Contains(t, out.String(), "Reindexing 7 documents (batch size: 3)")
	assert.Contains(t, out.String(), "7/7")
	assert.Contains(t, out.String(), "Reindex complete")
}

func TestReindexer_EmptyCorpus(t *testing.T) {
	var out bytes.Buffer
	r, err := NewReindexer(storage.NewMemorySource(), &mockIndexer{}, nil, WithProgress(&out))
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Contains(t, out.String(), "No documents")
}

func TestReindexer_FailuresDoNotStopRun(t *testing.T) {
	indexer := &mockIndexer{fail: map[string]bool{"note-01": true, "note-04": true}}
	r, err := NewReindexer(testCorpus(5), indexer, &Config{BatchSize: 2})
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Indexed)
	assert.Equal(t, 2, summary.Failed)
	assert.Len(t, indexer.indexedIDs(), 5)
}

func TestReindexer_ResumesFromCheckpoint(t *testing.T) {
	checkpoints := newTestCheckpoints(t)
	corpus := testCorpus(6)
	cfg := func() *Config {
		return &Config{BatchSize: 2, EmbeddingModel: "embeddinggemma"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := &mockIndexer{onBatch: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	r, err := NewReindexer(corpus, first, cfg(), WithCheckpoints(checkpoints))
	require.NoError(t, err)

	_, err = r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	cp, err := checkpoints.LoadCheckpoint(context.Background(), DefaultCheckpointName)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "note-01", cp.LastDocumentID, "cancelled batch is not checkpointed")
	assert.Equal(t, 2, cp.Processed)
	assert.Equal(t, "embeddinggemma", cp.EmbeddingModel)

	second := &mockIndexer{}
	r, err = NewReindexer(corpus, second, cfg(), WithCheckpoints(checkpoints))
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Resumed)
	assert.Equal(t, 4, summary.Indexed)
	assert.Equal(t, []string{"note-02", "note-03", "note-04", "note-05"}, second.indexedIDs())

	cp, err = checkpoints.LoadCheckpoint(context.Background(), DefaultCheckpointName)
	require.NoError(t, err)
	assert.Nil(t, cp, "completed run clears its checkpoint")
}

func TestReindexer_ModelChangeDiscardsCheckpoint(t *testing.T) {
	ctx := context.Background()
	checkpoints := newTestCheckpoints(t)
	require.NoError(t, checkpoints.SaveCheckpoint(ctx, &storage.IndexCheckpoint{
		Name:           DefaultCheckpointName,
		EmbeddingModel: "old-model",
		LastDocumentID: "note-02",
		Processed:      3,
	}))

	indexer := &mockIndexer{}
	r, err := NewReindexer(testCorpus(4), indexer, &Config{EmbeddingModel: "new-model"}, WithCheckpoints(checkpoints))
	require.NoError(t, err)

	summary, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Resumed)
	assert.Len(t, indexer.indexedIDs(), 4)
}

func TestReindexer_CheckpointForRemovedDocument(t *testing.T) {
	ctx := context.Background()
	checkpoints := newTestCheckpoints(t)
	require.NoError(t, checkpoints.SaveCheckpoint(ctx, &storage.IndexCheckpoint{
		Name:           DefaultCheckpointName,
		LastDocumentID: "note-015",
		Processed:      2,
	}))

	indexer := &mockIndexer{}
	r, err := NewReindexer(testCorpus(4), indexer, nil, WithCheckpoints(checkpoints))
	require.NoError(t, err)

	summary, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Resumed)
	assert.Equal(t, []string{"note-02", "note-03"}, indexer.indexedIDs())
}
