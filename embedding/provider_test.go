package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/noteseek/ai/mock"
	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/storage"
	"github.com/poiesic/noteseek/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewProvider_RequiresEmbedder(t *testing.T) {
	_, err := NewProvider(nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestProvider_CacheHitSkipsModel(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	p, err := NewProvider(embedder)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := p.Embed(ctx, "climbing knots")
	require.NoError(t, err)
	second, err := p.Embed(ctx, "climbing knots")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, embedder.CallCount())

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.ModelCalls)
}

func TestProvider_ReturnsCopies(t *testing.T) {
	p, err := NewProvider(mock.NewMockEmbedder())
	require.NoError(t, err)

	ctx := context.Background()
	vec, err := p.Embed(ctx, "text")
	require.NoError(t, err)
	original := vec[0]
	vec[0] = 42

	again, err := p.Embed(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, original, again[0])
}

func TestProvider_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	embedder := mock.NewMockEmbedder()
	p, err := NewProvider(embedder, WithClock(clock.Now), WithCache(time.Minute, 10))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = p.Embed(ctx, "text")
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, err = p.Embed(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.CallCount())

	clock.Advance(time.Second)
	_, err = p.Embed(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, 2, embedder.CallCount())
}

func TestProvider_CapacityEvictsOldest(t *testing.T) {
	clock := newFakeClock()
	embedder := mock.NewMockEmbedder()
	p, err := NewProvider(embedder, WithClock(clock.Now), WithCache(time.Hour, 2))
	require.NoError(t, err)

	ctx := context.Background()
	for _, text := range []string{"a", "b", "c"} {
		_, err := p.Embed(ctx, text)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}
	assert.Equal(t, 2, p.Stats().Size)

	_, err = p.Embed(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 3, embedder.CallCount())

	_, err = p.Embed(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 4, embedder.CallCount())
}

func TestProvider_Truncation(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	var seen []string
	embedder.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		seen = append(seen, text)
		return mock.DeterministicVector(text, 8), nil
	}
	p, err := NewProvider(embedder, WithMaxInputChars(10))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = p.Embed(ctx, strings.Repeat("x", 50))
	require.NoError(t, err)
	_, err = p.Embed(ctx, strings.Repeat("x", 20))
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, strings.Repeat("x", 10), seen[0])
}

func TestProvider_FailureIsEmbeddingError(t *testing.T) {
	cause := errors.New("connection refused")
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return nil, cause
	}
	p, err := NewProvider(embedder)
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), "text")
	var embErr *EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, "embed", embErr.Op)
	assert.ErrorIs(t, err, cause)
	assert.Zero(t, p.Stats().Size)
}

func TestProvider_Timeout(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, _ string) ([]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	p, err := NewProvider(embedder, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Embed(context.Background(), "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestProvider_EmptyVector(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return nil, nil
	}
	p, err := NewProvider(embedder)
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestProvider_EmbedBatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	var batchSizes []int
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		batchSizes = append(batchSizes, len(texts))
		out := make([][]float32, len(texts))
		for i, t := range texts {
			out[i] = mock.DeterministicVector(t, 8)
		}
		return out, nil
	}
	p, err := NewProvider(embedder)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = p.Embed(ctx, "cached")
	require.NoError(t, err)

	vecs, err := p.EmbedBatch(ctx, []string{"cached", "new", "new", "other"})
	require.NoError(t, err)
	require.Len(t, vecs, 4)
	assert.Equal(t, []int{2}, batchSizes)
	assert.Equal(t, vecs[1], vecs[2])
	assert.Equal(t, mock.DeterministicVector("other", 8), vecs[3])

	t.Run("mismatch", func(t *testing.T) {
		embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
			return nil, nil
		}
		_, err := p.EmbedBatch(ctx, []string{"fresh text"})
		assert.ErrorIs(t, err, ErrBatchMismatch)
	})
}

func TestProvider_CancelledContext(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	p, err := NewProvider(embedder)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Embed(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, embedder.CallCount())
}

func TestProvider_PersistentStore(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	clock := newFakeClock()
	ctx := context.Background()

	first := mock.NewMockEmbedder()
	p1, err := NewProvider(first, WithStore(repos.Embeddings), WithClock(clock.Now))
	require.NoError(t, err)
	vec, err := p1.Embed(ctx, "persisted")
	require.NoError(t, err)

	stored, err := repos.Embeddings.GetEmbedding(ctx, core.ContentHash("persisted"))
	require.NoError(t, err)
	assert.Equal(t, vec, stored.Vector)

	second := mock.NewMockEmbedder()
	p2, err := NewProvider(second, WithStore(repos.Embeddings), WithClock(clock.Now))
	require.NoError(t, err)
	got, err := p2.Embed(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, vec, got)
	assert.Zero(t, second.CallCount())

	t.Run("stale entries are ignored and purged", func(t *testing.T) {
		clock.Advance(DefaultCacheTTL)
		third := mock.NewMockEmbedder()
		p3, err := NewProvider(third, WithStore(repos.Embeddings), WithClock(clock.Now))
		require.NoError(t, err)

		clock.Advance(time.Minute)
		removed, err := p3.Purge(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		_, err = repos.Embeddings.GetEmbedding(ctx, core.ContentHash("persisted"))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestProvider_RateLimitHonorsContext(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	p, err := NewProvider(embedder, WithRateLimit(0.001, 1))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = p.Embed(ctx, "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = p.Embed(ctx, "second")
	var embErr *EmbeddingError
	assert.ErrorAs(t, err, &embErr)
	assert.Equal(t, 1, embedder.CallCount())
}

func TestProvider_ModelScopesPersistentKeys(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()
	ctx := context.Background()

	gemma := mock.NewMockEmbedder()
	p1, err := NewProvider(gemma, WithStore(repos.Embeddings), WithModel("embeddinggemma"))
	require.NoError(t, err)
	_, err = p1.Embed(ctx, "shared text")
	require.NoError(t, err)

	other := mock.NewMockEmbedder()
	p2, err := NewProvider(other, WithStore(repos.Embeddings), WithModel("nomic-embed-text"))
	require.NoError(t, err)
	_, err = p2.Embed(ctx, "shared text")
	require.NoError(t, err)
	assert.Equal(t, 1, other.CallCount(), "a different model never reuses persisted vectors")

	same := mock.NewMockEmbedder()
	p3, err := NewProvider(same, WithStore(repos.Embeddings), WithModel("embeddinggemma"))
	require.NoError(t, err)
	_, err = p3.Embed(ctx, "shared text")
	require.NoError(t, err)
	assert.Zero(t, same.CallCount())
}
