package mock

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/poiesic/noteseek/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("deterministic unit vectors", func(t *testing.T) {
		m := NewMockEmbedder()
		a, err := m.EmbedText(ctx, "hello")
		require.NoError(t, err)
		b, err := m.EmbedText(ctx, "hello")
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Len(t, a, 384)

		var sum float64
		for _, v := range a {
			sum += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
		assert.Equal(t, 2, m.CallCount())
	})

	t.Run("injected failure", func(t *testing.T) {
		m := NewMockEmbedder()
		m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("boom")
		}
		_, err := m.EmbedText(ctx, "x")
		assert.Error(t, err)

		m.Reset()
		assert.Equal(t, 0, m.CallCount())
		_, err = m.EmbedText(ctx, "x")
		assert.NoError(t, err)
	})

	t.Run("batch matches single", func(t *testing.T) {
		m := NewMockEmbedder()
		m.Dimensions = 8
		batch, err := m.EmbedTexts(ctx, []string{"a", "b"})
		require.NoError(t, err)
		single, err := m.EmbedText(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, single, batch[1])
	})
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider().(*MockProvider)
	out, err := p.Completer().Complete(context.Background(), "question", ai.CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "mock answer", out.Text)
	assert.Equal(t, "question", p.GetMockCompleter().LastPrompt())
	assert.Equal(t, 1, p.GetMockCompleter().CallCount())
	assert.NoError(t, p.Close())
}
