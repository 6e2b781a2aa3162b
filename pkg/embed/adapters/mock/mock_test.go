package mock

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministic(t *testing.T) {
	ctx := context.Background()
	embedder := NewMockEmbedder(16)

	a1, err := embedder.Embed(ctx, "the same text")
	require.NoError(t, err)
	a2, err := embedder.Embed(ctx, "the same text")
	require.NoError(t, err)
	assert.Equal(t, a1, a2)

	b, err := embedder.Embed(ctx, "different text")
	require.NoError(t, err)
	assert.NotEqual(t, a1, b)
}

func TestDimensionAndNorm(t *testing.T) {
	embedder := NewMockEmbedder(32)
	assert.Equal(t, 32, embedder.Dimension())

	vec, err := embedder.Embed(context.Background(), "check the norm")
	require.NoError(t, err)
	require.Len(t, vec, 32)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestEmbedBatchMatchesPerItem(t *testing.T) {
	ctx := context.Background()
	embedder := NewMockEmbedder(8)

	texts := []string{"alpha", "beta", "gamma"}
	batch, err := embedder.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := embedder.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockEmbedder(8).Embed(ctx, "anything")
	assert.Error(t, err)
}
