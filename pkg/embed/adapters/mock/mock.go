// Package mock provides a deterministic embedder for tests and offline use.
// The same text always maps to the same unit vector; distinct texts are very
// likely to map to distinct vectors.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/lexlapax/memvault/pkg/embed"
)

// MockEmbedder deterministically derives vectors from a hash of the text.
type MockEmbedder struct {
	dimension int
}

var _ embed.Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock embedder producing vectors of the given
// dimension.
func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 8
	}
	return &MockEmbedder{dimension: dimension}
}

// Embed returns a unit vector seeded by the FNV hash of text.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, m.dimension)
	var norm float64
	for i := range vec {
		v := rng.Float64()*2 - 1
		vec[i] = float32(v)
		norm += v * v
	}

	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}

	return vec, nil
}

// EmbedBatch embeds each text independently.
func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimension is the fixed output dimension of this embedder.
func (m *MockEmbedder) Dimension() int {
	return m.dimension
}
