package linear

import (
	"context"
	"math"
	"testing"

	"github.com/lexlapax/memvault/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitVector returns a 2-d unit vector whose cosine similarity to [1,0] is
// exactly cos.
func unitVector(cos float64) []float32 {
	return []float32{float32(cos), float32(math.Sqrt(1 - cos*cos))}
}

func TestAddAndCount(t *testing.T) {
	ctx := context.Background()
	idx := NewLinearIndex(2)

	require.NoError(t, idx.Add(ctx, "a", unitVector(0.9)))
	require.NoError(t, idx.Add(ctx, "b", unitVector(0.5)))
	assert.Equal(t, 2, idx.Count())

	// re-adding an id replaces, not duplicates
	require.NoError(t, idx.Add(ctx, "a", unitVector(0.3)))
	assert.Equal(t, 2, idx.Count())
}

func TestAddDimensionMismatch(t *testing.T) {
	idx := NewLinearIndex(3)

	err := idx.Add(context.Background(), "a", []float32{0.1, 0.2})
	assert.ErrorIs(t, err, errors.ErrDimensionMismatch)
	assert.Equal(t, 0, idx.Count())
}

func TestSearchRanking(t *testing.T) {
	ctx := context.Background()
	idx := NewLinearIndex(2)

	require.NoError(t, idx.Add(ctx, "far", unitVector(0.1)))
	require.NoError(t, idx.Add(ctx, "near", unitVector(0.9)))
	require.NoError(t, idx.Add(ctx, "mid", unitVector(0.5)))

	results, err := idx.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].ID)
	assert.Equal(t, "mid", results[1].ID)
	assert.InDelta(t, 0.9, results[0].Score, 1e-6)
	assert.InDelta(t, 0.5, results[1].Score, 1e-6)
}

func TestSearchTieBreaksByRecency(t *testing.T) {
	ctx := context.Background()
	idx := NewLinearIndex(2)

	// identical vectors tie exactly; the more recently inserted ranks first
	require.NoError(t, idx.Add(ctx, "older", unitVector(0.5)))
	require.NoError(t, idx.Add(ctx, "newer", unitVector(0.5)))

	results, err := idx.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "newer", results[0].ID)
	assert.Equal(t, "older", results[1].ID)
}

func TestSearchKLargerThanCount(t *testing.T) {
	ctx := context.Background()
	idx := NewLinearIndex(2)
	require.NoError(t, idx.Add(ctx, "only", unitVector(0.8)))

	results, err := idx.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchDimensionMismatch(t *testing.T) {
	idx := NewLinearIndex(2)
	_, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3)
	assert.ErrorIs(t, err, errors.ErrDimensionMismatch)
}

func TestRemoveIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := NewLinearIndex(2)

	require.NoError(t, idx.Add(ctx, "a", unitVector(0.9)))
	require.NoError(t, idx.Add(ctx, "b", unitVector(0.5)))

	require.NoError(t, idx.Remove(ctx, "a"))
	assert.Equal(t, 1, idx.Count())

	// second removal of the same id is a no-op, not an error
	require.NoError(t, idx.Remove(ctx, "a"))
	assert.Equal(t, 1, idx.Count())

	// removing an id that never existed is also a no-op
	require.NoError(t, idx.Remove(ctx, "ghost"))
	assert.Equal(t, 1, idx.Count())

	results, err := idx.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestZeroVector(t *testing.T) {
	ctx := context.Background()
	idx := NewLinearIndex(2)
	require.NoError(t, idx.Add(ctx, "zero", []float32{0, 0}))

	results, err := idx.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].Score)
}
