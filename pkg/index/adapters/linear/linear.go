// Package linear implements the exact, brute-force vector index: every query
// scans all stored vectors. O(n*d) per search, which is the baseline the
// ANN-accelerated backend approximates.
package linear

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/lexlapax/memvault/pkg/errors"
	"github.com/lexlapax/memvault/pkg/index"
)

type entry struct {
	id        string
	embedding []float32

	// seq orders insertions; ties on similarity rank the most recently
	// inserted entry first
	seq uint64
}

// LinearIndex holds all vectors in memory and scans them on every search.
type LinearIndex struct {
	mu        sync.RWMutex
	dimension int
	entries   []entry
	byID      map[string]int
	nextSeq   uint64
}

var _ index.Index = (*LinearIndex)(nil)

// NewLinearIndex creates an empty linear-scan index with the given fixed
// dimension.
func NewLinearIndex(dimension int) *LinearIndex {
	return &LinearIndex{
		dimension: dimension,
		byID:      make(map[string]int),
	}
}

// Add indexes embedding under id. Re-adding an existing id replaces its
// vector and refreshes its insertion order.
func (l *LinearIndex) Add(ctx context.Context, id string, embedding []float32) error {
	if len(embedding) != l.dimension {
		return errors.Wrap(errors.ErrDimensionMismatch,
			"add %q: got %d, index expects %d", id, len(embedding), l.dimension)
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextSeq++
	if pos, ok := l.byID[id]; ok {
		l.entries[pos] = entry{id: id, embedding: vec, seq: l.nextSeq}
		return nil
	}

	l.byID[id] = len(l.entries)
	l.entries = append(l.entries, entry{id: id, embedding: vec, seq: l.nextSeq})
	return nil
}

// Remove deletes the entry for id, if present.
func (l *LinearIndex) Remove(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.byID[id]
	if !ok {
		return nil
	}

	last := len(l.entries) - 1
	if pos != last {
		l.entries[pos] = l.entries[last]
		l.byID[l.entries[pos].id] = pos
	}
	l.entries = l.entries[:last]
	delete(l.byID, id)
	return nil
}

// Search scans every stored vector and returns the top k by descending
// cosine similarity, ties broken by most-recent insertion first.
func (l *LinearIndex) Search(ctx context.Context, query []float32, k int) ([]index.SearchResult, error) {
	if len(query) != l.dimension {
		return nil, errors.Wrap(errors.ErrDimensionMismatch,
			"search: got %d, index expects %d", len(query), l.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	type scored struct {
		id    string
		score float64
		seq   uint64
	}

	results := make([]scored, 0, len(l.entries))
	for _, e := range l.entries {
		results = append(results, scored{
			id:    e.id,
			score: cosineSimilarity(query, e.embedding),
			seq:   e.seq,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].seq > results[j].seq
	})

	if k < len(results) {
		results = results[:k]
	}

	out := make([]index.SearchResult, len(results))
	for i, r := range results {
		out[i] = index.SearchResult{ID: r.id, Score: r.score}
	}
	return out, nil
}

// Count reports the number of currently indexed vectors.
func (l *LinearIndex) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Dimension is the fixed embedding dimension of this index.
func (l *LinearIndex) Dimension() int {
	return l.dimension
}

// cosineSimilarity computes the cosine of the angle between a and b. A zero
// vector yields similarity 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
