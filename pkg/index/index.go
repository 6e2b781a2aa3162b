// Package index defines the vector index capability used by a memory store.
// The brute-force linear-scan backend and the ANN-accelerated backend are
// interchangeable implementations of one interface, selected at
// store-construction time, which makes migrating between them a pure
// data-transfer operation.
package index

import (
	"context"
)

// SearchResult pairs an indexed record id with its similarity score.
type SearchResult struct {
	// ID is the record id the vector was indexed under
	ID string

	// Score is the cosine similarity to the query, higher is closer
	Score float64
}

// Index is an approximate-nearest-neighbor structure over fixed-dimension
// embeddings.
type Index interface {
	// Add indexes embedding under id, replacing any existing entry for the
	// same id. A vector whose dimension does not match the index's fixed
	// dimension is rejected with errors.ErrDimensionMismatch.
	Add(ctx context.Context, id string, embedding []float32) error

	// Remove deletes the entry for id. Removing an absent id is a no-op,
	// not an error.
	Remove(ctx context.Context, id string) error

	// Search returns up to k entries nearest to the query by descending
	// similarity. Fewer than k results are returned when fewer vectors are
	// indexed.
	Search(ctx context.Context, query []float32, k int) ([]SearchResult, error)

	// Count reflects exactly the number of currently indexed vectors.
	Count() int

	// Dimension is the fixed embedding dimension of this index.
	Dimension() int
}
