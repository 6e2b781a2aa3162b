// Package chromem implements the ANN-accelerated vector index on top of
// chromem-go. Embeddings are always supplied by the caller; the collection's
// embedding function is a stub that refuses to compute anything.
package chromem

import (
	"context"
	"fmt"

	"github.com/lexlapax/memvault/pkg/errors"
	"github.com/lexlapax/memvault/pkg/index"
	"github.com/lexlapax/memvault/pkg/log"
	chromemgo "github.com/philippgille/chromem-go"
)

// ChromemIndex implements index.Index backed by a chromem-go collection.
type ChromemIndex struct {
	collection *chromemgo.Collection
	dimension  int
}

var _ index.Index = (*ChromemIndex)(nil)

// NewChromemIndex creates an index over a collection in the given chromem-go
// database. The collection is created if it does not exist.
func NewChromemIndex(db *chromemgo.DB, collectionName string, dimension int) (*ChromemIndex, error) {
	if db == nil {
		return nil, fmt.Errorf("chromem db cannot be nil")
	}
	if collectionName == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive")
	}

	// Embeddings are computed externally, so the collection's embedding
	// function must never be reached.
	noEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("collection %q only accepts precomputed embeddings", collectionName)
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection: %w", err)
	}

	log.Debug("Initialized chromem index",
		"collection", collectionName,
		"dimension", dimension,
		"existing_count", collection.Count(),
	)

	return &ChromemIndex{
		collection: collection,
		dimension:  dimension,
	}, nil
}

// Add indexes embedding under id, replacing any existing entry.
func (c *ChromemIndex) Add(ctx context.Context, id string, embedding []float32) error {
	if len(embedding) != c.dimension {
		return errors.Wrap(errors.ErrDimensionMismatch,
			"add %q: got %d, index expects %d", id, len(embedding), c.dimension)
	}

	err := c.collection.AddDocument(ctx, chromemgo.Document{
		ID:        id,
		Content:   id,
		Embedding: embedding,
	})
	if err != nil {
		return fmt.Errorf("failed to add document %q: %w", id, err)
	}
	return nil
}

// Remove deletes the entry for id. Removing an absent id is a no-op.
func (c *ChromemIndex) Remove(ctx context.Context, id string) error {
	if err := c.collection.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("failed to delete document %q: %w", id, err)
	}
	return nil
}

// Search returns up to k nearest entries by descending similarity. chromem
// rejects over-large result requests, so k is clamped to the current count.
func (c *ChromemIndex) Search(ctx context.Context, query []float32, k int) ([]index.SearchResult, error) {
	if len(query) != c.dimension {
		return nil, errors.Wrap(errors.ErrDimensionMismatch,
			"search: got %d, index expects %d", len(query), c.dimension)
	}

	count := c.collection.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := c.collection.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	out := make([]index.SearchResult, len(results))
	for i, r := range results {
		out[i] = index.SearchResult{ID: r.ID, Score: float64(r.Similarity)}
	}
	return out, nil
}

// Count reports the number of currently indexed vectors.
func (c *ChromemIndex) Count() int {
	return c.collection.Count()
}

// Dimension is the fixed embedding dimension of this index.
func (c *ChromemIndex) Dimension() int {
	return c.dimension
}
