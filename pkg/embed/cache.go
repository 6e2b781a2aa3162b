package embed

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"github.com/lexlapax/memvault/pkg/log"
)

// CachedEmbedder decorates an Embedder with a ristretto cache keyed by text.
// Cleanup runs re-embed the same texts repeatedly; caching keeps their cost
// bounded without changing semantics.
type CachedEmbedder struct {
	inner Embedder
	cache *ristretto.Cache
}

// NewCachedEmbedder wraps inner with a cache holding up to maxBytes of
// embedding data.
func NewCachedEmbedder(inner Embedder, maxBytes int64) (*CachedEmbedder, error) {
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}

	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// Embed returns the cached embedding for text, computing and storing it on a
// miss.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := c.cache.Get(text); ok {
		if vec, ok := cached.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Set(text, vec, int64(len(vec)*4))
	return vec, nil
}

// EmbedBatch serves cached entries and forwards only the misses to the inner
// embedder's batch path.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missing []string
	var missingAt []int
	for i, text := range texts {
		if cached, ok := c.cache.Get(text); ok {
			if vec, ok := cached.([]float32); ok {
				out[i] = vec
				continue
			}
		}
		missing = append(missing, text)
		missingAt = append(missingAt, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	log.DebugContext(ctx, "embedding cache misses", "misses", len(missing), "total", len(texts))

	computed, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(computed) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(computed), len(missing))
	}

	for j, vec := range computed {
		out[missingAt[j]] = vec
		c.cache.Set(missing[j], vec, int64(len(vec)*4))
	}

	return out, nil
}

// Wait blocks until buffered cache writes are applied. Intended for tests.
func (c *CachedEmbedder) Wait() {
	c.cache.Wait()
}
