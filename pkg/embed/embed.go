// Package embed defines the external embedding capability. The store treats
// embedding generation as a black box; adapters live in subpackages.
package embed

import "context"

// Embedder converts text into fixed-dimension vectors.
type Embedder interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per input text, in order. It is an
	// optional accelerated path whose semantics must match per-item Embed
	// calls.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Func adapts a plain embedding function to the Embedder interface.
type Func func(ctx context.Context, text string) ([]float32, error)

// Embed calls the wrapped function.
func (f Func) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// EmbedBatch calls the wrapped function once per text.
func (f Func) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
