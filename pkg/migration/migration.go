// Package migration moves a store's full contents onto a new index or
// embedding configuration. The move is all-or-nothing: the target is fully
// staged and verified before it is considered live, and a count mismatch at
// the end fails the whole migration.
package migration

import (
	"context"
	"fmt"

	"github.com/lexlapax/memvault/pkg/embed"
	"github.com/lexlapax/memvault/pkg/errors"
	"github.com/lexlapax/memvault/pkg/log"
	"github.com/lexlapax/memvault/pkg/memory"
	"github.com/lexlapax/memvault/pkg/store"
)

// defaultBatchSize caps how many texts go to the embedder in one call.
const defaultBatchSize = 64

// Summary reports what a completed migration moved.
type Summary struct {
	Total        int
	Messages     int
	PersonalInfo int
	Reembedded   int
	IndexCount   int
	Version      int
}

// Coordinator runs migrations.
type Coordinator struct {
	batchSize int
}

// NewCoordinator creates a coordinator. batchSize <= 0 uses the default.
func NewCoordinator(batchSize int) *Coordinator {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Coordinator{batchSize: batchSize}
}

// Migrate copies every active record from source into the empty target.
// Embeddings matching the target dimension are reused; missing or
// incompatible ones are recomputed in batches. Candidates do not pass the
// quality gate again: they were admitted once and are replayed as-is. After
// the copy the record and index counts are verified against the source and
// any mismatch fails with ErrMigrationMismatch.
func (c *Coordinator) Migrate(ctx context.Context, source, target *store.MemoryStore, embedder embed.Embedder) (Summary, error) {
	if source == nil || target == nil {
		return Summary{}, fmt.Errorf("source and target cannot be nil")
	}

	records := source.Records()
	dimension := target.Dimension()

	var pending []int
	for i, rec := range records {
		if rec.HasEmbedding() && len(rec.Embedding) == dimension {
			continue
		}
		pending = append(pending, i)
	}

	if len(pending) > 0 {
		if embedder == nil {
			return Summary{}, fmt.Errorf("%d records need embeddings but no embedder was provided", len(pending))
		}
		if err := c.reembed(ctx, records, pending, embedder); err != nil {
			return Summary{}, err
		}
	}

	version := source.Version() + 1
	if err := target.Restore(ctx, version, records); err != nil {
		return Summary{}, fmt.Errorf("failed to stage migrated records: %w", err)
	}

	if got := target.ActiveCount(); got != len(records) {
		return Summary{}, errors.Wrap(errors.ErrMigrationMismatch,
			"target has %d records, source had %d", got, len(records))
	}
	if got := target.IndexCount(); got != len(records) {
		return Summary{}, errors.Wrap(errors.ErrMigrationMismatch,
			"target index has %d vectors, expected %d", got, len(records))
	}

	summary := Summary{
		Total:      len(records),
		Reembedded: len(pending),
		IndexCount: target.IndexCount(),
		Version:    version,
	}
	for _, rec := range records {
		switch rec.Kind {
		case memory.KindMessage:
			summary.Messages++
		case memory.KindPersonalInfo:
			summary.PersonalInfo++
		}
	}

	log.InfoContext(ctx, "migration complete",
		"total", summary.Total, "reembedded", summary.Reembedded, "version", summary.Version)
	return summary, nil
}

// reembed recomputes embeddings for the records at the given positions.
func (c *Coordinator) reembed(ctx context.Context, records []memory.Record, pending []int, embedder embed.Embedder) error {
	for start := 0; start < len(pending); start += c.batchSize {
		end := start + c.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, pos := range batch {
			texts[i] = records[pos].Text
		}

		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed batch of %d records: %w", len(batch), err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
		}
		for i, pos := range batch {
			records[pos].Embedding = vectors[i]
		}
	}
	return nil
}
