package migration

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexlapax/memvault/pkg/embed/adapters/mock"
	"github.com/lexlapax/memvault/pkg/gate"
	"github.com/lexlapax/memvault/pkg/index/adapters/linear"
	"github.com/lexlapax/memvault/pkg/memory"
	"github.com/lexlapax/memvault/pkg/store"
)

const (
	sourceDimension = 8
	targetDimension = 16
)

func newStore(t *testing.T, dimension int) *store.MemoryStore {
	t.Helper()

	s, err := store.NewMemoryStore(linear.NewLinearIndex(dimension), store.Options{
		Path:      filepath.Join(t.TempDir(), "snapshot.json"),
		Dimension: dimension,
	})
	require.NoError(t, err)
	return s
}

// populateSource restores total records into the store, the last missing
// embeddings, as a partially embedded legacy snapshot would have them.
func populateSource(t *testing.T, s *store.MemoryStore, total, missing int) []memory.Record {
	t.Helper()

	embedder := mock.NewMockEmbedder(sourceDimension)
	records := make([]memory.Record, 0, total)
	for i := 0; i < total; i++ {
		rec := memory.NewMessage(
			fmt.Sprintf("Conversation fragment %d about weekend plans and errands", i),
			memory.Metadata{Channel: memory.ChannelChat, Sender: memory.SenderUser},
		)
		if i%3 == 0 {
			rec = memory.NewPersonalInfo(
				fmt.Sprintf("Present: detail %d about the user's routine", i),
				memory.Metadata{},
			)
		}
		if i < total-missing {
			vec, err := embedder.Embed(context.Background(), rec.Text)
			require.NoError(t, err)
			rec.Embedding = vec
		}
		records = append(records, rec)
	}

	require.NoError(t, s.Restore(context.Background(), 1, records))
	require.Equal(t, total, s.ActiveCount())
	require.Equal(t, total-missing, s.IndexCount())
	return records
}

func TestMigrate_SameDimensionReusesEmbeddings(t *testing.T) {
	ctx := context.Background()
	source := newStore(t, sourceDimension)
	records := populateSource(t, source, 137, 5)

	target := newStore(t, sourceDimension)
	summary, err := NewCoordinator(0).Migrate(ctx, source, target, mock.NewMockEmbedder(sourceDimension))
	require.NoError(t, err)

	assert.Equal(t, 137, summary.Total)
	assert.Equal(t, 5, summary.Reembedded)
	assert.Equal(t, 137, summary.IndexCount)
	assert.Equal(t, 2, summary.Version)
	assert.Equal(t, summary.Messages+summary.PersonalInfo, summary.Total)

	assert.Equal(t, 137, target.ActiveCount())
	assert.Equal(t, 137, target.IndexCount())
	assert.Equal(t, 2, target.Version())

	// No record's text changes in transit.
	for _, rec := range records {
		migrated, err := target.Record(rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.Text, migrated.Text)
	}

	// A record that already had a compatible embedding keeps it unchanged.
	migrated, err := target.Record(records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, records[0].Embedding, migrated.Embedding)

	// A record that was missing one now has it.
	migrated, err = target.Record(records[136].ID)
	require.NoError(t, err)
	assert.Len(t, migrated.Embedding, sourceDimension)
}

func TestMigrate_NewDimensionRecomputesAll(t *testing.T) {
	ctx := context.Background()
	source := newStore(t, sourceDimension)
	populateSource(t, source, 40, 3)

	target := newStore(t, targetDimension)
	summary, err := NewCoordinator(16).Migrate(ctx, source, target, mock.NewMockEmbedder(targetDimension))
	require.NoError(t, err)

	assert.Equal(t, 40, summary.Total)
	assert.Equal(t, 40, summary.Reembedded)
	assert.Equal(t, 40, target.IndexCount())

	for _, rec := range target.Records() {
		assert.Len(t, rec.Embedding, targetDimension)
	}
}

func TestMigrate_EmptySource(t *testing.T) {
	ctx := context.Background()
	source := newStore(t, sourceDimension)
	target := newStore(t, sourceDimension)

	summary, err := NewCoordinator(0).Migrate(ctx, source, target, mock.NewMockEmbedder(sourceDimension))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0, target.ActiveCount())
}

func TestMigrate_TargetNotEmpty(t *testing.T) {
	ctx := context.Background()
	source := newStore(t, sourceDimension)
	populateSource(t, source, 10, 0)

	target := newStore(t, sourceDimension)
	embedder := mock.NewMockEmbedder(sourceDimension)
	_, err := target.Insert(ctx, memory.Record{
		Kind: memory.KindMessage,
		Text: "A record that was already living in the target store",
	}, embedder, gate.Context{})
	require.NoError(t, err)

	_, err = NewCoordinator(0).Migrate(ctx, source, target, embedder)
	assert.Error(t, err)
}

func TestMigrate_MissingEmbedder(t *testing.T) {
	ctx := context.Background()
	source := newStore(t, sourceDimension)
	populateSource(t, source, 10, 2)

	target := newStore(t, sourceDimension)
	_, err := NewCoordinator(0).Migrate(ctx, source, target, nil)
	assert.Error(t, err)
}
