package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lexlapax/memvault/pkg/facts"
	"github.com/lexlapax/memvault/pkg/log"
	bolt "go.etcd.io/bbolt"
)

const factsBucket = "facts"

// BoltSource implements facts.Source backed by a BoltDB database. The gate
// treats the source as read-only; Put exists for the tooling that seeds it.
type BoltSource struct {
	db *bolt.DB
}

// NewBoltSource creates a new BoltSource with the given database connection.
func NewBoltSource(db *bolt.DB) *BoltSource {
	source := &BoltSource{
		db: db,
	}

	log.Debug("Initialized BoltDB fact source",
		"db_path", db.Path(),
		"read_only", db.IsReadOnly(),
	)

	return source
}

// Initialize creates the facts bucket if it doesn't exist. Put calls this
// implicitly, but it can be called at startup to fail fast on a bad file.
func (b *BoltSource) Initialize(ctx context.Context) error {
	log.DebugContext(ctx, "Initializing BoltDB facts bucket")

	err := b.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(factsBucket))
		return err
	})

	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize BoltDB facts bucket", "error", err)
		return err
	}

	return nil
}

// Put stores a fact, assigning it an internal key.
func (b *BoltSource) Put(ctx context.Context, f facts.Fact) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(factsBucket))
		if err != nil {
			return fmt.Errorf("failed to create facts bucket: %w", err)
		}

		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("failed to marshal fact: %w", err)
		}

		return bucket.Put([]byte(uuid.New().String()), data)
	})

	if err != nil {
		return fmt.Errorf("failed to store fact: %w", err)
	}

	return nil
}

// Search returns the stored facts sharing a keyword with the given set.
func (b *BoltSource) Search(ctx context.Context, keywords []string) ([]facts.Fact, error) {
	var matched []facts.Fact

	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(factsBucket))
		if bucket == nil {
			// No facts stored yet, return empty result
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var f facts.Fact
			if err := json.Unmarshal(v, &f); err != nil {
				return fmt.Errorf("failed to unmarshal fact: %w", err)
			}

			if facts.Matches(f, keywords) {
				matched = append(matched, f)
			}
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to search facts: %w", err)
	}

	return matched, nil
}
