package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/lexlapax/memvault/pkg/errors"
	"github.com/lexlapax/memvault/pkg/log"
	"github.com/lexlapax/memvault/pkg/memory"
)

// snapshotDoc is the on-disk snapshot schema.
type snapshotDoc struct {
	Version   int             `json:"version"`
	Dimension int             `json:"dimension"`
	CreatedAt time.Time       `json:"created_at"`
	Records   []memory.Record `json:"records"`
}

// Load reads the snapshot file and rebuilds the index from the record
// embeddings. A missing file is a valid empty store. Any unreadable or
// structurally invalid snapshot fails loudly with ErrCorruptSnapshot rather
// than silently starting empty.
func (s *MemoryStore) Load(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.InfoContext(ctx, "no snapshot file, starting empty", "path", s.path)
			return nil
		}
		return errors.Wrap(errors.ErrCorruptSnapshot, "failed to read snapshot %s: %v", s.path, err)
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(errors.ErrCorruptSnapshot, "failed to decode snapshot %s: %v", s.path, err)
	}
	if doc.Version <= 0 || doc.Dimension <= 0 {
		return errors.Wrap(errors.ErrCorruptSnapshot, "snapshot %s has invalid header (version=%d, dimension=%d)",
			s.path, doc.Version, doc.Dimension)
	}
	if doc.Dimension != s.dimension {
		return errors.Wrap(errors.ErrDimensionMismatch,
			"snapshot dimension %d, store dimension %d", doc.Dimension, s.dimension)
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	s.state.Lock()
	defer s.state.Unlock()

	for _, rec := range doc.Records {
		if !rec.HasEmbedding() {
			continue
		}
		if len(rec.Embedding) != s.dimension {
			return errors.Wrap(errors.ErrDimensionMismatch,
				"record %s has embedding dimension %d, store expects %d",
				rec.ID, len(rec.Embedding), s.dimension)
		}
		if err := s.idx.Add(ctx, rec.ID, rec.Embedding); err != nil {
			return fmt.Errorf("failed to index record %s: %w", rec.ID, err)
		}
	}

	s.version = doc.Version
	s.createdAt = doc.CreatedAt
	s.commitLocked(doc.Records)

	log.InfoContext(ctx, "snapshot loaded",
		"path", s.path, "records", len(doc.Records), "version", doc.Version)
	return nil
}

// Persist writes the current state to the snapshot file.
func (s *MemoryStore) Persist(ctx context.Context) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	s.state.RLock()
	defer s.state.RUnlock()
	return s.persistLocked(s.records)
}

// persistLocked writes the given record set through a temp file and an
// atomic rename, so a crash mid-write never leaves a truncated snapshot.
// Callers must hold the state lock.
func (s *MemoryStore) persistLocked(records []memory.Record) error {
	if s.path == "" {
		return nil
	}

	doc := snapshotDoc{
		Version:   s.version,
		Dimension: s.dimension,
		CreatedAt: s.createdAt,
		Records:   records,
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Backup copies the snapshot file to a timestamped sibling and returns the
// copy's path. Operational tooling takes one before any bulk mutation.
func (s *MemoryStore) Backup() (string, error) {
	if s.path == "" {
		return "", fmt.Errorf("store has no snapshot path")
	}

	src, err := os.Open(s.path)
	if err != nil {
		return "", fmt.Errorf("failed to open snapshot for backup: %w", err)
	}
	defer src.Close()

	backupPath := fmt.Sprintf("%s.bak-%s", s.path, time.Now().UTC().Format("20060102T150405"))
	dst, err := os.Create(backupPath)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(backupPath)
		return "", fmt.Errorf("failed to copy snapshot: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(backupPath)
		return "", fmt.Errorf("failed to close backup file: %w", err)
	}
	return backupPath, nil
}

// Path is the snapshot file location, empty for in-memory stores.
func (s *MemoryStore) Path() string {
	return s.path
}
