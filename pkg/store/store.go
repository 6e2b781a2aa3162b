// Package store implements the authoritative memory record collection. A
// MemoryStore exclusively owns its record slice and its vector index and keeps
// the two consistent: the ids present in the index are exactly the ids of
// non-deleted records with a computed embedding, and every completed mutation
// leaves index count and active record count equal.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexlapax/memvault/pkg/embed"
	"github.com/lexlapax/memvault/pkg/errors"
	"github.com/lexlapax/memvault/pkg/gate"
	"github.com/lexlapax/memvault/pkg/index"
	"github.com/lexlapax/memvault/pkg/log"
	"github.com/lexlapax/memvault/pkg/memory"
)

// DefaultLockTimeout bounds how long a mutating call waits for the write
// lock before failing with errors.ErrBusy.
const DefaultLockTimeout = 5 * time.Second

// defaultOverfetch multiplies k when querying the index so post-filtering
// can still fill the requested result count.
const defaultOverfetch = 3

// Filter restricts search results. A nil Filter keeps everything.
type Filter func(memory.Record) bool

// ExcludeBadExamples filters out quarantined records. Generation-time
// retrieval is expected to apply this.
func ExcludeBadExamples() Filter {
	return func(r memory.Record) bool {
		return !r.Metadata.IsBadExample
	}
}

// ChannelOnly restricts results to one channel.
func ChannelOnly(channel string) Filter {
	return func(r memory.Record) bool {
		return r.Metadata.Channel == channel
	}
}

// KindOnly restricts results to one record kind.
func KindOnly(kind memory.Kind) Filter {
	return func(r memory.Record) bool {
		return r.Kind == kind
	}
}

// And combines filters; all must pass.
func And(filters ...Filter) Filter {
	return func(r memory.Record) bool {
		for _, f := range filters {
			if f != nil && !f(r) {
				return false
			}
		}
		return true
	}
}

// SearchHit pairs a record with its similarity score.
type SearchHit struct {
	Record memory.Record
	Score  float64
}

// RejectedError reports a quality-gate refusal of a candidate record. It is
// an expected, reported outcome, not a system failure.
type RejectedError struct {
	Reason gate.Reason
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("record rejected by quality gate: %s", e.Reason)
}

// Options configures a MemoryStore.
type Options struct {
	// Path is the snapshot file location
	Path string

	// Dimension is the fixed embedding dimension; must match the index
	Dimension int

	// LockTimeout bounds write-lock waits; zero means DefaultLockTimeout
	LockTimeout time.Duration

	// Overfetch multiplies k on index queries to survive post-filtering;
	// zero means the default factor
	Overfetch int

	// Gate evaluates candidates on insert; nil admits everything
	Gate *gate.Gate

	// Version is the snapshot schema version written on persist; zero
	// means 1. A migration bumps it.
	Version int
}

// Stats summarizes a store for operational tooling.
type Stats struct {
	ActiveRecords int
	Messages      int
	PersonalInfo  int
	Quarantined   int
	IndexCount    int
	Dimension     int
	Version       int
}

// MemoryStore owns a record collection, its vector index, and its snapshot
// persistence. All mutations are single-writer with a bounded lock wait;
// searches read the last fully-committed state under a shared lock.
type MemoryStore struct {
	path        string
	dimension   int
	lockTimeout time.Duration
	overfetch   int
	gate        *gate.Gate
	idx         index.Index

	// writeTok serializes mutating operations with a bounded wait
	writeTok chan struct{}

	// state guards the committed record collection
	state     sync.RWMutex
	records   []memory.Record
	byID      map[string]int
	version   int
	createdAt time.Time
}

// NewMemoryStore creates a store over the given index. The index's fixed
// dimension must agree with the options.
func NewMemoryStore(idx index.Index, opts Options) (*MemoryStore, error) {
	if idx == nil {
		return nil, fmt.Errorf("index cannot be nil")
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive")
	}
	if idx.Dimension() != opts.Dimension {
		return nil, errors.Wrap(errors.ErrDimensionMismatch,
			"index dimension %d, store dimension %d", idx.Dimension(), opts.Dimension)
	}

	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.Overfetch <= 0 {
		opts.Overfetch = defaultOverfetch
	}
	if opts.Version <= 0 {
		opts.Version = 1
	}

	return &MemoryStore{
		path:        opts.Path,
		dimension:   opts.Dimension,
		lockTimeout: opts.LockTimeout,
		overfetch:   opts.Overfetch,
		gate:        opts.Gate,
		idx:         idx,
		writeTok:    make(chan struct{}, 1),
		byID:        make(map[string]int),
		version:     opts.Version,
		createdAt:   time.Now().UTC(),
	}, nil
}

// acquire takes the write token or fails with ErrBusy after the bounded
// wait. Interactive callers need bounded latency, so there is no indefinite
// blocking.
func (s *MemoryStore) acquire(ctx context.Context) (func(), error) {
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case s.writeTok <- struct{}{}:
		return func() { <-s.writeTok }, nil
	case <-timer.C:
		return nil, errors.ErrBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Insert evaluates candidate through the quality gate and, on acceptance,
// embeds it if needed, assigns it to the collection, indexes it, and
// persists the snapshot as one atomic unit. On rejection nothing is mutated
// and a *RejectedError carries the reason.
func (s *MemoryStore) Insert(ctx context.Context, candidate memory.Record, embedder embed.Embedder, gctx gate.Context) (string, error) {
	if err := candidate.Validate(); err != nil {
		return "", errors.Wrap(errors.ErrInvalidInput, "invalid candidate: %v", err)
	}

	if s.gate != nil {
		decision, err := s.gate.EvaluateForIngestion(ctx, candidate, gctx)
		if err != nil {
			return "", err
		}
		if decision.Verdict != gate.Accept {
			return "", &RejectedError{Reason: decision.Reason}
		}
	}

	// Embedding is a potentially slow external call; it runs before any
	// lock is taken and honors cancellation.
	if !candidate.HasEmbedding() {
		if embedder == nil {
			return "", fmt.Errorf("candidate has no embedding and no embedder was provided")
		}
		vec, err := embedder.Embed(ctx, candidate.Text)
		if err != nil {
			return "", fmt.Errorf("failed to embed candidate: %w", err)
		}
		candidate.Embedding = vec
	}
	if len(candidate.Embedding) != s.dimension {
		return "", errors.Wrap(errors.ErrDimensionMismatch,
			"candidate embedding has dimension %d, store expects %d",
			len(candidate.Embedding), s.dimension)
	}

	if candidate.ID == "" {
		candidate = assignIdentity(candidate)
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	// Commit point. Cancellation is honored up to here; past it the
	// mutation completes.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.state.Lock()
	defer s.state.Unlock()

	// Ids are never reused; a colliding insert would make the index
	// replace the existing vector while the record collection grows.
	if _, exists := s.byID[candidate.ID]; exists {
		return "", errors.Wrap(errors.ErrInvalidInput, "record %q already exists", candidate.ID)
	}

	// Index first, persist second: a failed persist rolls the index entry
	// back, so no failure path leaves the pair inconsistent.
	if err := s.idx.Add(ctx, candidate.ID, candidate.Embedding); err != nil {
		return "", err
	}

	staged := append(s.snapshotRecordsLocked(), candidate)
	if err := s.persistLocked(staged); err != nil {
		if rbErr := s.idx.Remove(ctx, candidate.ID); rbErr != nil {
			log.ErrorContext(ctx, "rollback of index entry failed", "id", candidate.ID, "error", rbErr)
		}
		return "", err
	}

	s.records = staged
	s.byID[candidate.ID] = len(staged) - 1

	log.DebugContext(ctx, "record inserted",
		"id", candidate.ID, "kind", string(candidate.Kind), "total", len(s.records))

	return candidate.ID, nil
}

// Search embeds the query, over-fetches from the index, applies filter, and
// returns up to k hits in descending similarity order. Fewer than k
// surviving results is a normal outcome, never an error.
func (s *MemoryStore) Search(ctx context.Context, queryText string, k int, filter Filter, embedder embed.Embedder) ([]SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}

	query, err := embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	kPrime := k * s.overfetch
	if kPrime < k+8 {
		kPrime = k + 8
	}

	results, err := s.idx.Search(ctx, query, kPrime)
	if err != nil {
		return nil, err
	}

	s.state.RLock()
	defer s.state.RUnlock()

	hits := make([]SearchHit, 0, k)
	for _, res := range results {
		pos, ok := s.byID[res.ID]
		if !ok {
			// Not yet committed or already retired; skip.
			continue
		}
		rec := s.records[pos]
		if filter != nil && !filter(rec) {
			continue
		}
		hits = append(hits, SearchHit{Record: rec, Score: res.Score})
		if len(hits) == k {
			break
		}
	}

	return hits, nil
}

// Remove hard-deletes the given records and their index entries together,
// then re-asserts the store-index invariant. Absent ids are skipped.
func (s *MemoryStore) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	s.state.Lock()
	defer s.state.Unlock()

	doomed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.byID[id]; ok {
			doomed[id] = struct{}{}
		}
	}
	if len(doomed) == 0 {
		return nil
	}

	staged := make([]memory.Record, 0, len(s.records)-len(doomed))
	for _, rec := range s.records {
		if _, gone := doomed[rec.ID]; !gone {
			staged = append(staged, rec)
		}
	}

	// Persist and commit the record change first, index removals second;
	// removal of an absent id is a no-op, so replaying after a failure
	// converges. Committing before the removals keeps memory and disk in
	// agreement even when an index removal fails partway.
	if err := s.persistLocked(staged); err != nil {
		return err
	}
	s.commitLocked(staged)

	for id := range doomed {
		if err := s.idx.Remove(ctx, id); err != nil {
			return fmt.Errorf("failed to remove %q from index: %w", id, err)
		}
	}

	if err := s.verifyInvariantsLocked(); err != nil {
		return err
	}

	log.DebugContext(ctx, "records removed", "removed", len(doomed), "remaining", len(s.records))
	return nil
}

// RemoveWhere hard-deletes every record matching the predicate and returns
// the removed ids.
func (s *MemoryStore) RemoveWhere(ctx context.Context, pred Filter) ([]string, error) {
	if pred == nil {
		return nil, nil
	}

	var ids []string
	s.state.RLock()
	for _, rec := range s.records {
		if pred(rec) {
			ids = append(ids, rec.ID)
		}
	}
	s.state.RUnlock()

	if len(ids) == 0 {
		return nil, nil
	}
	if err := s.Remove(ctx, ids...); err != nil {
		return nil, err
	}
	return ids, nil
}

// Quarantine flags the given records as bad examples without deleting them
// or touching the index. Quarantined records remain searchable; retrieval
// callers are expected to filter them out with ExcludeBadExamples.
func (s *MemoryStore) Quarantine(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	s.state.Lock()
	defer s.state.Unlock()

	staged := s.snapshotRecordsLocked()
	now := time.Now().UTC()
	flagged := 0
	for _, id := range ids {
		pos, ok := s.byID[id]
		if !ok {
			continue
		}
		if !staged[pos].Metadata.IsBadExample {
			staged[pos].Metadata.IsBadExample = true
			staged[pos].UpdatedAt = now
			flagged++
		}
	}
	if flagged == 0 {
		return nil
	}

	if err := s.persistLocked(staged); err != nil {
		return err
	}
	s.commitLocked(staged)

	log.DebugContext(ctx, "records quarantined", "flagged", flagged)
	return nil
}

// Purge hard-deletes every quarantined record. This is the explicit second
// phase after quarantine; it returns the number of records deleted.
func (s *MemoryStore) Purge(ctx context.Context) (int, error) {
	ids, err := s.RemoveWhere(ctx, func(r memory.Record) bool {
		return r.Metadata.IsBadExample
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Update rewrites the text of existing records (temporal retagging). Absent
// ids are skipped. Embeddings are not recomputed: tag-token swaps do not
// change what the record is about.
func (s *MemoryStore) Update(ctx context.Context, updated ...memory.Record) error {
	if len(updated) == 0 {
		return nil
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	s.state.Lock()
	defer s.state.Unlock()

	staged := s.snapshotRecordsLocked()
	changed := 0
	for _, rec := range updated {
		pos, ok := s.byID[rec.ID]
		if !ok {
			continue
		}
		if staged[pos].Text != rec.Text {
			staged[pos].Text = rec.Text
			staged[pos].UpdatedAt = rec.UpdatedAt
			changed++
		}
	}
	if changed == 0 {
		return nil
	}

	if err := s.persistLocked(staged); err != nil {
		return err
	}
	s.commitLocked(staged)
	return nil
}

// Restore bulk-loads records into an empty store, bypassing the quality
// gate: the records were admitted once already and are replayed as-is. The
// whole batch is staged, indexed, and persisted before the commit, so a
// failure partway leaves the store empty rather than half-filled. A positive
// version replaces the store's snapshot version.
func (s *MemoryStore) Restore(ctx context.Context, version int, records []memory.Record) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	s.state.Lock()
	defer s.state.Unlock()

	if len(s.records) != 0 {
		return fmt.Errorf("restore target must be empty, has %d records", len(s.records))
	}

	staged := make([]memory.Record, len(records))
	copy(staged, records)

	var indexed []string
	rollback := func() {
		for _, id := range indexed {
			if err := s.idx.Remove(ctx, id); err != nil {
				log.ErrorContext(ctx, "rollback of index entry failed", "id", id, "error", err)
			}
		}
	}

	for _, rec := range staged {
		if !rec.HasEmbedding() {
			continue
		}
		if len(rec.Embedding) != s.dimension {
			rollback()
			return errors.Wrap(errors.ErrDimensionMismatch,
				"record %s has embedding dimension %d, store expects %d",
				rec.ID, len(rec.Embedding), s.dimension)
		}
		if err := s.idx.Add(ctx, rec.ID, rec.Embedding); err != nil {
			rollback()
			return err
		}
		indexed = append(indexed, rec.ID)
	}

	prevVersion := s.version
	if version > 0 {
		s.version = version
	}
	if err := s.persistLocked(staged); err != nil {
		s.version = prevVersion
		rollback()
		return err
	}
	s.commitLocked(staged)

	log.InfoContext(ctx, "store restored", "records", len(staged), "indexed", len(indexed), "version", s.version)
	return s.verifyInvariantsLocked()
}

// Record returns the record with the given id.
func (s *MemoryStore) Record(id string) (memory.Record, error) {
	s.state.RLock()
	defer s.state.RUnlock()

	pos, ok := s.byID[id]
	if !ok {
		return memory.Record{}, errors.Wrap(errors.ErrNotFound, "record %q", id)
	}
	return s.records[pos], nil
}

// Records returns a copy of all active records in insertion order.
func (s *MemoryStore) Records() []memory.Record {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.snapshotRecordsLocked()
}

// ActiveCount reports the number of non-deleted records.
func (s *MemoryStore) ActiveCount() int {
	s.state.RLock()
	defer s.state.RUnlock()
	return len(s.records)
}

// IndexCount reports the number of vectors currently indexed.
func (s *MemoryStore) IndexCount() int {
	return s.idx.Count()
}

// Dimension is the store's fixed embedding dimension.
func (s *MemoryStore) Dimension() int {
	return s.dimension
}

// Version is the snapshot schema version.
func (s *MemoryStore) Version() int {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.version
}

// Stats summarizes the store.
func (s *MemoryStore) Stats() Stats {
	s.state.RLock()
	defer s.state.RUnlock()

	st := Stats{
		ActiveRecords: len(s.records),
		IndexCount:    s.idx.Count(),
		Dimension:     s.dimension,
		Version:       s.version,
	}
	for _, rec := range s.records {
		switch rec.Kind {
		case memory.KindMessage:
			st.Messages++
		case memory.KindPersonalInfo:
			st.PersonalInfo++
		}
		if rec.Metadata.IsBadExample {
			st.Quarantined++
		}
	}
	return st
}

// snapshotRecordsLocked copies the committed record slice. Callers must hold
// at least a read lock.
func (s *MemoryStore) snapshotRecordsLocked() []memory.Record {
	staged := make([]memory.Record, len(s.records))
	copy(staged, s.records)
	return staged
}

// commitLocked swaps in a staged record slice and rebuilds the id lookup.
func (s *MemoryStore) commitLocked(staged []memory.Record) {
	s.records = staged
	s.byID = make(map[string]int, len(staged))
	for i, rec := range staged {
		s.byID[rec.ID] = i
	}
}

// verifyInvariantsLocked re-asserts that the index holds exactly one vector
// per active record with a computed embedding.
func (s *MemoryStore) verifyInvariantsLocked() error {
	embedded := 0
	for _, rec := range s.records {
		if rec.HasEmbedding() {
			embedded++
		}
	}
	if got := s.idx.Count(); got != embedded {
		return fmt.Errorf("store-index invariant violated: %d indexed vectors, %d embedded records", got, embedded)
	}
	return nil
}

func assignIdentity(rec memory.Record) memory.Record {
	rec.ID = uuid.New().String()
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return rec
}
