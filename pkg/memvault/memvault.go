// Package memvault is the main facade for the library. It wires a record
// store, a vector index, an embedding provider, and the ingestion quality
// gate together from configuration and exposes the high-level memory
// operations.
package memvault

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	chromemgo "github.com/philippgille/chromem-go"
	bolt "go.etcd.io/bbolt"

	"github.com/lexlapax/memvault/pkg/config"
	"github.com/lexlapax/memvault/pkg/embed"
	embedMock "github.com/lexlapax/memvault/pkg/embed/adapters/mock"
	embedOpenAI "github.com/lexlapax/memvault/pkg/embed/adapters/openai"
	"github.com/lexlapax/memvault/pkg/facts"
	factsBolt "github.com/lexlapax/memvault/pkg/facts/adapters/boltdb"
	factsSQLite "github.com/lexlapax/memvault/pkg/facts/adapters/sqlite"
	factsStatic "github.com/lexlapax/memvault/pkg/facts/adapters/static"
	"github.com/lexlapax/memvault/pkg/gate"
	"github.com/lexlapax/memvault/pkg/index"
	"github.com/lexlapax/memvault/pkg/index/adapters/chromem"
	"github.com/lexlapax/memvault/pkg/index/adapters/linear"
	"github.com/lexlapax/memvault/pkg/log"
	"github.com/lexlapax/memvault/pkg/memory"
	"github.com/lexlapax/memvault/pkg/store"
)

// embedCacheBytes bounds the in-process embedding cache.
const embedCacheBytes = 64 << 20

// Client is the implementation of the library facade. It owns the store and
// the wired backends and is safe for concurrent use.
type Client struct {
	store    *store.MemoryStore
	gate     *gate.Gate
	embedder embed.Embedder

	// closers releases backend handles on Close, in reverse order
	closers []io.Closer
}

// CleanupReport summarizes one cleanup pass over the stored records.
type CleanupReport struct {
	Evaluated   int
	Kept        int
	Quarantined int
	Deleted     int
	Retagged    int

	// Applied is false for a dry run; the counts then describe what an
	// apply pass would do
	Applied bool

	// BackupPath is the snapshot copy taken before an apply pass
	BackupPath string
}

// NewFromConfigFile loads configuration from a YAML file and builds a
// client from it.
func NewFromConfigFile(ctx context.Context, configPath string) (*Client, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return New(ctx, cfg)
}

// New builds a client from configuration: index backend, facts source,
// embedding provider, gate, and store, then loads the snapshot.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	client := &Client{}

	idx, err := client.initIndex(cfg)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize index: %w", err)
	}

	source, err := client.initFactsSource(ctx, cfg)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize facts source: %w", err)
	}

	embedder, err := initEmbedder(cfg)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	client.embedder = embedder

	client.gate = gate.NewGate(gate.Config{
		MinLength:            cfg.Gate.MinLength,
		LowValueLexicon:      gateLexicon(cfg.Gate.LowValueLexicon, gate.DefaultConfig().LowValueLexicon),
		ContradictionLexicon: gateLexicon(cfg.Gate.ContradictionLexicon, gate.DefaultConfig().ContradictionLexicon),
	}, source)

	client.store, err = store.NewMemoryStore(idx, store.Options{
		Path:        cfg.Store.Path,
		Dimension:   cfg.Index.Dimension,
		LockTimeout: time.Duration(cfg.Store.LockTimeoutSeconds) * time.Second,
		Overfetch:   cfg.Index.Overfetch,
		Gate:        client.gate,
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	if err := client.store.Load(ctx); err != nil {
		client.Close()
		return nil, err
	}

	log.InfoContext(ctx, "memvault client initialized",
		"index_type", cfg.Index.Type,
		"facts_type", cfg.Facts.Type,
		"embedding_provider", cfg.Embedding.Provider,
		"records", client.store.ActiveCount(),
	)

	return client, nil
}

func (c *Client) initIndex(cfg *config.Config) (index.Index, error) {
	switch strings.ToLower(cfg.Index.Type) {
	case "linear":
		return linear.NewLinearIndex(cfg.Index.Dimension), nil

	case "chromem", "chromemgo":
		var db *chromemgo.DB
		if path := cfg.Index.Chromem.StoragePath; path != "" {
			persistent, err := chromemgo.NewPersistentDB(path, false)
			if err != nil {
				return nil, fmt.Errorf("failed to open chromem storage at %s: %w", path, err)
			}
			db = persistent
		} else {
			db = chromemgo.NewDB()
		}
		return chromem.NewChromemIndex(db, cfg.Index.Chromem.Collection, cfg.Index.Dimension)

	default:
		return nil, fmt.Errorf("unsupported index type: %s", cfg.Index.Type)
	}
}

func (c *Client) initFactsSource(ctx context.Context, cfg *config.Config) (facts.Source, error) {
	switch strings.ToLower(cfg.Facts.Type) {
	case "", "none":
		return nil, nil

	case "static":
		entries := make([]facts.Fact, len(cfg.Facts.Static))
		for i, entry := range cfg.Facts.Static {
			entries[i] = facts.Fact{Content: entry.Content, Category: entry.Category}
		}
		return factsStatic.NewSource(entries), nil

	case "boltdb":
		db, err := bolt.Open(cfg.Facts.BoltDB.Path, 0o600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, fmt.Errorf("failed to open boltdb at %s: %w", cfg.Facts.BoltDB.Path, err)
		}
		c.closers = append(c.closers, db)
		source := factsBolt.NewBoltSource(db)
		if err := source.Initialize(ctx); err != nil {
			return nil, err
		}
		return source, nil

	case "sqlite":
		source, err := factsSQLite.Open(cfg.Facts.SQLite.DSN)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, source)
		if err := source.Initialize(ctx); err != nil {
			return nil, err
		}
		return source, nil

	default:
		return nil, fmt.Errorf("unsupported facts type: %s", cfg.Facts.Type)
	}
}

func initEmbedder(cfg *config.Config) (embed.Embedder, error) {
	var embedder embed.Embedder

	switch strings.ToLower(cfg.Embedding.Provider) {
	case "openai":
		provider, err := embedOpenAI.NewOpenAIEmbedder(embedOpenAI.Config{
			APIKey:  cfg.Embedding.OpenAI.APIKey,
			Model:   cfg.Embedding.OpenAI.Model,
			BaseURL: cfg.Embedding.OpenAI.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		embedder = provider

	case "mock":
		embedder = embedMock.NewMockEmbedder(cfg.Embedding.Mock.Dimension)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}

	if cfg.Embedding.Cache {
		cached, err := embed.NewCachedEmbedder(embedder, embedCacheBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding cache: %w", err)
		}
		embedder = cached
	}

	return embedder, nil
}

func gateLexicon(configured, fallback []string) []string {
	if len(configured) > 0 {
		return configured
	}
	return fallback
}

// Remember evaluates a conversational message against the quality gate and
// stores it on acceptance. prompt is the message this one responds to; it
// drives the near-duplicate check and may be empty. A gate refusal returns
// a *store.RejectedError.
func (c *Client) Remember(ctx context.Context, text string, meta memory.Metadata, prompt string) (string, error) {
	rec := memory.NewMessage(text, meta)
	return c.store.Insert(ctx, rec, c.embedder, gate.Context{PromptText: prompt})
}

// RememberFact stores a distilled personal-information record.
func (c *Client) RememberFact(ctx context.Context, text string) (string, error) {
	rec := memory.NewPersonalInfo(text, memory.Metadata{})
	return c.store.Insert(ctx, rec, c.embedder, gate.Context{})
}

// Search returns up to k records most similar to the query, quarantined
// records excluded.
func (c *Client) Search(ctx context.Context, query string, k int) ([]store.SearchHit, error) {
	return c.store.Search(ctx, query, k, store.ExcludeBadExamples(), c.embedder)
}

// SearchWithFilter is Search with a caller-supplied filter instead of the
// default quarantine exclusion.
func (c *Client) SearchWithFilter(ctx context.Context, query string, k int, filter store.Filter) ([]store.SearchHit, error) {
	return c.store.Search(ctx, query, k, filter, c.embedder)
}

// Cleanup re-evaluates every stored record against the quality gate. In dry
// run mode it only reports what would change; with apply it takes a
// snapshot backup, quarantines flagged records, deletes hard failures, and
// rewrites corrected temporal tags. promptFor resolves the prompt a record
// responded to and may be nil.
func (c *Client) Cleanup(ctx context.Context, apply bool, promptFor func(memory.Record) string) (CleanupReport, error) {
	records := c.store.Records()

	result, err := c.gate.EvaluateBatch(ctx, records, gate.Context{PromptFor: promptFor})
	if err != nil {
		return CleanupReport{}, err
	}

	report := CleanupReport{
		Evaluated:   len(records),
		Kept:        len(result.ToKeep),
		Quarantined: len(result.ToQuarantine),
		Deleted:     len(result.ToDelete),
		Retagged:    result.Retagged,
	}

	if !apply {
		return report, nil
	}

	if c.store.Path() != "" {
		backupPath, err := c.store.Backup()
		if err != nil {
			return CleanupReport{}, fmt.Errorf("refusing to apply cleanup without a backup: %w", err)
		}
		report.BackupPath = backupPath
	}

	if len(result.ToQuarantine) > 0 {
		ids := recordIDs(result.ToQuarantine)
		if err := c.store.Quarantine(ctx, ids...); err != nil {
			return CleanupReport{}, err
		}
	}
	if len(result.ToDelete) > 0 {
		ids := recordIDs(result.ToDelete)
		if err := c.store.Remove(ctx, ids...); err != nil {
			return CleanupReport{}, err
		}
	}
	if result.Retagged > 0 {
		if err := c.store.Update(ctx, result.ToKeep...); err != nil {
			return CleanupReport{}, err
		}
	}

	report.Applied = true
	log.InfoContext(ctx, "cleanup applied",
		"quarantined", report.Quarantined,
		"deleted", report.Deleted,
		"retagged", report.Retagged,
		"backup", report.BackupPath,
	)
	return report, nil
}

// Purge hard-deletes every quarantined record and returns how many went.
func (c *Client) Purge(ctx context.Context) (int, error) {
	return c.store.Purge(ctx)
}

// Stats summarizes the underlying store.
func (c *Client) Stats() store.Stats {
	return c.store.Stats()
}

// Store exposes the underlying record store for operational tooling.
func (c *Client) Store() *store.MemoryStore {
	return c.store
}

// Embedder exposes the wired embedding provider.
func (c *Client) Embedder() embed.Embedder {
	return c.embedder
}

// Close releases backend handles.
func (c *Client) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

func recordIDs(records []memory.Record) []string {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	return ids
}
