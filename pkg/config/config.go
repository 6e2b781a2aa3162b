package config

// Config represents the top-level configuration for the memvault library.
type Config struct {
	// Store configures the record store and its snapshot persistence
	Store StoreConfig `yaml:"store"`

	// Index configures the vector index backend
	Index IndexConfig `yaml:"index"`

	// Gate configures the ingestion quality gate
	Gate GateConfig `yaml:"gate"`

	// Facts configures the known-facts source for the contradiction check
	Facts FactsConfig `yaml:"facts"`

	// Embedding configures the embedding provider
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Logging configures the logging behavior
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the record store.
type StoreConfig struct {
	// Path is the snapshot file location; empty keeps the store in memory
	Path string `yaml:"path"`

	// LockTimeoutSeconds bounds how long mutating calls wait for the
	// write lock before failing busy
	LockTimeoutSeconds int `yaml:"lock_timeout_seconds"`
}

// IndexConfig configures the vector index backend.
type IndexConfig struct {
	// Type specifies the index backend ("linear", "chromem")
	Type string `yaml:"type"`

	// Dimension is the fixed embedding dimension for the index
	Dimension int `yaml:"dimension"`

	// Overfetch multiplies k on index queries to survive post-filtering
	Overfetch int `yaml:"overfetch"`

	// Chromem configures the chromem-go backend
	Chromem ChromemConfig `yaml:"chromem"`
}

// ChromemConfig configures the chromem-go index backend.
type ChromemConfig struct {
	// Collection is the collection name to use
	Collection string `yaml:"collection"`

	// StoragePath is the path for on-disk persistent storage (if empty, in-memory is used)
	StoragePath string `yaml:"storage_path"`
}

// GateConfig configures the ingestion quality gate.
type GateConfig struct {
	// MinLength is the minimum trimmed text length for a candidate
	MinLength int `yaml:"min_length"`

	// LowValueLexicon lists texts rejected on exact match; empty uses the
	// built-in defaults
	LowValueLexicon []string `yaml:"low_value_lexicon"`

	// ContradictionLexicon lists contradiction trigger phrases; empty uses
	// the built-in defaults
	ContradictionLexicon []string `yaml:"contradiction_lexicon"`
}

// FactsConfig configures the known-facts source.
type FactsConfig struct {
	// Type specifies the facts backend ("none", "static", "boltdb", "sqlite")
	Type string `yaml:"type"`

	// Static lists reference facts inline for the static backend
	Static []StaticFact `yaml:"static"`

	// BoltDB configures the BoltDB facts backend
	BoltDB BoltDBConfig `yaml:"boltdb"`

	// SQLite configures the SQLite facts backend
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// StaticFact is one inline reference fact.
type StaticFact struct {
	// Content is the fact text
	Content string `yaml:"content"`

	// Category groups related facts (optional)
	Category string `yaml:"category"`
}

// BoltDBConfig configures BoltDB-backed facts storage.
type BoltDBConfig struct {
	// Path is the database file location
	Path string `yaml:"path"`
}

// SQLiteConfig configures SQLite-backed facts storage.
type SQLiteConfig struct {
	// DSN is the data source name (file path or connection string)
	DSN string `yaml:"dsn"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is the embedding provider ("openai", "mock")
	Provider string `yaml:"provider"`

	// Cache enables an in-process embedding cache in front of the provider
	Cache bool `yaml:"cache"`

	// OpenAI configures OpenAI integration
	OpenAI OpenAIConfig `yaml:"openai"`

	// Mock configures the deterministic mock provider
	Mock MockConfig `yaml:"mock"`
}

// OpenAIConfig configures OpenAI integration.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key
	APIKey string `yaml:"api_key"`

	// Model is the model to use for generating embeddings
	Model string `yaml:"model"`

	// BaseURL overrides the API endpoint (optional)
	BaseURL string `yaml:"base_url"`
}

// MockConfig configures the deterministic mock embedding provider.
type MockConfig struct {
	// Dimension is the vector dimension the mock produces
	Dimension int `yaml:"dimension"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level is the logging level ("debug", "info", "warn", "error")
	Level string `yaml:"level"`
}

// DefaultConfig returns a configuration with sensible local defaults: a
// linear index, the mock embedding provider, and no facts source.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			LockTimeoutSeconds: 5,
		},
		Index: IndexConfig{
			Type:      "linear",
			Dimension: 1536,
			Overfetch: 3,
		},
		Gate: GateConfig{
			MinLength: 10,
		},
		Facts: FactsConfig{
			Type: "none",
		},
		Embedding: EmbeddingConfig{
			Provider: "mock",
			Mock:     MockConfig{Dimension: 1536},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
