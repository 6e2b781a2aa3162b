package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from a byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	config := DefaultConfig()

	err := yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvironmentOverrides(config)

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func applyEnvironmentOverrides(config *Config) {
	// Snapshot path override
	if path := os.Getenv("MEMVAULT_STORE_PATH"); path != "" {
		config.Store.Path = path
	}

	// Index backend override
	if backend := os.Getenv("MEMVAULT_INDEX_TYPE"); backend != "" {
		config.Index.Type = backend
	}

	// Chromem storage path override
	if path := os.Getenv("MEMVAULT_CHROMEM_PATH"); path != "" {
		config.Index.Chromem.StoragePath = path
	}

	// Facts backend override
	if backend := os.Getenv("MEMVAULT_FACTS_TYPE"); backend != "" {
		config.Facts.Type = backend
	}

	// SQLite facts DSN override
	if dsn := os.Getenv("MEMVAULT_FACTS_SQLITE_DSN"); dsn != "" {
		config.Facts.SQLite.DSN = dsn
	}

	// OpenAI API key override
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Embedding.OpenAI.APIKey = apiKey
	}

	// Log level override
	if level := os.Getenv("MEMVAULT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	// Validate index configuration
	if config.Index.Dimension <= 0 {
		return fmt.Errorf("index dimension must be positive")
	}
	switch strings.ToLower(config.Index.Type) {
	case "linear":
		// Linear index needs no additional settings
	case "chromem", "chromemgo":
		if config.Index.Chromem.Collection == "" {
			// Apply default collection name
			config.Index.Chromem.Collection = "memvault"
		}
	default:
		return fmt.Errorf("unsupported index type: %s", config.Index.Type)
	}
	if config.Index.Overfetch <= 0 {
		config.Index.Overfetch = 3
	}

	// Validate facts configuration
	switch strings.ToLower(config.Facts.Type) {
	case "", "none", "static":
		// No external storage to validate
	case "boltdb":
		if config.Facts.BoltDB.Path == "" {
			return fmt.Errorf("boltdb path is required for boltdb facts type")
		}
	case "sqlite":
		if config.Facts.SQLite.DSN == "" {
			return fmt.Errorf("sqlite DSN is required for sqlite facts type")
		}
	default:
		return fmt.Errorf("unsupported facts type: %s", config.Facts.Type)
	}

	// Validate embedding configuration
	switch strings.ToLower(config.Embedding.Provider) {
	case "openai":
		// API key can be provided via environment variable, so we don't
		// explicitly check for it here
		if config.Embedding.OpenAI.Model == "" {
			// Apply default
			config.Embedding.OpenAI.Model = "text-embedding-ada-002"
		}
	case "mock":
		if config.Embedding.Mock.Dimension <= 0 {
			config.Embedding.Mock.Dimension = config.Index.Dimension
		}
	default:
		return fmt.Errorf("unsupported embedding provider: %s", config.Embedding.Provider)
	}

	// Validate store configuration (apply defaults if needed)
	if config.Store.LockTimeoutSeconds <= 0 {
		config.Store.LockTimeoutSeconds = 5
	}

	if config.Gate.MinLength <= 0 {
		config.Gate.MinLength = 10
	}

	return nil
}
