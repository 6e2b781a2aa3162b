package openai

import (
	"context"
	"errors"

	"github.com/lexlapax/memvault/pkg/embed"
	"github.com/lexlapax/memvault/pkg/log"
	"github.com/sashabaranov/go-openai"
)

var (
	// ErrEmptyAPIKey is returned when the API key is missing.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
)

// Config holds the configuration for the OpenAI embedding adapter.
type Config struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the model to use for embeddings, e.g., "text-embedding-ada-002".
	Model string
	// BaseURL is the base URL for the OpenAI API (for testing).
	BaseURL string
}

// OpenAIEmbedder implements the embed.Embedder interface using the OpenAI API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

var _ embed.Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates a new OpenAI embedding adapter.
func NewOpenAIEmbedder(config Config) (*OpenAIEmbedder, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	if config.Model == "" {
		config.Model = "text-embedding-ada-002"
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		model:  config.Model,
	}, nil
}

// Embed generates the embedding for a single text.
func (a *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for the given texts in one API call.
func (a *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	log.DebugContext(ctx, "Generating embeddings", "count", len(texts), "model", a.model)

	request := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(a.model),
	}

	response, err := a.client.CreateEmbeddings(ctx, request)
	if err != nil {
		log.ErrorContext(ctx, "Failed to generate embeddings", "error", err)
		return nil, err
	}

	embeddings := make([][]float32, len(response.Data))
	for i, data := range response.Data {
		embeddings[i] = data.Embedding
	}

	return embeddings, nil
}
