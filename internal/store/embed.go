package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyText indicates text that cannot be embedded.
var ErrEmptyText = errors.New("empty text")

// Embedder turns text into a vector. Implementations must reject empty
// input so the tool layer can surface it as a typed embedding failure.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedderConfig configures the OpenAI-compatible embedding client. It
// works against both the OpenAI API and local TEI-style servers.
type EmbedderConfig struct {
	// BaseURL is the API base, e.g. http://localhost:8080/v1.
	BaseURL string

	// Model is the embedding model, e.g. BAAI/bge-small-en-v1.5.
	Model string

	// APIKey is required for OpenAI, optional for local servers.
	APIKey string
}

// Validate checks the embedder configuration.
func (c EmbedderConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("embedder base URL required")
	}
	if c.Model == "" {
		return errors.New("embedder model required")
	}
	return nil
}

// OpenAIEmbedder embeds text through langchaingo's OpenAI-compatible client.
type OpenAIEmbedder struct {
	embedder *embeddings.EmbedderImpl
}

// NewOpenAIEmbedder creates an embedder from config.
func NewOpenAIEmbedder(cfg EmbedderConfig) (*OpenAIEmbedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating embedder config: %w", err)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token even for keyless local servers.
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &OpenAIEmbedder{embedder: embedder}, nil
}

// Embed generates a vector for one text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vec, nil
}
