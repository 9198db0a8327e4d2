package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const DefaultDimension = 768

// ErrEmbedding is returned when the embedding service fails or returns no vector.
var ErrEmbedding = errors.New("failed to generate embedding")

// EmbeddingClient is the part of a langchaingo model used for embeddings.
// Both *openai.LLM and *ollama.LLM satisfy it.
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

type EmbedderConfig struct {
	Provider  string // "openai" or "ollama"
	Model     string
	BaseURL   string
	APIKey    string
	Dimension int
}

type Embedder struct {
	config EmbedderConfig
	client EmbeddingClient
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Dimension <= 0 {
		config.Dimension = DefaultDimension
	}

	var (
		client EmbeddingClient
		err    error
	)

	switch config.Provider {
	case "", "openai":
		if config.Model == "" {
			config.Model = "gemini-embedding-001"
		}
		opts := []openai.Option{
			openai.WithToken(config.APIKey),
			openai.WithEmbeddingModel(config.Model),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		client, err = openai.New(opts...)
	case "ollama":
		if config.Model == "" {
			config.Model = "nomic-embed-text:latest"
		}
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
		client, err = ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return NewEmbedder(client, config.Dimension), nil
}

// NewEmbedder wraps an existing client. Vectors are resized to dimension.
func NewEmbedder(client EmbeddingClient, dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{
		config: EmbedderConfig{Dimension: dimension},
		client: client,
	}
}

func (e *Embedder) Dimension() int {
	return e.config.Dimension
}

// Embed returns the embedding of a single text, truncated or zero padded to
// the configured dimension.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.client.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", ErrEmbedding)
	}

	return Resize(embeddings[0], e.config.Dimension), nil
}

// Resize truncates v to dim values or pads it with zeros.
func Resize(v []float32, dim int) []float32 {
	out := make([]float32, dim)
	copy(out, v)
	return out
}
