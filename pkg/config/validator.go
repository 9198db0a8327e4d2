package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	embeddingProviders   = []string{"openai", "ollama"}
	llmProviders         = []string{"openai", "ollama"}
	vectorStoreProviders = []string{"pgvector", "qdrant", "sqlite", "memory"}
)

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate server config
	if c.Server.Port == "" {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port is required",
		})
	}

	if c.Server.MaxUploadMB < 1 {
		errors = append(errors, ValidationError{
			Field:   "server.max_upload_mb",
			Message: "max_upload_mb must be positive",
		})
	}

	// Validate embedding config
	if !oneOf(c.Embedding.Provider, embeddingProviders) {
		errors = append(errors, ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("provider must be one of %s", strings.Join(embeddingProviders, ", ")),
		})
	}

	if !validURL(c.Embedding.BaseURL) {
		errors = append(errors, ValidationError{
			Field:   "embedding.base_url",
			Message: "invalid embedding base URL",
		})
	}

	if c.Embedding.Dimension < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.dimension",
			Message: "dimension must be positive",
		})
	}

	if c.Embedding.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.rate_limit",
			Message: "rate_limit must not be negative",
		})
	}

	if c.Embedding.Workers < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.workers",
			Message: "workers must be positive",
		})
	}

	// Validate LLM config
	if !oneOf(c.LLM.Provider, llmProviders) {
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("provider must be one of %s", strings.Join(llmProviders, ", ")),
		})
	}

	if !validURL(c.LLM.BaseURL) {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid completion base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 32768 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 32768",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate vector store config
	if !oneOf(c.VectorStore.Provider, vectorStoreProviders) {
		errors = append(errors, ValidationError{
			Field:   "vector_store.provider",
			Message: fmt.Sprintf("provider must be one of %s", strings.Join(vectorStoreProviders, ", ")),
		})
	}

	switch c.VectorStore.Provider {
	case "pgvector":
		if c.VectorStore.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "vector_store.url",
				Message: "database URL is required for pgvector",
			})
		} else if !validURL(c.VectorStore.URL) {
			errors = append(errors, ValidationError{
				Field:   "vector_store.url",
				Message: "invalid database URL",
			})
		}
	case "qdrant":
		if c.VectorStore.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "vector_store.url",
				Message: "qdrant address is required",
			})
		}
	case "sqlite":
		if c.VectorStore.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "vector_store.path",
				Message: "database path is required for sqlite",
			})
		}
	}

	if c.VectorStore.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "vector_store.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.VectorStore.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "vector_store.top_k",
			Message: "top_k must be positive",
		})
	}

	// Validate processor config
	if c.Processor.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	// Validate scraper config
	if c.Scraper.MaxDepth < 0 {
		errors = append(errors, ValidationError{
			Field:   "scraper.max_depth",
			Message: "max_depth must not be negative",
		})
	}

	if c.Scraper.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scraper.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	for _, ext := range c.Scraper.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") && ext != "" && ext != "/" {
			errors = append(errors, ValidationError{
				Field:   "scraper.allowed_extensions",
				Message: fmt.Sprintf("invalid extension format: %s", ext),
			})
		}
	}

	return errors
}

// Err joins validation errors into a single error, or returns nil.
func (c *Config) Err() error {
	errs := c.Validate()
	if len(errs) == 0 {
		return nil
	}

	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func validURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func oneOf(v string, options []string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
