package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	LLM         LLMConfig         `yaml:"llm"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Processor   ProcessorConfig   `yaml:"processor"`
	Scraper     ScraperConfig     `yaml:"scraper"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Port           string        `yaml:"port"`
	UploadDir      string        `yaml:"upload_dir"`
	MaxUploadMB    int           `yaml:"max_upload_mb"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type EmbeddingConfig struct {
	Provider  string  `yaml:"provider"`
	BaseURL   string  `yaml:"base_url"`
	APIKey    string  `yaml:"api_key"`
	Model     string  `yaml:"model"`
	Dimension int     `yaml:"dimension"`
	RateLimit float64 `yaml:"rate_limit"`
	Workers   int     `yaml:"workers"`
}

type LLMConfig struct {
	Provider     string  `yaml:"provider"`
	BaseURL      string  `yaml:"base_url"`
	APIKey       string  `yaml:"api_key"`
	Model        string  `yaml:"model"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	SystemPrompt string  `yaml:"system_prompt"`
}

type VectorStoreConfig struct {
	Provider   string `yaml:"provider"`
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	TableName  string `yaml:"table_name"`
	Collection string `yaml:"collection"`
	Path       string `yaml:"path"`
	BatchSize  int    `yaml:"batch_size"`
	TopK       int    `yaml:"top_k"`
}

type ProcessorConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type ScraperConfig struct {
	MaxDepth          int           `yaml:"max_depth"`
	RateLimit         float64       `yaml:"rate_limit"`
	Timeout           time.Duration `yaml:"timeout"`
	IgnorePatterns    []string      `yaml:"ignore_patterns"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// LoadConfig reads path, or the first existing default location when path is
// empty. Missing files are not an error: defaults plus environment are used.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/docqa/config.yaml"),
			"/etc/docqa/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		// Unmarshal over the defaults so keys absent from the file keep them
		// and explicit zeros (e.g. chunk_overlap: 0) are honoured.
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	mergeWithEnv(config)

	return config, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "5000",
			UploadDir:      "uploads",
			MaxUploadMB:    50,
			RequestTimeout: 5 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			BaseURL:   "https://generativelanguage.googleapis.com/v1beta/openai/",
			Model:     "gemini-embedding-001",
			Dimension: 768,
			Workers:   1,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.3-70b-versatile",
			MaxTokens:   2000,
			Temperature: 0.5,
		},
		VectorStore: VectorStoreConfig{
			Provider:   "pgvector",
			TableName:  "doc_qa",
			Collection: "doc-qa",
			Path:       "docqa.db",
			BatchSize:  50,
			TopK:       3,
		},
		Processor: ProcessorConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		Scraper: ScraperConfig{
			MaxDepth:          0,
			RateLimit:         2.0,
			Timeout:           30 * time.Second,
			AllowedExtensions: []string{".html", ".htm", "/", ""},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func mergeWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.VectorStore.URL = dbURL
	}
	if key := firstEnv("EMBEDDING_API_KEY", "GEMINI_API_KEY"); key != "" {
		config.Embedding.APIKey = key
	}
	if baseURL := os.Getenv("EMBEDDING_BASE_URL"); baseURL != "" {
		config.Embedding.BaseURL = baseURL
	}
	if key := firstEnv("LLM_API_KEY", "GROQ_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if baseURL := os.Getenv("LLM_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if key := firstEnv("VECTOR_API_KEY", "QDRANT_API_KEY"); key != "" {
		config.VectorStore.APIKey = key
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
