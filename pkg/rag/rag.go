// Package rag ties chunking, embedding, vector search and answer generation
// into the ingest and ask flows.
package rag

import (
	"log/slog"

	"github.com/xhad/docqa/internal/types"
	"github.com/xhad/docqa/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	DefaultBatchSize = 50
	DefaultTopK      = 3
)

type Config struct {
	BatchSize int     // records per upsert call
	TopK      int     // fragments retrieved per question
	Workers   int     // concurrent embedding calls during ingest
	RateLimit float64 // embedding requests per second, 0 for unlimited

	// Progress is called after each chunk is embedded or skipped.
	Progress func(done, total int)
}

type Service struct {
	config    Config
	processor types.Processor
	embedder  types.Embedder
	store     types.VectorStore
	generator types.AnswerGenerator
	limiter   *rate.Limiter
	logger    *slog.Logger
}

func New(config Config, processor types.Processor, embedder types.Embedder, store types.VectorStore, generator types.AnswerGenerator, log *slog.Logger) *Service {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	return &Service{
		config:    config,
		processor: processor,
		embedder:  embedder,
		store:     store,
		generator: generator,
		limiter:   limiter,
		logger:    log,
	}
}
