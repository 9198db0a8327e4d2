package types

import (
	"context"

	"github.com/xhad/docqa/internal/models"
)

// Core interfaces
type VectorStore interface {
	Upsert(ctx context.Context, records []models.VectorRecord) error
	Query(ctx context.Context, embedding []float32, topK int, documentID string) ([]models.Match, error)
	Close() error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

type AnswerGenerator interface {
	Answer(ctx context.Context, question string, fragments []string) (*models.Answer, error)
}

type Processor interface {
	Process(doc models.Document) []models.Chunk
}
