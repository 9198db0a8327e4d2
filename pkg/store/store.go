// Package store holds the vector index backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xhad/docqa/internal/types"
	"github.com/xhad/docqa/pkg/logger"
)

// ErrDimensionMismatch is returned when a vector does not match the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

type Config struct {
	Provider   string // pgvector, qdrant, sqlite or memory
	URL        string
	APIKey     string
	TableName  string
	Collection string
	Path       string
	Dimension  int
	Logger     *slog.Logger
}

// New opens the backend named by config.Provider.
func New(ctx context.Context, config Config) (types.VectorStore, error) {
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}

	var (
		vs  types.VectorStore
		err error
	)

	switch config.Provider {
	case "", "pgvector":
		vs, err = openPGVector(ctx, config)
	case "qdrant":
		vs, err = openQdrant(ctx, config)
	case "sqlite":
		vs, err = openSQLiteVec(config)
	case "memory":
		vs, err = openMemory(config)
	default:
		return nil, fmt.Errorf("unknown vector store provider %q", config.Provider)
	}
	if err != nil {
		return nil, err
	}
	return vs, nil
}

func openPGVector(ctx context.Context, config Config) (types.VectorStore, error) {
	s, err := NewPGVector(ctx, PGVectorConfig{
		ConnString: config.URL,
		TableName:  config.TableName,
		VectorDim:  config.Dimension,
		Logger:     config.Logger,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openQdrant(ctx context.Context, config Config) (types.VectorStore, error) {
	s, err := NewQdrant(ctx, QdrantConfig{
		Addr:       config.URL,
		APIKey:     config.APIKey,
		Collection: config.Collection,
		VectorDim:  config.Dimension,
		Logger:     config.Logger,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openSQLiteVec(config Config) (types.VectorStore, error) {
	s, err := NewSQLiteVec(SQLiteVecConfig{
		DBPath:    config.Path,
		VectorDim: config.Dimension,
		Logger:    config.Logger,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openMemory(config Config) (types.VectorStore, error) {
	s, err := NewMemory(config.Dimension)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func checkDimension(values []float32, dim int) error {
	if len(values) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(values), dim)
	}
	return nil
}
