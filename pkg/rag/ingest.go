package rag

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/xhad/docqa/internal/models"
	"golang.org/x/sync/errgroup"
)

// Ingest chunks doc, embeds every chunk and upserts the vectors in batches.
// A chunk whose embedding fails is logged and skipped. If no chunk could be
// embedded the store is never called and ErrNoEmbeddings is returned.
func (s *Service) Ingest(ctx context.Context, doc models.Document) (*models.IngestResult, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	chunks := s.processor.Process(doc)
	s.logger.Info("processing document", "filename", doc.Filename, "document_id", doc.ID, "chunks", len(chunks))

	records, err := s.embedChunks(ctx, doc, chunks)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoEmbeddings
	}

	s.logger.Info("ready to upload vectors", "count", len(records))

	batches := 0
	for i := 0; i < len(records); i += s.config.BatchSize {
		end := i + s.config.BatchSize
		if end > len(records) {
			end = len(records)
		}
		batches++

		s.logger.Debug("uploading batch", "batch", batches, "records", end-i)
		if err := s.store.Upsert(ctx, records[i:end]); err != nil {
			return nil, fmt.Errorf("failed to upload batch %d: %w", batches, err)
		}
	}

	s.logger.Info("document ingested", "document_id", doc.ID, "embedded", len(records), "batches", batches)

	return &models.IngestResult{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Chunks:     len(chunks),
		Embedded:   len(records),
		Batches:    batches,
	}, nil
}

// embedChunks embeds chunks with at most Workers calls in flight and returns
// the records in chunk order. Only context errors abort the run.
func (s *Service) embedChunks(ctx context.Context, doc models.Document, chunks []models.Chunk) ([]models.VectorRecord, error) {
	slots := make([]*models.VectorRecord, len(chunks))

	var (
		mu   sync.Mutex
		done int
	)
	progress := func() {
		if s.config.Progress == nil {
			return
		}
		mu.Lock()
		done++
		n := done
		mu.Unlock()
		s.config.Progress(n, len(chunks))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	for i, chunk := range chunks {
		g.Go(func() error {
			if s.limiter != nil {
				if err := s.limiter.Wait(gctx); err != nil {
					return err
				}
			}

			values, err := s.embedder.Embed(gctx, chunk.Text)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("error embedding chunk", "chunk", chunk.Index, "error", err)
				progress()
				return nil
			}

			slots[i] = &models.VectorRecord{
				ID:     fmt.Sprintf("%s_%d", doc.ID, chunk.Index),
				Values: values,
				Metadata: models.RecordMetadata{
					Text:       chunk.Text,
					Filename:   doc.Filename,
					DocumentID: doc.ID,
					ChunkIndex: chunk.Index,
				},
			}
			progress()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]models.VectorRecord, 0, len(chunks))
	for _, r := range slots {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records, nil
}
