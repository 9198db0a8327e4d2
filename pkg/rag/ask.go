package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/xhad/docqa/internal/models"
)

// Ask answers question from the chunks nearest to it, optionally restricted
// to one document.
func (s *Service) Ask(ctx context.Context, question, documentID string) (*models.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrQuestionRequired
	}

	s.logger.Info("asking", "question", question, "document_id", documentID)

	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, &embeddingError{cause: err}
	}

	matches, err := s.store.Query(ctx, embedding, s.config.TopK, documentID)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	fragments := make([]string, 0, len(matches))
	for _, m := range matches {
		fragments = append(fragments, m.Metadata.Text)
	}

	s.logger.Debug("retrieved fragments", "count", len(fragments))

	return s.generator.Answer(ctx, question, fragments)
}
