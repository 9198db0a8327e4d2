package rag

import (
	"errors"
	"strings"

	"github.com/xhad/docqa/pkg/llm"
)

var (
	// ErrQuestionRequired is returned for an empty or blank question.
	ErrQuestionRequired = errors.New("Question is required")

	// ErrNoFile is returned when an upload carries no file.
	ErrNoFile = errors.New("No file uploaded")

	// ErrEmbedding wraps a failed embedding of the question.
	ErrEmbedding = errors.New("Failed to generate embedding")

	// ErrNoEmbeddings is returned when no chunk of a document could be embedded.
	ErrNoEmbeddings = errors.New("No embeddings generated. Check your API Key.")
)

// embeddingError matches both ErrEmbedding and the cause. Its message carries
// the cause once, without the embedder's own prefix.
type embeddingError struct {
	cause error
}

func (e *embeddingError) Error() string {
	msg := strings.TrimPrefix(e.cause.Error(), llm.ErrEmbedding.Error()+": ")
	return ErrEmbedding.Error() + ": " + msg
}

func (e *embeddingError) Unwrap() []error {
	return []error{ErrEmbedding, e.cause}
}
