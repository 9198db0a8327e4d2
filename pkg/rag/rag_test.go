package rag_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/docqa/internal/models"
	"github.com/xhad/docqa/pkg/llm"
	"github.com/xhad/docqa/pkg/processor"
	"github.com/xhad/docqa/pkg/rag"
	"github.com/xhad/docqa/pkg/store"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	fail  func(text string) bool
	calls []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()

	if f.fail != nil && f.fail(text) {
		return nil, errors.New("quota exceeded")
	}
	return []float32{float32(len(text)), 1}, nil
}

func (f *fakeEmbedder) Dimension() int { return 2 }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeStore struct {
	batches  [][]models.VectorRecord
	matches  []models.Match
	err      error
	queries  int
	lastTopK int
	lastDoc  string
}

func (f *fakeStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	f.batches = append(f.batches, records)
	return f.err
}

func (f *fakeStore) Query(ctx context.Context, embedding []float32, topK int, documentID string) ([]models.Match, error) {
	f.queries++
	f.lastTopK = topK
	f.lastDoc = documentID
	return f.matches, f.err
}

func (f *fakeStore) Close() error { return nil }

type fakeModel struct {
	calls  int
	prompt string
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	f.prompt = messages[len(messages)-1].Parts[0].(llms.TextContent).Text
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "generated"}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

type fixture struct {
	service  *rag.Service
	embedder *fakeEmbedder
	store    *fakeStore
	model    *fakeModel
}

func newFixture(t *testing.T, config rag.Config, chunkSize int) *fixture {
	t.Helper()
	p, err := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: chunkSize, ChunkOverlap: 0})
	require.NoError(t, err)

	f := &fixture{
		embedder: &fakeEmbedder{},
		store:    &fakeStore{},
		model:    &fakeModel{},
	}
	engine, err := llm.NewWithModel(f.model, llm.ChatConfig{Temperature: 0.5})
	require.NoError(t, err)

	f.service = rag.New(config, p, f.embedder, f.store, engine, nil)
	return f
}

func TestIngest_RecordsAndBatches(t *testing.T) {
	f := newFixture(t, rag.Config{}, 1)
	text := strings.Repeat("x", 120)

	result, err := f.service.Ingest(context.Background(), models.Document{
		ID:       "doc",
		Filename: "paper.pdf",
		Text:     text,
	})
	require.NoError(t, err)

	assert.Equal(t, "doc", result.DocumentID)
	assert.Equal(t, 120, result.Chunks)
	assert.Equal(t, 120, result.Embedded)
	assert.Equal(t, 3, result.Batches)

	require.Len(t, f.store.batches, 3)
	assert.Len(t, f.store.batches[0], 50)
	assert.Len(t, f.store.batches[1], 50)
	assert.Len(t, f.store.batches[2], 20)

	first := f.store.batches[0][0]
	assert.Equal(t, "doc_0", first.ID)
	assert.Equal(t, "x", first.Metadata.Text)
	assert.Equal(t, "paper.pdf", first.Metadata.Filename)
	assert.Equal(t, "doc", first.Metadata.DocumentID)
	assert.Equal(t, "doc_119", f.store.batches[2][19].ID)
}

func TestIngest_GeneratesDocumentID(t *testing.T) {
	f := newFixture(t, rag.Config{}, 10)

	result, err := f.service.Ingest(context.Background(), models.Document{Filename: "a.pdf", Text: "hello"})
	require.NoError(t, err)
	assert.Len(t, result.DocumentID, 36)
	assert.Equal(t, result.DocumentID+"_0", f.store.batches[0][0].ID)
}

func TestIngest_SkipsFailedChunks(t *testing.T) {
	f := newFixture(t, rag.Config{}, 2)
	f.embedder.fail = func(text string) bool { return text == "cd" }

	result, err := f.service.Ingest(context.Background(), models.Document{ID: "doc", Text: "abcdef"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Chunks)
	assert.Equal(t, 2, result.Embedded)

	require.Len(t, f.store.batches, 1)
	ids := []string{f.store.batches[0][0].ID, f.store.batches[0][1].ID}
	assert.Equal(t, []string{"doc_0", "doc_2"}, ids)
}

func TestIngest_NoEmbeddingsNeverUpserts(t *testing.T) {
	f := newFixture(t, rag.Config{}, 2)
	f.embedder.fail = func(string) bool { return true }

	_, err := f.service.Ingest(context.Background(), models.Document{ID: "doc", Text: "abcdef"})
	assert.ErrorIs(t, err, rag.ErrNoEmbeddings)
	assert.Equal(t, 3, f.embedder.callCount())
	assert.Empty(t, f.store.batches)
}

func TestIngest_EmptyText(t *testing.T) {
	f := newFixture(t, rag.Config{}, 2)

	_, err := f.service.Ingest(context.Background(), models.Document{ID: "doc"})
	assert.ErrorIs(t, err, rag.ErrNoEmbeddings)
	assert.Empty(t, f.store.batches)
}

func TestIngest_StoreError(t *testing.T) {
	f := newFixture(t, rag.Config{}, 2)
	f.store.err = errors.New("index unavailable")

	_, err := f.service.Ingest(context.Background(), models.Document{ID: "doc", Text: "abcd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index unavailable")
}

func TestIngest_WorkersKeepOrder(t *testing.T) {
	var (
		mu       sync.Mutex
		progress []int
	)
	f := newFixture(t, rag.Config{
		Workers:   4,
		BatchSize: 1000,
		Progress: func(done, total int) {
			mu.Lock()
			progress = append(progress, done)
			mu.Unlock()
			assert.Equal(t, 26, total)
		},
	}, 1)

	result, err := f.service.Ingest(context.Background(), models.Document{ID: "doc", Text: "abcdefghijklmnopqrstuvwxyz"})
	require.NoError(t, err)
	assert.Equal(t, 26, result.Embedded)

	require.Len(t, f.store.batches, 1)
	for i, r := range f.store.batches[0] {
		assert.Equal(t, i, r.Metadata.ChunkIndex)
		assert.Equal(t, string(rune('a'+i)), r.Metadata.Text)
	}
	assert.Len(t, progress, 26)
}

func TestIngest_Canceled(t *testing.T) {
	f := newFixture(t, rag.Config{RateLimit: 1}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.Ingest(ctx, models.Document{ID: "doc", Text: "abc"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.store.batches)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		f := newFixture(t, rag.Config{}, 10)

		_, err := f.service.Ask(context.Background(), q, "")
		assert.ErrorIs(t, err, rag.ErrQuestionRequired)
		assert.Equal(t, 0, f.embedder.callCount())
		assert.Equal(t, 0, f.store.queries)
		assert.Equal(t, 0, f.model.calls)
	}
}

func TestAsk_NoMatches(t *testing.T) {
	f := newFixture(t, rag.Config{}, 10)

	answer, err := f.service.Ask(context.Background(), "What is it?", "doc")
	require.NoError(t, err)
	assert.Equal(t, llm.NoInformationAnswer, answer.Answer)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, 0, f.model.calls)
	assert.Equal(t, 3, f.store.lastTopK)
	assert.Equal(t, "doc", f.store.lastDoc)
}

func TestAsk_WithMatches(t *testing.T) {
	f := newFixture(t, rag.Config{}, 10)
	f.store.matches = []models.Match{
		{ID: "doc_0", Score: 0.9, Metadata: models.RecordMetadata{Text: "A"}},
		{ID: "doc_1", Score: 0.8, Metadata: models.RecordMetadata{Text: "B"}},
	}

	answer, err := f.service.Ask(context.Background(), "Which?", "")
	require.NoError(t, err)
	assert.Equal(t, "generated", answer.Answer)
	assert.Equal(t, []string{"A...", "B..."}, answer.Sources)
	assert.Equal(t, "Context:\nA\n\nB\n\nQuestion: Which?", f.model.prompt)
	assert.Equal(t, []string{"Which?"}, f.embedder.calls)
	assert.Equal(t, "", f.store.lastDoc)
}

func TestAsk_EmbeddingFailure(t *testing.T) {
	f := newFixture(t, rag.Config{}, 10)
	f.embedder.fail = func(string) bool { return true }

	_, err := f.service.Ask(context.Background(), "Which?", "")
	assert.ErrorIs(t, err, rag.ErrEmbedding)
	assert.Equal(t, 0, f.store.queries)
}

type failingClient struct{}

func (failingClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("quota exceeded")
}

func TestAsk_EmbeddingFailureMessage(t *testing.T) {
	p, err := processor.NewWithConfig(processor.DefaultConfig())
	require.NoError(t, err)
	engine, err := llm.NewWithModel(&fakeModel{}, llm.ChatConfig{})
	require.NoError(t, err)

	service := rag.New(rag.Config{}, p, llm.NewEmbedder(failingClient{}, 2), newMemory(t, 2), engine, nil)

	_, err = service.Ask(context.Background(), "Which?", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrEmbedding)
	assert.ErrorIs(t, err, llm.ErrEmbedding)
	assert.Equal(t, "Failed to generate embedding: quota exceeded", err.Error())
}

func TestAsk_WithMemoryStore(t *testing.T) {
	p, err := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 4, ChunkOverlap: 0})
	require.NoError(t, err)
	mem, err := store.NewMemory(2)
	require.NoError(t, err)
	model := &fakeModel{}
	engine, err := llm.NewWithModel(model, llm.ChatConfig{})
	require.NoError(t, err)

	service := rag.New(rag.Config{TopK: 1}, p, &fakeEmbedder{}, mem, engine, nil)

	result, err := service.Ingest(context.Background(), models.Document{ID: "doc", Filename: "a.pdf", Text: "abcdefghij"})
	require.NoError(t, err)
	assert.Equal(t, 3, mem.Len())

	answer, err := service.Ask(context.Background(), "wxyz", result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "generated", answer.Answer)
	assert.Len(t, answer.Sources, 1)
}

func newMemory(t *testing.T, dim int) *store.Memory {
	t.Helper()
	mem, err := store.NewMemory(dim)
	require.NoError(t, err)
	return mem
}
