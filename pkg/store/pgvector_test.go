package store

import (
	"context"
	"fmt"
	"math"
	"os"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/docqa/internal/models"
)

func TestBuildPGQuery(t *testing.T) {
	vec := pgvector.NewVector([]float32{1, 2, 3})

	query, args := buildPGQuery(`"doc_qa"`, vec, 3, "")
	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, `FROM "doc_qa"`)
	assert.Contains(t, query, "ORDER BY embedding <=> $1")
	assert.Len(t, args, 2)
	assert.Equal(t, 3, args[1])

	query, args = buildPGQuery(`"doc_qa"`, vec, 5, "abc")
	assert.Contains(t, query, "WHERE document_id = $3")
	require.Len(t, args, 3)
	assert.Equal(t, "abc", args[2])
}

func TestProbesStatement(t *testing.T) {
	assert.Equal(t, "SET LOCAL ivfflat.probes = 100", probesStatement(100))
	assert.Equal(t, "SET LOCAL ivfflat.probes = 1", probesStatement(0))
}

// Requires a PostgreSQL server with the pgvector extension.
func TestPGVectorStore(t *testing.T) {
	connString := os.Getenv("PGVECTOR_TEST_URL")
	if connString == "" {
		t.Skip("PGVECTOR_TEST_URL not set")
	}

	ctx := context.Background()
	s, err := NewPGVector(ctx, PGVectorConfig{
		ConnString: connString,
		TableName:  "test_doc_qa",
		VectorDim:  3,
		Lists:      1,
	})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.pool.Exec(ctx, `TRUNCATE test_doc_qa`)
	require.NoError(t, err)

	records := []models.VectorRecord{
		{ID: "d1_0", Values: []float32{1, 0, 0}, Metadata: models.RecordMetadata{Text: "one", Filename: "a.pdf", DocumentID: "d1"}},
		{ID: "d1_1", Values: []float32{0, 1, 0}, Metadata: models.RecordMetadata{Text: "two", Filename: "a.pdf", DocumentID: "d1", ChunkIndex: 1}},
		{ID: "d2_0", Values: []float32{1, 0, 0}, Metadata: models.RecordMetadata{Text: "three", Filename: "b.pdf", DocumentID: "d2"}},
	}
	require.NoError(t, s.Upsert(ctx, records))

	matches, err := s.Query(ctx, []float32{1, 0, 0}, 3, "d1")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "d1_0", matches[0].ID)
	assert.Equal(t, "one", matches[0].Metadata.Text)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
}

// Requires a PostgreSQL server with the pgvector extension.
func TestPGVectorStore_DocumentFilterAcrossLists(t *testing.T) {
	connString := os.Getenv("PGVECTOR_TEST_URL")
	if connString == "" {
		t.Skip("PGVECTOR_TEST_URL not set")
	}

	ctx := context.Background()
	s, err := NewPGVector(ctx, PGVectorConfig{
		ConnString: connString,
		TableName:  "test_doc_qa_lists",
		VectorDim:  3,
		Lists:      100,
	})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.pool.Exec(ctx, `TRUNCATE test_doc_qa_lists`)
	require.NoError(t, err)

	var records []models.VectorRecord
	for _, doc := range []string{"d1", "d2"} {
		for i := 0; i < 150; i++ {
			angle := float64(i) / 150 * math.Pi
			offset := 0.0
			if doc == "d2" {
				offset = 0.01
			}
			records = append(records, models.VectorRecord{
				ID:     fmt.Sprintf("%s_%d", doc, i),
				Values: []float32{float32(math.Cos(angle + offset)), float32(math.Sin(angle + offset)), 0.5},
				Metadata: models.RecordMetadata{
					Text:       fmt.Sprintf("%s chunk %d", doc, i),
					DocumentID: doc,
					ChunkIndex: i,
				},
			})
		}
	}
	require.NoError(t, s.Upsert(ctx, records))

	// Rebuild so the lists are trained on the stored vectors.
	_, err = s.pool.Exec(ctx, `REINDEX INDEX test_doc_qa_lists_embedding_idx`)
	require.NoError(t, err)

	matches, err := s.Query(ctx, []float32{-1, 0, 0.5}, 3, "d1")
	require.NoError(t, err)
	require.Len(t, matches, 3)
	for _, m := range matches {
		assert.Equal(t, "d1", m.Metadata.DocumentID)
	}
}
