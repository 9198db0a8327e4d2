package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/docqa/internal/models"
	"github.com/xhad/docqa/pkg/store"
)

func newSQLiteVec(t *testing.T) *store.SQLiteVecStore {
	t.Helper()
	s, err := store.NewSQLiteVec(store.SQLiteVecConfig{
		DBPath:    ":memory:",
		VectorDim: 4,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewSQLiteVec_Errors(t *testing.T) {
	_, err := store.NewSQLiteVec(store.SQLiteVecConfig{VectorDim: 4})
	assert.ErrorContains(t, err, "database path is required")

	_, err = store.NewSQLiteVec(store.SQLiteVecConfig{DBPath: ":memory:"})
	assert.Error(t, err)
}

func TestSQLiteVec_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteVec(t)

	require.NoError(t, s.Upsert(ctx, nil))
	require.NoError(t, s.Upsert(ctx, []models.VectorRecord{
		record("doc", 0, "first", 1, 0, 0, 0),
		record("doc", 1, "second", 0, 1, 0, 0),
		record("other", 0, "third", 0.9, 0.1, 0, 0),
	}))

	matches, err := s.Query(ctx, []float32{1, 0, 0, 0}, 2, "")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "doc_0", matches[0].ID)
	assert.Equal(t, "first", matches[0].Metadata.Text)
	assert.Equal(t, "doc.pdf", matches[0].Metadata.Filename)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
	assert.Equal(t, "other_0", matches[1].ID)
}

func TestSQLiteVec_DocumentFilter(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteVec(t)

	require.NoError(t, s.Upsert(ctx, []models.VectorRecord{
		record("doc", 0, "first", 1, 0, 0, 0),
		record("other", 0, "third", 1, 0, 0, 0),
	}))

	matches, err := s.Query(ctx, []float32{1, 0, 0, 0}, 3, "other")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "other", matches[0].Metadata.DocumentID)
}

func TestSQLiteVec_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteVec(t)

	require.NoError(t, s.Upsert(ctx, []models.VectorRecord{record("doc", 0, "old", 1, 0, 0, 0)}))
	require.NoError(t, s.Upsert(ctx, []models.VectorRecord{record("doc", 0, "new", 0, 0, 1, 0)}))

	matches, err := s.Query(ctx, []float32{0, 0, 1, 0}, 5, "")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Metadata.Text)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
}

func TestSQLiteVec_DimensionMismatch(t *testing.T) {
	s := newSQLiteVec(t)

	err := s.Upsert(context.Background(), []models.VectorRecord{record("doc", 0, "bad", 1, 0)})
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)
}
