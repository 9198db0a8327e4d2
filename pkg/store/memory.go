package store

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/xhad/docqa/internal/models"
)

// Memory is an in-process vector store using brute-force cosine similarity.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	index     map[string]int
	records   []models.VectorRecord
	mags      []float64
}

func NewMemory(dimension int) (*Memory, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	return &Memory{
		dimension: dimension,
		index:     make(map[string]int),
	}, nil
}

// Upsert stores records, replacing any record with the same id.
func (m *Memory) Upsert(ctx context.Context, records []models.VectorRecord) error {
	for _, r := range records {
		if err := checkDimension(r.Values, m.dimension); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		r.Values = append([]float32(nil), r.Values...)
		if i, ok := m.index[r.ID]; ok {
			m.records[i] = r
			m.mags[i] = magnitude(r.Values)
			continue
		}
		m.index[r.ID] = len(m.records)
		m.records = append(m.records, r)
		m.mags = append(m.mags, magnitude(r.Values))
	}
	return nil
}

func (m *Memory) Query(ctx context.Context, embedding []float32, topK int, documentID string) ([]models.Match, error) {
	if err := checkDimension(embedding, m.dimension); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	qm := magnitude(embedding)
	if qm == 0 {
		return nil, nil
	}

	matches := make([]models.Match, 0, len(m.records))
	for i, r := range m.records {
		if documentID != "" && r.Metadata.DocumentID != documentID {
			continue
		}
		if m.mags[i] == 0 {
			continue
		}
		score := dot(embedding, r.Values) / (qm * m.mags[i])
		if math.IsNaN(score) {
			continue
		}
		matches = append(matches, models.Match{
			ID:       r.ID,
			Score:    float32(score),
			Metadata: r.Metadata,
		})
	}

	sort.SliceStable(matches, func(a, b int) bool { return matches[a].Score > matches[b].Score })
	if topK > 0 && topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// Len reports the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *Memory) Close() error {
	return nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func magnitude(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}
