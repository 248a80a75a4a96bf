package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryIndex is an exact in-memory index using brute-force distance computation.
// Results with equal distance keep insertion order.
type MemoryIndex struct {
	dimensions int
	metric     Metric
	ids        []string
	vectors    [][]float32
	positions  map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension and metric.
func NewMemoryIndex(dimensions int, metric Metric) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if metric == "" {
		metric = MetricCosine
	}
	return &MemoryIndex{
		dimensions: dimensions,
		metric:     metric,
		ids:        make([]string, 0),
		vectors:    make([][]float32, 0),
		positions:  make(map[string]int),
	}, nil
}

// Add inserts vectors with the given IDs. Re-adding an existing ID replaces its vector in place.
// Nothing is inserted if any vector has the wrong dimension.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	for i := range vectors {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		if pos, ok := m.positions[id]; ok {
			m.vectors[pos] = vec
			continue
		}
		m.positions[id] = len(m.ids)
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search returns up to k vectors nearest to query, ordered by non-decreasing distance.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	results := make([]*VectorResult, len(m.ids))
	for i, vec := range m.vectors {
		results[i] = &VectorResult{ID: m.ids[i], Distance: m.metric.Distance(query, vec)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Remove deletes vectors by ID; unknown IDs are ignored.
func (m *MemoryIndex) Remove(ctx context.Context, ids []string) error {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	newIDs := make([]string, 0, len(m.ids))
	newVectors := make([][]float32, 0, len(m.vectors))
	for i, id := range m.ids {
		if !removeSet[id] {
			newIDs = append(newIDs, id)
			newVectors = append(newVectors, m.vectors[i])
		}
	}
	m.ids = newIDs
	m.vectors = newVectors
	m.positions = make(map[string]int, len(newIDs))
	for i, id := range newIDs {
		m.positions[id] = i
	}
	return nil
}

// Vector returns a copy of the stored vector for id.
func (m *MemoryIndex) Vector(id string) ([]float32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.positions[id]
	if !ok {
		return nil, false
	}
	out := make([]float32, m.dimensions)
	copy(out, m.vectors[pos])
	return out, true
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Dimensions returns the vector dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Metric returns the distance metric.
func (m *MemoryIndex) Metric() Metric {
	return m.metric
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
