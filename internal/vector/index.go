// Package vector provides nearest-neighbor indices over chunk embeddings.
package vector

import "context"

// VectorIndex stores vectors by ID and answers k-nearest queries ordered by ascending distance.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	Size() int
	Dimensions() int
	Metric() Metric
	Close() error
}

// VectorResult is a single search hit (ID is the chunk ID).
type VectorResult struct {
	ID       string
	Distance float64 // smaller is closer; see Metric for the scale
}
