// Package embedding provides text embedders (OpenAI-compatible API, ONNX, feature hashing) and caching.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// ID identifies the provider, model and dimension; vectors from different IDs are not comparable.
	ID() string
	Close() error
}
