package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/ragfuse/pkg/utils"
)

// HashEmbedder embeds text by feature hashing its words into a fixed number of buckets.
// It needs no model or network, so it backs tests and serves as the fallback when no provider is
// configured. Texts sharing words end up close under cosine distance.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a hashing embedder of the given dimension (default 384).
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns the L2-normalized bag-of-words vector of text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	for _, w := range Words(text) {
		h := HashString(w)
		sign := float32(1)
		if h&1 == 1 {
			sign = -1
		}
		emb[(h>>1)%e.dimensions] += sign
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// ID identifies the hashing scheme and dimension.
func (e *HashEmbedder) ID() string {
	return fmt.Sprintf("hash/words-fnv32a/%d", e.dimensions)
}

// Close is a no-op for HashEmbedder.
func (e *HashEmbedder) Close() error {
	return nil
}
