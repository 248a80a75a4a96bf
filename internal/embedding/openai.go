package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/ragfuse/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultOpenAIModel is used when no model is configured.
	DefaultOpenAIModel = string(openai.SmallEmbedding3)
	// DefaultOpenAIDimensions matches text-embedding-3-small.
	DefaultOpenAIDimensions = 1536
)

// ErrNoAPIKey is returned when an API-backed embedder has no key.
var ErrNoAPIKey = errors.New("embedding API key not set")

// OpenAIConfig configures an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // empty uses api.openai.com
	Model      string
	Dimensions int
}

// OpenAIEmbedder calls the /embeddings endpoint of an OpenAI-compatible API.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates an embedder for cfg. Returns ErrNoAPIKey when the key is empty.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultOpenAIDimensions
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in one request. Vectors are returned in input order and L2-normalized.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("create embeddings: got %d vectors for %d texts", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("create embeddings: index %d out of range", d.Index)
		}
		if len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("create embeddings: got dimension %d, expected %d", len(d.Embedding), e.dimensions)
		}
		vec := make([]float32, len(d.Embedding))
		copy(vec, d.Embedding)
		utils.NormalizeL2(vec)
		out[d.Index] = vec
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("create embeddings: missing vector for input %d", i)
		}
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// ID identifies the model and dimension.
func (e *OpenAIEmbedder) ID() string {
	return fmt.Sprintf("openai/%s/%d", e.model, e.dimensions)
}

// Close is a no-op; the HTTP client needs no teardown.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
