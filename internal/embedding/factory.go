package embedding

import (
	"fmt"

	"github.com/hyperjump/ragfuse/internal/config"
	"go.uber.org/zap"
)

// New builds the embedder selected by cfg.Provider and wraps it in a query cache. When the provider
// cannot be built (no API key, no CGO, missing model file) it falls back to the hash embedder with
// a warning, so the server still starts. The fallback changes the embedder ID, which invalidates
// any cached index built with the real provider.
func New(cfg config.EmbeddingConfig, apiKey string, logger *zap.Logger) (*CachedEmbedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var inner Embedder
	var err error
	switch cfg.Provider {
	case "openai":
		inner, err = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     apiKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	case "onnx":
		inner, err = NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	case "hash":
		inner = NewHashEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		logger.Warn("embedding provider unavailable, using hash embedder",
			zap.String("provider", cfg.Provider), zap.Error(err))
		inner = NewHashEmbedder(cfg.Dimensions)
	}

	logger.Info("embedder ready", zap.String("id", inner.ID()), zap.Int("dimensions", inner.Dimensions()))
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}
