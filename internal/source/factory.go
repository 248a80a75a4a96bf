package source

import (
	"context"
	"net/http"

	"github.com/hyperjump/ragfuse/internal/config"
	"github.com/hyperjump/ragfuse/internal/models"
	"go.uber.org/zap"
)

// Adapters holds one adapter per external source.
type Adapters struct {
	Encyclopedia Adapter
	WebSearch    Adapter
}

// New builds the external adapters from cfg and secrets. A source that is disabled or lacks
// credentials gets a Disabled adapter, so its slot is still tagged unavailable at fusion time.
func New(ctx context.Context, cfg config.SourcesConfig, secrets *config.Secrets, logger *zap.Logger) Adapters {
	if logger == nil {
		logger = zap.NewNop()
	}
	if secrets == nil {
		secrets = &config.Secrets{}
	}
	var out Adapters

	if cfg.Encyclopedia.EnabledOrDefault() {
		out.Encyclopedia = NewEncyclopedia(EncyclopediaConfig{
			BaseURL:    cfg.Encyclopedia.BaseURL,
			MaxChars:   cfg.Encyclopedia.MaxChars,
			HTTPClient: &http.Client{Timeout: cfg.Timeout},
		})
		logger.Info("encyclopedia source enabled", zap.String("base_url", cfg.Encyclopedia.BaseURL))
	} else {
		out.Encyclopedia = NewDisabled(models.SourceEncyclopedia, "encyclopedia lookup disabled")
		logger.Info("encyclopedia source disabled")
	}

	switch {
	case !cfg.WebSearch.EnabledOrDefault():
		out.WebSearch = NewDisabled(models.SourceWebSearch, "web search disabled")
		logger.Info("web search source disabled")
	case !secrets.WebSearchConfigured():
		out.WebSearch = NewDisabled(models.SourceWebSearch, ErrNoCredentials.Error())
		logger.Warn("web search source has no credentials, its slot will be unavailable")
	default:
		ws, err := NewWebSearch(ctx, WebSearchConfig{
			APIKey:   secrets.SearchAPIKey(),
			EngineID: secrets.GoogleCSEID,
			Endpoint: cfg.WebSearch.Endpoint,
			Results:  cfg.WebSearch.Results,
			Limiter:  NewRateLimiter(cfg.WebSearch.RequestsPerSecond, cfg.WebSearch.Burst),
		})
		if err != nil {
			out.WebSearch = NewDisabled(models.SourceWebSearch, err.Error())
			logger.Warn("web search source unavailable", zap.Error(err))
			break
		}
		out.WebSearch = ws
		logger.Info("web search source enabled", zap.Int("results", cfg.WebSearch.Results))
	}
	return out
}
