package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/ragfuse/internal/models"
	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// DefaultWebResults is the number of search results requested per query.
const DefaultWebResults = 10

// ErrNoCredentials is returned when the search API key or engine ID is missing.
var ErrNoCredentials = errors.New("web search credentials not set (GOOGLE_API_KEY and GOOGLE_CSE_ID)")

// WebSearchConfig configures a WebSearch adapter.
type WebSearchConfig struct {
	APIKey   string
	EngineID string
	// Endpoint overrides the API base URL (tests, proxies).
	Endpoint string
	Results  int
	Limiter  *RateLimiter
}

// WebSearch queries Google Programmable Search and returns the result snippets joined into one
// summary string.
type WebSearch struct {
	svc      *customsearch.Service
	engineID string
	results  int
	limiter  *RateLimiter
}

// NewWebSearch creates the adapter. Returns ErrNoCredentials if the key or engine ID is empty.
func NewWebSearch(ctx context.Context, cfg WebSearchConfig) (*WebSearch, error) {
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return nil, ErrNoCredentials
	}
	if cfg.Results <= 0 {
		cfg.Results = DefaultWebResults
	}
	// The API rejects num > 10.
	if cfg.Results > 10 {
		cfg.Results = 10
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(2, 5)
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create custom search service: %w", err)
	}
	return &WebSearch{svc: svc, engineID: cfg.EngineID, results: cfg.Results, limiter: cfg.Limiter}, nil
}

// Kind returns models.SourceWebSearch.
func (w *WebSearch) Kind() models.SourceTag { return models.SourceWebSearch }

// Retrieve runs one search. No results yields an empty result, not an error. A 429 response
// starts a backoff window on the limiter before the next call.
func (w *WebSearch) Retrieve(ctx context.Context, query string) (*models.RetrievalResult, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, models.SourceUnavailable(w.Kind(), err)
	}
	resp, err := w.svc.Cse.List().Q(query).Cx(w.engineID).Num(int64(w.results)).Context(ctx).Do()
	if err != nil {
		if IsRateLimited(err) {
			w.limiter.RecordRateLimitError(retryAfter(err))
		}
		return nil, models.SourceUnavailable(w.Kind(), err)
	}
	snippets := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if s := strings.TrimSpace(item.Snippet); s != "" {
			snippets = append(snippets, s)
		}
	}
	return single(w.Kind(), strings.Join(snippets, " ")), nil
}
