package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/ragfuse/internal/models"
	"github.com/hyperjump/ragfuse/pkg/utils"
)

const (
	// DefaultEncyclopediaURL is the MediaWiki site queried when none is configured.
	DefaultEncyclopediaURL = "https://en.wikipedia.org"
	// DefaultSummaryChars caps the summary text.
	DefaultSummaryChars = 4000

	userAgent = "ragfuse/1.0 (https://github.com/hyperjump/ragfuse)"
)

// EncyclopediaConfig configures an Encyclopedia adapter.
type EncyclopediaConfig struct {
	BaseURL    string
	MaxChars   int
	HTTPClient *http.Client
	Limiter    *RateLimiter
}

// Encyclopedia looks up the best-matching MediaWiki page for a query and returns its summary as
// "Page: <title>\nSummary: <extract>".
type Encyclopedia struct {
	baseURL  string
	maxChars int
	client   *http.Client
	limiter  *RateLimiter
}

// NewEncyclopedia creates an encyclopedia adapter; zero config fields take defaults.
func NewEncyclopedia(cfg EncyclopediaConfig) *Encyclopedia {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultEncyclopediaURL
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultSummaryChars
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(5, 5)
	}
	return &Encyclopedia{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		maxChars: cfg.MaxChars,
		client:   cfg.HTTPClient,
		limiter:  cfg.Limiter,
	}
}

// Kind returns models.SourceEncyclopedia.
func (e *Encyclopedia) Kind() models.SourceTag { return models.SourceEncyclopedia }

// Retrieve searches for the top page title and fetches its summary. No matching page yields an
// empty result, not an error.
func (e *Encyclopedia) Retrieve(ctx context.Context, query string) (*models.RetrievalResult, error) {
	title, err := e.searchTitle(ctx, query)
	if err != nil {
		return nil, models.SourceUnavailable(e.Kind(), err)
	}
	if title == "" {
		return single(e.Kind(), ""), nil
	}
	summary, err := e.summary(ctx, title)
	if err != nil {
		return nil, models.SourceUnavailable(e.Kind(), err)
	}
	if summary.Extract == "" {
		return single(e.Kind(), ""), nil
	}
	if summary.Title != "" {
		title = summary.Title
	}
	text := fmt.Sprintf("Page: %s\nSummary: %s", title, summary.Extract)
	return single(e.Kind(), utils.Truncate(text, e.maxChars)), nil
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type summaryResponse struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

func (e *Encyclopedia) searchTitle(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", "1")
	params.Set("format", "json")
	params.Set("utf8", "1")

	var resp searchResponse
	if err := e.getJSON(ctx, e.baseURL+"/w/api.php?"+params.Encode(), &resp); err != nil {
		return "", fmt.Errorf("search: %w", err)
	}
	if len(resp.Query.Search) == 0 {
		return "", nil
	}
	return resp.Query.Search[0].Title, nil
}

func (e *Encyclopedia) summary(ctx context.Context, title string) (*summaryResponse, error) {
	path := url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	var resp summaryResponse
	if err := e.getJSON(ctx, e.baseURL+"/api/rest_v1/page/summary/"+path, &resp); err != nil {
		return nil, fmt.Errorf("summary of %q: %w", title, err)
	}
	return &resp, nil
}

func (e *Encyclopedia) getJSON(ctx context.Context, u string, out any) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		serr := &StatusError{
			URL:        u,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			e.limiter.RecordRateLimitError(serr.RetryAfter)
		}
		return serr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
