package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/ragfuse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wikiServer serves a MediaWiki search endpoint returning titles and a summary endpoint keyed by
// the underscore form of the title.
func wikiServer(t *testing.T, titles []string, summaries map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		switch {
		case r.URL.Path == "/w/api.php":
			assert.Equal(t, "query", r.URL.Query().Get("action"))
			assert.Equal(t, "1", r.URL.Query().Get("srlimit"))
			var resp searchResponse
			for _, title := range titles {
				resp.Query.Search = append(resp.Query.Search, struct {
					Title string `json:"title"`
				}{Title: title})
			}
			_ = json.NewEncoder(w).Encode(resp)
		case strings.HasPrefix(r.URL.Path, "/api/rest_v1/page/summary/"):
			name := strings.TrimPrefix(r.URL.Path, "/api/rest_v1/page/summary/")
			extract, ok := summaries[name]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_ = json.NewEncoder(w).Encode(summaryResponse{Title: strings.ReplaceAll(name, "_", " "), Extract: extract})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestEncyclopedia_Retrieve(t *testing.T) {
	srv := wikiServer(t, []string{"Go programming"}, map[string]string{
		"Go_programming": "Go is a statically typed language.",
	})
	defer srv.Close()

	e := NewEncyclopedia(EncyclopediaConfig{BaseURL: srv.URL})
	res, err := e.Retrieve(context.Background(), "what is go")
	require.NoError(t, err)
	assert.Equal(t, models.SourceEncyclopedia, res.Source)
	assert.Equal(t, "Page: Go programming\nSummary: Go is a statically typed language.", res.Best())
}

func TestEncyclopedia_NoMatchIsEmpty(t *testing.T) {
	srv := wikiServer(t, nil, nil)
	defer srv.Close()

	e := NewEncyclopedia(EncyclopediaConfig{BaseURL: srv.URL})
	res, err := e.Retrieve(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestEncyclopedia_Truncates(t *testing.T) {
	srv := wikiServer(t, []string{"Long"}, map[string]string{"Long": strings.Repeat("x", 500)})
	defer srv.Close()

	e := NewEncyclopedia(EncyclopediaConfig{BaseURL: srv.URL, MaxChars: 40})
	res, err := e.Retrieve(context.Background(), "long")
	require.NoError(t, err)
	assert.Len(t, []rune(res.Best()), 40+len("..."))
	assert.True(t, strings.HasSuffix(res.Best(), "..."))
	assert.True(t, strings.HasPrefix(res.Best(), "Page: Long\nSummary: x"))
}

func TestEncyclopedia_MissingSummaryIsUnavailable(t *testing.T) {
	srv := wikiServer(t, []string{"Ghost"}, nil)
	defer srv.Close()

	e := NewEncyclopedia(EncyclopediaConfig{BaseURL: srv.URL})
	_, err := e.Retrieve(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSourceUnavailable))

	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusNotFound, serr.StatusCode)
}

func TestEncyclopedia_RateLimitedBacksOff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	limiter := NewRateLimiter(0, 1)
	e := NewEncyclopedia(EncyclopediaConfig{BaseURL: srv.URL, Limiter: limiter})
	_, err := e.Retrieve(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.True(t, limiter.BackingOff())
}

func TestEncyclopedia_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	e := NewEncyclopedia(EncyclopediaConfig{BaseURL: url})
	_, err := e.Retrieve(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, models.CodeSourceUnavailable, models.ErrorCode(err))
}
