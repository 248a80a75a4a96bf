package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperjump/ragfuse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWebSearch(t *testing.T, handler http.HandlerFunc, limiter *RateLimiter) *WebSearch {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ws, err := NewWebSearch(context.Background(), WebSearchConfig{
		APIKey:   "test-key",
		EngineID: "engine",
		Endpoint: srv.URL + "/",
		Results:  3,
		Limiter:  limiter,
	})
	require.NoError(t, err)
	return ws
}

func TestWebSearch_JoinsSnippets(t *testing.T) {
	ws := newTestWebSearch(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/customsearch/v1", r.URL.Path)
		assert.Equal(t, "golang channels", q.Get("q"))
		assert.Equal(t, "engine", q.Get("cx"))
		assert.Equal(t, "3", q.Get("num"))
		assert.Equal(t, "test-key", q.Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"snippet":"Channels connect goroutines."},{"snippet":"  "},{"snippet":"Use select."}]}`))
	}, nil)

	res, err := ws.Retrieve(context.Background(), "golang channels")
	require.NoError(t, err)
	assert.Equal(t, models.SourceWebSearch, res.Source)
	assert.Equal(t, "Channels connect goroutines. Use select.", res.Best())
}

func TestWebSearch_NoItemsIsEmpty(t *testing.T) {
	ws := newTestWebSearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}, nil)

	res, err := ws.Retrieve(context.Background(), "nothing")
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestWebSearch_RateLimited(t *testing.T) {
	limiter := NewRateLimiter(0, 1)
	ws := newTestWebSearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota"}}`))
	}, limiter)

	_, err := ws.Retrieve(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSourceUnavailable))
	assert.True(t, IsRateLimited(err))
	assert.True(t, limiter.BackingOff())
}

func TestNewWebSearch_RequiresCredentials(t *testing.T) {
	_, err := NewWebSearch(context.Background(), WebSearchConfig{APIKey: "k"})
	assert.ErrorIs(t, err, ErrNoCredentials)
}
