package generation

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

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatServer(t *testing.T, status int, reply string, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"choices": []map[string]interface{}{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatGenerator_Complete(t *testing.T) {
	var seen chatRequest
	srv := chatServer(t, http.StatusOK, "an answer", &seen)
	g := NewChatGenerator(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "test-model"})

	out, err := g.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, "an answer", out)
	assert.Equal(t, "test-model", seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "sys", seen.Messages[0].Content)
	assert.Equal(t, "user", seen.Messages[1].Role)
	assert.Equal(t, "usr", seen.Messages[1].Content)
}

func TestChatGenerator_RateLimited(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, "", nil)
	g := NewChatGenerator(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1"})

	_, err := g.Complete(context.Background(), "sys", "usr")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrGeneration))
	assert.True(t, IsRateLimited(err))
}

func TestChatGenerator_EmptyReply(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "", nil)
	g := NewChatGenerator(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1"})

	_, err := g.Complete(context.Background(), "sys", "usr")
	assert.True(t, errors.Is(err, models.ErrGeneration))
	assert.False(t, IsRateLimited(err))
}

func TestChatGenerator_NoKey(t *testing.T) {
	g := NewChatGenerator(Config{})
	assert.Equal(t, DefaultModel, g.Model())

	_, err := g.Complete(context.Background(), "sys", "usr")
	assert.True(t, errors.Is(err, models.ErrGeneration))
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

type recordingGenerator struct {
	system, user string
}

func (r *recordingGenerator) Complete(_ context.Context, system, user string) (string, error) {
	r.system, r.user = system, user
	return "ok", nil
}

func TestAnswer_RendersPrompt(t *testing.T) {
	rec := &recordingGenerator{}
	out, err := Answer(context.Background(), rec, fullContext())
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, SystemPrompt, rec.system)
	assert.Contains(t, rec.user, "Question: What is a goroutine?")
}
