package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func embeddingsServer(t *testing.T, dims int, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(req.Input))
		// Reply in reverse order to check that vectors are placed by index.
		for i := range req.Input {
			pos := len(req.Input) - 1 - i
			vec := make([]float32, dims)
			vec[pos%dims] = float32(pos + 1)
			data[i] = item{Object: "embedding", Embedding: vec, Index: pos}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"data":   data,
			"model":  req.Model,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	srv := embeddingsServer(t, 4, http.StatusOK)
	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1", Model: "test-model", Dimensions: 4})
	if err != nil {
		t.Fatal(err)
	}
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors", len(vecs))
	}
	for i, v := range vecs {
		if v[i%4] != 1 {
			t.Errorf("vector %d = %v, want unit vector at %d", i, v, i%4)
		}
	}
	if e.ID() != "openai/test-model/4" {
		t.Errorf("ID = %s", e.ID())
	}
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	srv := embeddingsServer(t, 3, http.StatusOK)
	e, _ := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1", Dimensions: 4})
	if _, err := e.Embed(context.Background(), "a"); err == nil {
		t.Error("expected dimension error")
	}
}

func TestOpenAIEmbedder_ProviderError(t *testing.T) {
	srv := embeddingsServer(t, 4, http.StatusInternalServerError)
	e, _ := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1", Dimensions: 4})
	if _, err := e.Embed(context.Background(), "a"); err == nil {
		t.Error("expected provider error")
	}
}

func TestNewOpenAIEmbedder_NoKey(t *testing.T) {
	if _, err := NewOpenAIEmbedder(OpenAIConfig{}); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}
