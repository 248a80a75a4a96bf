package embedding

import (
	"strings"
	"testing"

	"github.com/hyperjump/ragfuse/internal/config"
)

func TestNew_Hash(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Provider: "hash", Dimensions: 64, CacheSize: 8}, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimensions() != 64 {
		t.Errorf("Dimensions() = %d", e.Dimensions())
	}
	if e.ID() != "hash/words-fnv32a/64" {
		t.Errorf("ID() = %s", e.ID())
	}
}

func TestNew_OpenAIWithoutKeyFallsBack(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Provider: "openai", Dimensions: 128}, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(e.ID(), "hash/") {
		t.Errorf("expected hash fallback, got %s", e.ID())
	}
	if e.Dimensions() != 128 {
		t.Errorf("fallback should keep configured dimensions, got %d", e.Dimensions())
	}
}

func TestNew_OpenAIWithKey(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Provider: "openai", Model: "m", Dimensions: 8}, "key", nil)
	if err != nil {
		t.Fatal(err)
	}
	if e.ID() != "openai/m/8" {
		t.Errorf("ID() = %s", e.ID())
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	if _, err := New(config.EmbeddingConfig{Provider: "word2vec"}, "", nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}
