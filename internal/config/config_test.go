package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/ragfuse/internal/models"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "./data/db/documents.db"
watch:
  directories: ["./dev/sample"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "documents.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if len(cfg.Watch.Directories) != 1 {
		t.Fatalf("watch directories: got %d", len(cfg.Watch.Directories))
	}
	wantWatch := filepath.Join(dir, "dev", "sample")
	if cfg.Watch.Directories[0] != wantWatch {
		t.Errorf("watch directory = %s, want %s", cfg.Watch.Directories[0], wantWatch)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Index.ChunkSize != 1000 || cfg.Index.ChunkOverlap != 220 {
		t.Errorf("default chunking: got size=%d overlap=%d", cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	}
	if cfg.Index.TopK != 4 {
		t.Errorf("default top_k: got %d", cfg.Index.TopK)
	}
	if cfg.Index.Metric != "cosine" {
		t.Errorf("default metric: got %s", cfg.Index.Metric)
	}
	if cfg.Sources.Timeout != 15*time.Second {
		t.Errorf("default source timeout: got %s", cfg.Sources.Timeout)
	}
	if cfg.Sources.WebSearch.Results != 10 || cfg.Sources.Encyclopedia.MaxChars != 4000 {
		t.Errorf("default source limits: got %+v", cfg.Sources)
	}
	if cfg.Generation.Model != "llama3-8b-8192" || cfg.Generation.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("default generation: got %+v", cfg.Generation)
	}
	if cfg.Embedding.Provider != "openai" || cfg.Embedding.Dimensions != 1536 {
		t.Errorf("default embedding: got %+v", cfg.Embedding)
	}
	if len(cfg.Watch.Extensions) != len(DefaultExtensions) || cfg.Watch.Extensions[0] != ".txt" {
		t.Errorf("watch extensions: got %v", cfg.Watch.Extensions)
	}
	if !cfg.Sources.Encyclopedia.EnabledOrDefault() || !cfg.Sources.WebSearch.EnabledOrDefault() {
		t.Error("sources should be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_ExplicitZeroOverlap(t *testing.T) {
	cfg := &Config{Index: IndexConfig{ChunkSize: 500}}
	ApplyDefaults(cfg)
	if cfg.Index.ChunkOverlap != 0 {
		t.Errorf("overlap = %d, want 0 when chunk_size is explicit", cfg.Index.ChunkOverlap)
	}
}

func TestApplyDefaults_HashDimensions(t *testing.T) {
	cfg := &Config{Embedding: EmbeddingConfig{Provider: "hash"}}
	ApplyDefaults(cfg)
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("hash dimensions = %d, want 384", cfg.Embedding.Dimensions)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Index.ChunkSize = -1 }},
		{"overlap equals size", func(c *Config) { c.Index.ChunkOverlap = c.Index.ChunkSize }},
		{"negative overlap", func(c *Config) { c.Index.ChunkOverlap = -5 }},
		{"negative top_k", func(c *Config) { c.Index.TopK = -1 }},
		{"unknown metric", func(c *Config) { c.Index.Metric = "manhattan" }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "bert" }},
		{"negative retries", func(c *Config) { c.Sources.Retries = -1 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, models.ErrConfig) {
				t.Errorf("Validate() = %v, want config error", err)
			}
		})
	}
}

func TestLoad_InvalidChunking(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
index:
  chunk_size: 100
  chunk_overlap: 150
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, models.ErrConfig) {
		t.Errorf("Load() = %v, want config error", err)
	}
}

func TestLoad_Durations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
sources:
  timeout: 3s
  encyclopedia:
    enabled: false
generation:
  timeout: 2m
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sources.Timeout != 3*time.Second {
		t.Errorf("sources.timeout = %s", cfg.Sources.Timeout)
	}
	if cfg.Generation.Timeout != 2*time.Minute {
		t.Errorf("generation.timeout = %s", cfg.Generation.Timeout)
	}
	if cfg.Sources.Encyclopedia.EnabledOrDefault() {
		t.Error("encyclopedia should be disabled")
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("true_returns_true", func(t *testing.T) {
		v := true
		w := &WatchConfig{Recursive: &v}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}

func TestLoadSecrets(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "groq-plain")
	t.Setenv("RAGFUSE_OPENAI_API_KEY", "openai-prefixed")
	t.Setenv("OPENAI_API_KEY", "openai-plain")
	t.Setenv("GOOGLE_API_KEY", "google")
	t.Setenv("GOOGLE_SEARCH_API_KEY", "")
	t.Setenv("GOOGLE_CSE_ID", "cse")

	s, err := LoadSecrets(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if s.GroqAPIKey != "groq-plain" {
		t.Errorf("GroqAPIKey = %q", s.GroqAPIKey)
	}
	if s.OpenAIAPIKey != "openai-prefixed" {
		t.Errorf("prefixed variable should win, got %q", s.OpenAIAPIKey)
	}
	if s.SearchAPIKey() != "google" {
		t.Errorf("SearchAPIKey() = %q, want fallback to GOOGLE_API_KEY", s.SearchAPIKey())
	}
	if !s.WebSearchConfigured() {
		t.Error("web search should be configured")
	}
}

func TestLoadSecrets_EnvFile(t *testing.T) {
	t.Setenv("GOOGLE_CSE_ID", "")
	t.Setenv("RAGFUSE_GOOGLE_CSE_ID", "")
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SENTRY_DSN=https://key@example.com/1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SENTRY_DSN", "")
	os.Unsetenv("SENTRY_DSN")
	s, err := LoadSecrets(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.SentryDSN != "https://key@example.com/1" {
		t.Errorf("SentryDSN = %q", s.SentryDSN)
	}
	if s.WebSearchConfigured() {
		t.Error("web search should not be configured without an engine ID")
	}
}
