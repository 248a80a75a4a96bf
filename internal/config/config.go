// Package config provides configuration loading and structs for the ragfuse server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/ragfuse/internal/models"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application. Credentials are not part of it; see Secrets.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Index      IndexConfig      `yaml:"index"`
	Sources    SourcesConfig    `yaml:"sources"`
	Generation GenerationConfig `yaml:"generation"`
	Watch      WatchConfig      `yaml:"watch"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// StorageConfig holds paths for the database and uploaded files.
type StorageConfig struct {
	DatabasePath  string `yaml:"database_path"`
	UploadDir     string `yaml:"upload_dir"`
	KeepSnapshots int    `yaml:"keep_snapshots"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of "openai", "onnx" or "hash".
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	ModelPath  string        `yaml:"model_path"`
	Dimensions int           `yaml:"dimensions"`
	MaxTokens  int           `yaml:"max_tokens"`
	CacheSize  int           `yaml:"cache_size"`
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

// IndexConfig holds chunking and retrieval settings.
type IndexConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	TopK         int    `yaml:"top_k"`
	Metric       string `yaml:"metric"`
	// ContextChars caps the corpus text handed to generation; 0 disables the cap.
	ContextChars int `yaml:"context_chars"`
}

// SourcesConfig holds settings shared by and specific to the external retrieval sources.
type SourcesConfig struct {
	Timeout      time.Duration      `yaml:"timeout"`
	Retries      int                `yaml:"retries"`
	Encyclopedia EncyclopediaConfig `yaml:"encyclopedia"`
	WebSearch    WebSearchConfig    `yaml:"web_search"`
}

// EncyclopediaConfig configures the MediaWiki summary lookup.
type EncyclopediaConfig struct {
	Enabled  *bool  `yaml:"enabled"`
	BaseURL  string `yaml:"base_url"`
	MaxChars int    `yaml:"max_chars"`
}

// WebSearchConfig configures the Google Programmable Search lookup.
type WebSearchConfig struct {
	Enabled           *bool   `yaml:"enabled"`
	Endpoint          string  `yaml:"endpoint"`
	Results           int     `yaml:"results"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// GenerationConfig configures the chat-completion call.
type GenerationConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// TelemetryConfig holds error reporting settings. The DSN comes from Secrets.
type TelemetryConfig struct {
	Environment string  `yaml:"environment"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// EnabledOrDefault returns whether the encyclopedia source is enabled; defaults to true when unset.
func (e *EncyclopediaConfig) EnabledOrDefault() bool {
	return e.Enabled == nil || *e.Enabled
}

// EnabledOrDefault returns whether the web search source is enabled; defaults to true when unset.
func (w *WebSearchConfig) EnabledOrDefault() bool {
	return w.Enabled == nil || *w.Enabled
}

// RecursiveOrDefault returns whether to watch subdirectories; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	return w.Recursive == nil || *w.Recursive
}

// Load reads and parses the config file at path, applies defaults, expands paths and validates.
// Returns an error if the file cannot be read or parsed, or a ConfigError if values are invalid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.UploadDir = expandPath(cfg.Storage.UploadDir, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects settings that would make ingestion or retrieval impossible.
func (c *Config) Validate() error {
	if c.Index.ChunkSize <= 0 {
		return models.ConfigError("index.chunk_size must be positive, got %d", c.Index.ChunkSize)
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return models.ConfigError("index.chunk_overlap must be in [0, %d), got %d", c.Index.ChunkSize, c.Index.ChunkOverlap)
	}
	if c.Index.TopK <= 0 {
		return models.ConfigError("index.top_k must be positive, got %d", c.Index.TopK)
	}
	switch strings.ToLower(c.Index.Metric) {
	case "cosine", "l2", "euclidean":
	default:
		return models.ConfigError("index.metric must be cosine or l2, got %q", c.Index.Metric)
	}
	if c.Index.ContextChars < 0 {
		return models.ConfigError("index.context_chars must not be negative")
	}
	switch c.Embedding.Provider {
	case "openai", "onnx", "hash":
	default:
		return models.ConfigError("embedding.provider must be openai, onnx or hash, got %q", c.Embedding.Provider)
	}
	if c.Sources.Retries < 0 {
		return models.ConfigError("sources.retries must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return models.ConfigError("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
