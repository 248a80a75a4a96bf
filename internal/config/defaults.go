package config

import "time"

// Retrieval and generation defaults.
const (
	DefaultChunkSize       = 1000
	DefaultChunkOverlap    = 220
	DefaultTopK            = 4
	DefaultContextChars    = 10000
	DefaultGenerationURL   = "https://api.groq.com/openai/v1"
	DefaultGenerationModel = "llama3-8b-8192"
)

// DefaultExtensions are the file types ingested from directories when none are configured.
var DefaultExtensions = []string{".txt", ".md", ".pdf", ".docx", ".xlsx", ".pptx", ".ods", ".odp"}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 64
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/ragfuse/data/ragfuse.db"
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "/usr/local/var/ragfuse/data/source_documents"
	}
	if cfg.Storage.KeepSnapshots == 0 {
		cfg.Storage.KeepSnapshots = 3
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Dimensions == 0 {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.Dimensions = 1536
		default:
			cfg.Embedding.Dimensions = 384
		}
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1024
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 60 * time.Second
	}
	if cfg.Index.ChunkSize == 0 {
		cfg.Index.ChunkSize = DefaultChunkSize
	}
	// Overlap 0 is kept as-is when chunk_size is set explicitly.
	if cfg.Index.ChunkOverlap == 0 && cfg.Index.ChunkSize == DefaultChunkSize {
		cfg.Index.ChunkOverlap = DefaultChunkOverlap
	}
	if cfg.Index.TopK == 0 {
		cfg.Index.TopK = DefaultTopK
	}
	if cfg.Index.Metric == "" {
		cfg.Index.Metric = "cosine"
	}
	if cfg.Index.ContextChars == 0 {
		cfg.Index.ContextChars = DefaultContextChars
	}
	if cfg.Sources.Timeout == 0 {
		cfg.Sources.Timeout = 15 * time.Second
	}
	if cfg.Sources.Encyclopedia.BaseURL == "" {
		cfg.Sources.Encyclopedia.BaseURL = "https://en.wikipedia.org"
	}
	if cfg.Sources.Encyclopedia.MaxChars == 0 {
		cfg.Sources.Encyclopedia.MaxChars = 4000
	}
	if cfg.Sources.WebSearch.Results == 0 {
		cfg.Sources.WebSearch.Results = 10
	}
	if cfg.Sources.WebSearch.RequestsPerSecond == 0 {
		cfg.Sources.WebSearch.RequestsPerSecond = 2
	}
	if cfg.Sources.WebSearch.Burst == 0 {
		cfg.Sources.WebSearch.Burst = 5
	}
	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = DefaultGenerationURL
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = DefaultGenerationModel
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 60 * time.Second
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
	if cfg.Telemetry.Environment == "" {
		cfg.Telemetry.Environment = "development"
	}
}
