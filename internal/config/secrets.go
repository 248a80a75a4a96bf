package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces the environment variables read into Secrets. Each variable is also looked
// up without the prefix, so GROQ_API_KEY and RAGFUSE_GROQ_API_KEY both work.
const EnvPrefix = "RAGFUSE"

// Secrets holds provider credentials. They are read from the environment (and an optional .env
// file), never from the YAML config.
type Secrets struct {
	GroqAPIKey         string `envconfig:"GROQ_API_KEY"`
	OpenAIAPIKey       string `envconfig:"OPENAI_API_KEY"`
	GoogleAPIKey       string `envconfig:"GOOGLE_API_KEY"`
	GoogleSearchAPIKey string `envconfig:"GOOGLE_SEARCH_API_KEY"`
	GoogleCSEID        string `envconfig:"GOOGLE_CSE_ID"`
	SentryDSN          string `envconfig:"SENTRY_DSN"`
}

// LoadSecrets loads .env files (missing files are ignored) and then processes the environment.
func LoadSecrets(envFiles ...string) (*Secrets, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else {
		for _, f := range envFiles {
			_ = godotenv.Load(f)
		}
	}

	var s Secrets
	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &s, nil
}

// SearchAPIKey returns the key for Programmable Search, preferring the dedicated variable.
func (s *Secrets) SearchAPIKey() string {
	if s.GoogleSearchAPIKey != "" {
		return s.GoogleSearchAPIKey
	}
	return s.GoogleAPIKey
}

// WebSearchConfigured reports whether both the search key and engine ID are present.
func (s *Secrets) WebSearchConfigured() bool {
	return s.SearchAPIKey() != "" && s.GoogleCSEID != ""
}
