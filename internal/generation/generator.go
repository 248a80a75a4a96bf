package generation

import (
	"context"
	"errors"
	"net/http"

	"github.com/hyperjump/ragfuse/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "llama3-8b-8192"
)

// ErrNoAPIKey is returned when the completion endpoint has no key.
var ErrNoAPIKey = errors.New("generation API key not set (GROQ_API_KEY)")

// Generator produces a completion for a system and user message.
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Config configures a ChatGenerator.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// ChatGenerator calls /chat/completions on an OpenAI-compatible API.
type ChatGenerator struct {
	client *openai.Client
	cfg    Config
}

// NewChatGenerator creates a generator. A missing key is reported on each Complete call, so
// retrieval and fusion still work without one.
func NewChatGenerator(cfg Config) *ChatGenerator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	return &ChatGenerator{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}
}

// Model returns the configured chat model.
func (g *ChatGenerator) Model() string { return g.cfg.Model }

// Complete sends one chat completion request. Any failure, including an empty reply, is
// returned as a GenerationError.
func (g *ChatGenerator) Complete(ctx context.Context, system, user string) (string, error) {
	if g.cfg.APIKey == "" {
		return "", models.GenerationError("completion not attempted", ErrNoAPIKey)
	}
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	})
	if err != nil {
		return "", models.GenerationError("chat completion failed", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", models.GenerationError("chat completion returned no content", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// Answer renders fc into a prompt and completes it with g.
func Answer(ctx context.Context, g Generator, fc *models.FusedContext) (string, error) {
	user, err := RenderPrompt(fc)
	if err != nil {
		return "", models.GenerationError("failed to render prompt", err)
	}
	return g.Complete(ctx, SystemPrompt, user)
}

// IsRateLimited reports whether err came from an HTTP 429 response of the completion API.
func IsRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
