package provider

import (
	"context"
	"errors"
	"os"
	"time"

	openai_provider "github.com/mohammad-safakhou/newsagent/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
	Gemini    Client = "gemini"
)

// Provider is the interface that all LLM implementations must satisfy
type Provider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	GenerateWithTokens(ctx context.Context, systemPrompt, userPrompt string) (string, int, int, error)
}

// Options configures a provider instance.
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// NewProvider creates a new LLM client for the given provider type.
func NewProvider(client Client, opts Options) (Provider, error) {
	switch client {
	case OpenAI:
		apiKey := opts.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("OPENAI_API_KEY not set")
		}
		model := opts.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		return openai_provider.NewOpenAIClient(
			apiKey,
			opts.BaseURL,
			model,
			opts.Temperature,
			opts.MaxTokens,
			timeout,
			opts.MaxRetries,
			opts.RetryBackoff,
		), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	case Gemini:
		return nil, errors.New("gemini client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
