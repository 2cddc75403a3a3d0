package openai_provider

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	openaiAPIURL = "https://api.openai.com/v1/chat/completions"
)

// client implements the provider interface using OpenAI's chat completions API
type client struct {
	apiKey          string
	baseURL         string
	completionModel string
	temperature     float64
	maxTokens       int
	httpClient      *jsonClient
}

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request represents a request to the OpenAI API
type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// response represents a response from the OpenAI API
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// NewOpenAIClient creates a new OpenAI client. An empty baseURL targets the
// public API; any OpenAI-compatible endpoint works. Transient failures (429,
// 5xx, transport errors) are retried up to maxRetries times.
func NewOpenAIClient(apiKey, baseURL, completionModel string, temperature float64, maxTokens int, timeout time.Duration, maxRetries int, retryBackoff time.Duration) *client {
	if baseURL == "" {
		baseURL = openaiAPIURL
	}
	return &client{
		apiKey:          apiKey,
		baseURL:         baseURL,
		completionModel: completionModel,
		temperature:     temperature,
		maxTokens:       maxTokens,
		httpClient:      newJSONClient(timeout, maxRetries, retryBackoff),
	}
}

// Generate sends one prompt and returns the reply text.
func (c *client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	text, _, _, err := c.GenerateWithTokens(ctx, systemPrompt, userPrompt)
	return text, err
}

// GenerateWithTokens sends one prompt and returns the reply text plus token usage.
func (c *client) GenerateWithTokens(ctx context.Context, systemPrompt, userPrompt string) (string, int, int, error) {
	messages := make([]Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: userPrompt})

	resp, err := c.sendRequest(ctx, messages)
	if err != nil {
		return "", 0, 0, err
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, nil
}

// sendRequest sends a request to the OpenAI API
func (c *client) sendRequest(ctx context.Context, messages []Message) (*response, error) {
	requestBody := request{
		Model:       c.completionModel,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	headers := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + c.apiKey,
	}

	var openaiResp response
	if err := c.httpClient.doJSON(ctx, http.MethodPost, c.baseURL, headers, requestBody, &openaiResp); err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}
	return &openaiResp, nil
}
