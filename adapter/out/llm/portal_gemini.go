// Package llm implements recipe generation on an OpenAI-compatible chat API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"portal_server/core/port/out"
	"portal_server/pkg/resilience"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel       = "gemini-2.0-flash"
	DefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta/openai"
	defaultMaxTokens   = 2048
	defaultTemperature = 0.7
)

// ErrEmptyCompletion is returned when the model answers with no content.
var ErrEmptyCompletion = errors.New("model returned no content")

type ClientConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
}

// Client calls Gemini through its OpenAI-compatible endpoint.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	cb          *resilience.Breaker
}

var _ out.RecipeGenerator = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(baseURL, "/")
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	settings := resilience.DefaultSettings("gemini-api")
	settings.IsFailure = isUpstreamFailure

	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(temperature),
		cb:          resilience.NewBreaker(settings),
	}
}

// Generate sends a system and user prompt and returns the first choice.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	var resp openai.ChatCompletionResponse
	err := c.cb.Execute(func() error {
		var apiErr error
		resp, apiErr = c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		return apiErr
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// isUpstreamFailure ignores request errors other than rate limiting.
func isUpstreamFailure(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.HTTPStatusCode
		return code == http.StatusTooManyRequests || code >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		code := reqErr.HTTPStatusCode
		return code == http.StatusTooManyRequests || code >= 500
	}
	return true
}
