// Package chat connects a guided conversation to an OpenAI-compatible chat
// completion API. The assistant's behavior is steered entirely through the
// system and stage prompts built from the active template; the model never
// sees raw template files.
package chat

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/serbantica/Chat-Assistant/internal/errors"
	"github.com/serbantica/Chat-Assistant/internal/models"
)

// Config holds configuration for the chat client
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string // optional, for OpenAI-compatible endpoints
	Temperature float32
	MaxTokens   int
}

const (
	defaultModel       = openai.GPT4oMini
	defaultTemperature = 0.7
	defaultMaxTokens   = 1200
)

// Client wraps an OpenAI-compatible completion API
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewClient creates a chat client. The API key is required.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewAppError(errors.ErrCodeMissingAPIKey,
			"OpenAI API key is required; set OPENAI_API_KEY")
	}

	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:         openai.NewClientWithConfig(apiConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete sends the system prompt and transcript and returns the assistant's
// reply.
func (c *Client) Complete(ctx context.Context, systemPrompt string, transcript []models.Message) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(transcript)+1)

	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, msg := range transcript {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", classifyAPIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.NewAppError(errors.ErrCodeChatFailure, "completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// classifyAPIError maps transport and API failures onto the app taxonomy so
// callers can decide what is retryable.
func classifyAPIError(err error) *errors.AppError {
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return errors.Wrap(err, errors.ErrCodeRateLimited, "completion API rate limit exceeded")
		case http.StatusUnauthorized, http.StatusForbidden:
			return errors.Wrap(err, errors.ErrCodeMissingAPIKey, "completion API rejected the API key")
		}
		return errors.ChatError("chat completion", err)
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.ErrCodeChatFailure, "completion request canceled")
	}
	return errors.Wrap(err, errors.ErrCodeNetworkFailure, "completion API is unreachable")
}
