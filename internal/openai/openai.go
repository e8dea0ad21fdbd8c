// Package openai sends standup extraction requests to an OpenAI compatible
// chat completion API in JSON mode.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/edgard/standupbot/internal/config"
)

// Client wraps the go-openai client for standup extraction.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	log         *slog.Logger
}

// New creates a client from cfg. An empty BaseURL keeps the library default.
func New(cfg config.OpenAIConfig, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}
	if log == nil {
		log = slog.Default()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:         openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		log:         log.With("component", "openai_client"),
	}, nil
}

// CompleteJSON asks the model to split text into the standup fields and
// returns the JSON object it produced.
func (c *Client) CompleteJSON(ctx context.Context, instruction, text string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   200,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: instruction,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Message: %q", text),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.log.WarnContext(ctx, "OpenAI request failed", "model", c.model, "error", err)
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("openai returned empty content")
	}
	return content, nil
}
