// Package gemini implements standup extraction requests against Google's
// Gemini API using JSON schema constrained responses.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/standupbot/internal/config"
)

// standupSchema constrains the model's answer to the two standup fields.
var standupSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"today_work":          {Type: genai.TypeString, Nullable: genai.Ptr(true), Description: "What the person worked on today, or null."},
		"tomorrow_commitment": {Type: genai.TypeString, Nullable: genai.Ptr(true), Description: "What the person commits to doing tomorrow, or null."},
	},
	Required: []string{"today_work", "tomorrow_commitment"},
}

// generator is the subset of the genai SDK the client calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client sends standup replies to Gemini and returns the JSON answer.
type Client struct {
	models     generator
	log        *slog.Logger
	modelName  string
	baseConfig *genai.GenerateContentConfig
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a Gemini client from cfg.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c := newClient(gi.Models, cfg, log)
	c.log.Info("Gemini client initialized", "model", cfg.ModelName)
	return c, nil
}

func newClient(models generator, cfg config.GeminiConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	temperature := cfg.Temperature
	return &Client{
		models:    models,
		log:       log.With("component", "gemini_client"),
		modelName: cfg.ModelName,
		baseConfig: &genai.GenerateContentConfig{
			Temperature:      &temperature,
			ResponseMIMEType: "application/json",
			ResponseSchema:   standupSchema,
		},
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}
}

// CompleteJSON asks the model to split text into the standup fields.
func (c *Client) CompleteJSON(ctx context.Context, instruction, text string) (string, error) {
	cfg := *c.baseConfig
	if instruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(instruction, genai.RoleUser)
	}
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	resp, err := c.generateWithRetries(ctx, contents, &cfg)
	if err != nil {
		return "", err
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		c.log.WarnContext(ctx, "Gemini request blocked", "reason", resp.PromptFeedback.BlockReason)
		return "", fmt.Errorf("gemini request blocked: %v", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini returned empty content")
	}

	return resp.Text(), nil
}

func (c *Client) generateWithRetries(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		resp, err := c.models.GenerateContent(ctx, c.modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var apiErr genai.APIError
		var apiErrPtr *genai.APIError
		code := 0
		switch {
		case errors.As(err, &apiErr):
			code = apiErr.Code
		case errors.As(err, &apiErrPtr):
			code = apiErrPtr.Code
		}

		if (code == 500 || code == 503) && i < c.maxRetries {
			c.log.InfoContext(ctx, "Retrying Gemini call after server error", "attempt", i+1, "code", code, "delay", c.retryDelay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
			continue
		}

		c.log.WarnContext(ctx, "Gemini call failed", "attempt", i+1, "error", err)
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	return nil, fmt.Errorf("gemini API call failed after %d retries: %w", c.maxRetries, lastErr)
}
