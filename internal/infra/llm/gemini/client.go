package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Client generates text through the Gemini API.
type Client struct {
	models *genai.Models
}

// NewClient constructs a Gemini client for the given API key.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	return newClient(ctx, apiKey, "")
}

func newClient(ctx context.Context, apiKey, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key cannot be empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Client{models: client.Models}, nil
}

// GenerateText issues one non-streaming GenerateContent call with thinking
// disabled and returns the concatenated text parts.
func (c *Client) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	budget := int32(0)
	resp, err := c.models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: &budget},
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("generate content: empty response")
	}
	return text, nil
}
