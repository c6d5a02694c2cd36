package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ModelClient invokes a language model with a system instruction and a user
// prompt, returning the raw completion text.
type ModelClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ModelConfig holds configuration for the chat-completions model client.
type ModelConfig struct {
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
}

// ChatModelClient is a ModelClient backed by an OpenAI-compatible
// chat-completions endpoint.
type ChatModelClient struct {
	client    *resty.Client
	model     string
	endpoint  string
	maxTokens int
}

// NewChatModelClient creates a new chat-completions model client.
func NewChatModelClient(cfg *ModelConfig) *ChatModelClient {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	// Set timeout to prevent hanging requests
	client.SetTimeout(60 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	return &ChatModelClient{
		client:    client,
		model:     cfg.Model,
		endpoint:  baseURL + "/chat/completions",
		maxTokens: maxTokens,
	}
}

// GetModel returns the model name being used.
func (c *ChatModelClient) GetModel() string {
	return c.model
}

// OpenAI-compatible Chat Completion API request/response structures
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends a single-turn chat completion request.
func (c *ChatModelClient) Complete(ctx context.Context, system, user string) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: c.maxTokens,
	}

	var resp chatResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(c.endpoint)

	if err != nil {
		return "", fmt.Errorf("failed to call model API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		} else if len(httpResp.Body()) > 0 {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return "", fmt.Errorf("model API returned error: %s", errorMsg)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("model API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model API (status: %d)", httpResp.StatusCode())
	}

	return resp.Choices[0].Message.Content, nil
}
