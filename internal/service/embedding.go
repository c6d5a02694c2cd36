package service

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const jinaEndpoint = "https://api.jina.ai/v1/embeddings"

// Embedding task types. Passages and queries are embedded asymmetrically.
const (
	taskPassage = "retrieval.passage"
	taskQuery   = "retrieval.query"
)

// EmbeddingService handles text embedding generation
type EmbeddingService struct {
	client     *resty.Client
	model      string
	endpoint   string
	dimensions int
}

// EmbeddingConfig holds configuration for embedding service
type EmbeddingConfig struct {
	Model      string
	APIKey     string
	Endpoint   string // optional override; defaults to the Jina API
	Dimensions int
}

// NewEmbeddingService creates a new embedding service
func NewEmbeddingService(cfg *EmbeddingConfig) *EmbeddingService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = jinaEndpoint
	}

	return &EmbeddingService{
		client:     client,
		model:      cfg.Model,
		endpoint:   endpoint,
		dimensions: cfg.Dimensions,
	}
}

// GetModel returns the model name being used
func (s *EmbeddingService) GetModel() string {
	return s.model
}

// Jina API request/response structures
type jinaRequest struct {
	Model      string   `json:"model"`
	Task       string   `json:"task,omitempty"`
	Dimensions int      `json:"dimensions,omitempty"`
	Input      []string `json:"input"`
}

type jinaResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
}

// Embed generates a passage embedding for a single text
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.embedOne(ctx, text, taskPassage)
}

// EmbedQuery generates a query embedding for search input. Queries use a
// different task than stored passages.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.embedOne(ctx, text, taskQuery)
}

func (s *EmbeddingService) embedOne(ctx context.Context, text, task string) ([]float32, error) {
	embeddings, err := s.embedBatch(ctx, []string{text}, task)
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates passage embeddings for multiple texts
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return s.embedBatch(ctx, texts, taskPassage)
}

func (s *EmbeddingService) embedBatch(ctx context.Context, texts []string, task string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := jinaRequest{
		Model:      s.model,
		Task:       task,
		Dimensions: s.dimensions,
		Input:      texts,
	}

	var resp jinaResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to call embedding API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Detail != "" {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Detail)
		}
		return nil, fmt.Errorf("embedding API returned error: %s", errorMsg)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding API returned out-of-range index %d", item.Index)
		}
		embeddings[item.Index] = item.Embedding
	}

	return embeddings, nil
}
