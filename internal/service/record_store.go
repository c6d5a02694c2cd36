package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/memflow/internal/domain"
)

// MemoryStoreConfig holds configuration for the memory record store client.
type MemoryStoreConfig struct {
	BaseURL string
	APIKey  string
}

// HTTPRecordStore is a RecordStore backed by the memory service's batch
// record API.
type HTTPRecordStore struct {
	client  *resty.Client
	baseURL string
}

// NewHTTPRecordStore creates a record store client for the given endpoint.
func NewHTTPRecordStore(cfg *MemoryStoreConfig) *HTTPRecordStore {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	client.SetTimeout(30 * time.Second)

	return &HTTPRecordStore{
		client:  client,
		baseURL: cfg.BaseURL,
	}
}

// Batch record API wire structures
type batchCreateRequest struct {
	MemoryID    string       `json:"memoryId"`
	Records     []wireRecord `json:"records"`
	ClientToken string       `json:"clientToken"`
}

type wireRecord struct {
	RequestIdentifier string      `json:"requestIdentifier"`
	Content           wireContent `json:"content"`
	Namespaces        []string    `json:"namespaces"`
	MemoryStrategyID  string      `json:"memoryStrategyId"`
	Timestamp         time.Time   `json:"timestamp"`
}

type wireContent struct {
	Text string `json:"text"`
}

type batchCreateResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// BatchCreate submits all records for a memory in one call.
func (s *HTTPRecordStore) BatchCreate(ctx context.Context, memoryID string, records []domain.IngestionRecord, clientToken string) error {
	wire := make([]wireRecord, 0, len(records))
	for _, record := range records {
		wire = append(wire, wireRecord{
			RequestIdentifier: record.RequestID,
			Content:           wireContent{Text: record.Content},
			Namespaces:        record.Namespaces,
			MemoryStrategyID:  record.StrategyID,
			Timestamp:         record.Timestamp,
		})
	}

	req := batchCreateRequest{
		MemoryID:    memoryID,
		Records:     wire,
		ClientToken: clientToken,
	}

	var resp batchCreateResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.baseURL + "/memories/" + memoryID + "/records/batch")

	if err != nil {
		return fmt.Errorf("failed to call memory record API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		} else if len(httpResp.Body()) > 0 {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return fmt.Errorf("memory record API returned error: %s", errorMsg)
	}

	return nil
}
