package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/timmy/memflow/internal/notification"
	"github.com/timmy/memflow/internal/storage"
)

// memStorage serves payload objects from memory, keyed by "bucket/key".
type memStorage struct {
	objects map[string]string
}

func (m *memStorage) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader([]byte(data))), nil
}

func (m *memStorage) Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	return nil
}

func (m *memStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, ok := m.objects[bucket+"/"+key]
	return ok, nil
}

func pipelineEvent(t *testing.T, fields map[string]string) []byte {
	t.Helper()

	message, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	body, err := json.Marshal(map[string]string{"Message": string(message)})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	event, err := json.Marshal(map[string]interface{}{
		"Records": []map[string]string{{"messageId": "msg-1", "body": string(body)}},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return event
}

func newTestPipeline(store *memStorage, model ModelClient, records RecordStore) *Pipeline {
	return NewPipeline(
		notification.NewParser(),
		storage.NewPayloadFetcher(store),
		NewContentExtractor(model),
		NewBatchIngestor(records),
		nil,
		nil,
	)
}

const conversationObject = `{
	"currentContext": [
		{"role": "user", "content": {"text": "I like pizza"}},
		{"role": "assistant", "content": {"text": "Got it"}}
	],
	"sessionId": "session-1",
	"actorId": "actor-1",
	"endingTimestamp": 1700000000000
}`

func TestPipelineEndToEnd(t *testing.T) {
	store := &memStorage{objects: map[string]string{
		"payloads/conv/job-1.json": conversationObject,
	}}
	model := &stubModel{response: `[{"content": "Likes pizza", "type": "preference", "confidence": 0.9}]`}
	records := &fakeRecordStore{}

	event := pipelineEvent(t, map[string]string{
		"jobId":             "job-1",
		"memoryId":          "mem-1",
		"strategyId":        "strategy-1",
		"s3PayloadLocation": "s3://payloads/conv/job-1.json",
	})

	result := newTestPipeline(store, model, records).Process(context.Background(), event)

	if result.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode: got %d, body %s", result.StatusCode, result.Body)
	}

	var body struct {
		JobID             string `json:"jobId"`
		ExtractedMemories int    `json:"extractedMemories"`
		IngestedRecords   int    `json:"ingestedRecords"`
	}
	if err := json.Unmarshal([]byte(result.Body), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.JobID != "job-1" {
		t.Errorf("jobId: got %q", body.JobID)
	}
	if body.ExtractedMemories != 1 {
		t.Errorf("extractedMemories: got %d, want 1", body.ExtractedMemories)
	}
	if body.IngestedRecords != 1 {
		t.Errorf("ingestedRecords: got %d, want 1", body.IngestedRecords)
	}

	if len(records.calls) != 1 {
		t.Fatalf("store calls: got %d, want 1", len(records.calls))
	}
	call := records.calls[0]
	if call.memoryID != "mem-1" {
		t.Errorf("memoryID: got %q", call.memoryID)
	}
	rec := call.records[0]
	if rec.Content != "Likes pizza" {
		t.Errorf("Content: got %q", rec.Content)
	}
	if !strings.Contains(rec.Namespaces[0], "actor-1") || !strings.Contains(rec.Namespaces[0], "session-1") {
		t.Errorf("Namespace: got %q", rec.Namespaces[0])
	}
	// Millisecond timestamp from the payload is normalized to seconds.
	if rec.Timestamp.Unix() != 1700000000 {
		t.Errorf("Timestamp: got %v", rec.Timestamp)
	}
}

func TestPipelineReplayGetsFreshTokens(t *testing.T) {
	store := &memStorage{objects: map[string]string{
		"payloads/conv/job-1.json": conversationObject,
	}}
	model := &stubModel{response: `[{"content": "Likes pizza", "type": "preference", "confidence": 0.9}]`}
	records := &fakeRecordStore{}
	pipeline := newTestPipeline(store, model, records)

	event := pipelineEvent(t, map[string]string{
		"jobId":             "job-1",
		"memoryId":          "mem-1",
		"strategyId":        "strategy-1",
		"s3PayloadLocation": "s3://payloads/conv/job-1.json",
	})

	for i := 0; i < 2; i++ {
		if result := pipeline.Process(context.Background(), event); result.StatusCode != http.StatusOK {
			t.Fatalf("run %d: status %d, body %s", i, result.StatusCode, result.Body)
		}
	}

	if len(records.calls) != 2 {
		t.Fatalf("store calls: got %d, want 2", len(records.calls))
	}
	if records.calls[0].clientToken == records.calls[1].clientToken {
		t.Error("replay must get a fresh client token")
	}
	if records.calls[0].records[0].RequestID == records.calls[1].records[0].RequestID {
		t.Error("replay must get fresh request identifiers")
	}
}

func TestPipelineDegradedExtractionStillSucceeds(t *testing.T) {
	store := &memStorage{objects: map[string]string{
		"payloads/conv/job-1.json": conversationObject,
	}}
	model := &stubModel{response: "no structured output here"}
	records := &fakeRecordStore{}

	event := pipelineEvent(t, map[string]string{
		"jobId":             "job-1",
		"memoryId":          "mem-1",
		"strategyId":        "strategy-1",
		"s3PayloadLocation": "s3://payloads/conv/job-1.json",
	})

	result := newTestPipeline(store, model, records).Process(context.Background(), event)

	if result.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode: got %d, body %s", result.StatusCode, result.Body)
	}
	if len(records.calls) != 0 {
		t.Errorf("store must not be called with no facts, got %d calls", len(records.calls))
	}

	var body struct {
		ExtractedMemories int `json:"extractedMemories"`
		IngestedRecords   int `json:"ingestedRecords"`
	}
	if err := json.Unmarshal([]byte(result.Body), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.ExtractedMemories != 0 || body.IngestedRecords != 0 {
		t.Errorf("counts: got %+v, want zeros", body)
	}
}

func TestPipelineFailures(t *testing.T) {
	store := &memStorage{objects: map[string]string{
		"payloads/conv/job-1.json": conversationObject,
		"payloads/bad.json":        "not json",
	}}
	model := &stubModel{response: `[]`}

	goodFields := func() map[string]string {
		return map[string]string{
			"jobId":             "job-1",
			"memoryId":          "mem-1",
			"strategyId":        "strategy-1",
			"s3PayloadLocation": "s3://payloads/conv/job-1.json",
		}
	}

	testCases := []struct {
		name  string
		event func(t *testing.T) []byte
	}{
		{
			name:  "malformed event",
			event: func(t *testing.T) []byte { return []byte("not json") },
		},
		{
			name: "missing field",
			event: func(t *testing.T) []byte {
				fields := goodFields()
				delete(fields, "memoryId")
				return pipelineEvent(t, fields)
			},
		},
		{
			name: "payload not found",
			event: func(t *testing.T) []byte {
				fields := goodFields()
				fields["s3PayloadLocation"] = "s3://payloads/absent.json"
				return pipelineEvent(t, fields)
			},
		},
		{
			name: "payload not parseable",
			event: func(t *testing.T) []byte {
				fields := goodFields()
				fields["s3PayloadLocation"] = "s3://payloads/bad.json"
				return pipelineEvent(t, fields)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records := &fakeRecordStore{}
			result := newTestPipeline(store, model, records).Process(context.Background(), tc.event(t))

			if result.StatusCode != http.StatusInternalServerError {
				t.Fatalf("StatusCode: got %d, want 500", result.StatusCode)
			}

			var body struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal([]byte(result.Body), &body); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if body.Error == "" {
				t.Error("error body should carry a message")
			}
			if len(records.calls) != 0 {
				t.Errorf("store must not be called on failure, got %d calls", len(records.calls))
			}
		})
	}
}

func TestPipelineIngestionFailure(t *testing.T) {
	store := &memStorage{objects: map[string]string{
		"payloads/conv/job-1.json": conversationObject,
	}}
	model := &stubModel{response: `[{"content": "Likes pizza", "type": "preference", "confidence": 0.9}]`}
	records := &fakeRecordStore{err: io.ErrUnexpectedEOF}

	event := pipelineEvent(t, map[string]string{
		"jobId":             "job-1",
		"memoryId":          "mem-1",
		"strategyId":        "strategy-1",
		"s3PayloadLocation": "s3://payloads/conv/job-1.json",
	})

	result := newTestPipeline(store, model, records).Process(context.Background(), event)

	if result.StatusCode != http.StatusInternalServerError {
		t.Fatalf("StatusCode: got %d, want 500", result.StatusCode)
	}
}
