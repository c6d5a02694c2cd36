package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/timmy/memflow/internal/domain"
	"github.com/timmy/memflow/internal/notification"
	"github.com/timmy/memflow/internal/service"
	"github.com/timmy/memflow/internal/storage"
)

// fakeQueue serves queued messages once and records deletions.
type fakeQueue struct {
	messages   []types.Message
	deleted    []string
	onReceive  func()
	receiveErr error
}

func (f *fakeQueue) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if f.onReceive != nil {
		f.onReceive()
	}
	if f.receiveErr != nil {
		return nil, f.receiveErr
	}
	out := &sqs.ReceiveMessageOutput{Messages: f.messages}
	f.messages = nil
	return out, nil
}

func (f *fakeQueue) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

// queueStorage serves payload objects from memory, keyed by "bucket/key".
type queueStorage struct {
	objects map[string]string
}

func (m *queueStorage) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader([]byte(data))), nil
}

func (m *queueStorage) Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	return nil
}

func (m *queueStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, ok := m.objects[bucket+"/"+key]
	return ok, nil
}

type queueModel struct{ response string }

func (s *queueModel) Complete(ctx context.Context, system, user string) (string, error) {
	return s.response, nil
}

type queueRecordStore struct{ batches int }

func (f *queueRecordStore) BatchCreate(ctx context.Context, memoryID string, records []domain.IngestionRecord, clientToken string) error {
	f.batches++
	return nil
}

func testPipeline(t *testing.T) (*service.Pipeline, *queueRecordStore) {
	t.Helper()

	store := &queueStorage{objects: map[string]string{
		"payloads/conv.json": `{
			"currentContext": [{"role": "user", "content": {"text": "I like pizza"}}],
			"sessionId": "session-1",
			"actorId": "actor-1"
		}`,
	}}
	records := &queueRecordStore{}
	pipeline := service.NewPipeline(
		notification.NewParser(),
		storage.NewPayloadFetcher(store),
		service.NewContentExtractor(&queueModel{response: `[{"content": "Likes pizza", "type": "preference", "confidence": 0.9}]`}),
		service.NewBatchIngestor(records),
		nil,
		nil,
	)
	return pipeline, records
}

func messageBody(t *testing.T, fields map[string]string) string {
	t.Helper()

	message, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	body, err := json.Marshal(map[string]string{"Message": string(message)})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return string(body)
}

func goodMessageBody(t *testing.T) string {
	return messageBody(t, map[string]string{
		"jobId":             "job-1",
		"memoryId":          "mem-1",
		"strategyId":        "strategy-1",
		"s3PayloadLocation": "s3://payloads/conv.json",
	})
}

func TestConsumerDeletesOnSuccess(t *testing.T) {
	pipeline, records := testPipeline(t)
	queue := &fakeQueue{}
	consumer := NewConsumerWithClient(queue, "https://queue.test/q", 1, pipeline)

	consumer.handle(context.Background(),
		aws.String("msg-1"), aws.String(goodMessageBody(t)), aws.String("receipt-1"))

	if records.batches != 1 {
		t.Errorf("batches: got %d, want 1", records.batches)
	}
	if len(queue.deleted) != 1 || queue.deleted[0] != "receipt-1" {
		t.Errorf("deleted: got %v, want [receipt-1]", queue.deleted)
	}
}

func TestConsumerLeavesFailedMessageForRedelivery(t *testing.T) {
	pipeline, records := testPipeline(t)
	queue := &fakeQueue{}
	consumer := NewConsumerWithClient(queue, "https://queue.test/q", 1, pipeline)

	// Missing memoryId makes the pipeline fail with a 500 result.
	body := messageBody(t, map[string]string{
		"jobId":             "job-1",
		"strategyId":        "strategy-1",
		"s3PayloadLocation": "s3://payloads/conv.json",
	})

	consumer.handle(context.Background(),
		aws.String("msg-1"), aws.String(body), aws.String("receipt-1"))

	if records.batches != 0 {
		t.Errorf("batches: got %d, want 0", records.batches)
	}
	if len(queue.deleted) != 0 {
		t.Errorf("failed message must stay on the queue, got deletions %v", queue.deleted)
	}
}

func TestConsumerRunProcessesUntilCancelled(t *testing.T) {
	pipeline, records := testPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	queue := &fakeQueue{
		messages: []types.Message{{
			MessageId:     aws.String("msg-1"),
			Body:          aws.String(goodMessageBody(t)),
			ReceiptHandle: aws.String("receipt-1"),
		}},
	}
	received := 0
	queue.onReceive = func() {
		received++
		if received > 1 {
			cancel()
		}
	}
	consumer := NewConsumerWithClient(queue, "https://queue.test/q", 1, pipeline)

	err := consumer.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: got %v, want context.Canceled", err)
	}
	if records.batches != 1 {
		t.Errorf("batches: got %d, want 1", records.batches)
	}
	if len(queue.deleted) != 1 {
		t.Errorf("deleted: got %v, want one receipt", queue.deleted)
	}
}
