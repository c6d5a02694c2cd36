package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

// fakeStorage serves objects from an in-memory map keyed by "bucket/key".
type fakeStorage struct {
	objects map[string][]byte
	err     error
}

func (f *fakeStorage) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	return errors.New("not implemented")
}

func (f *fakeStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, ok := f.objects[bucket+"/"+key]
	return ok, nil
}

func TestFetchDecodesPayload(t *testing.T) {
	payload := `{
		"historicalContext": [{"role": "user", "content": {"text": "earlier message"}}],
		"currentContext": [
			{"role": "user", "content": {"text": "I like pizza"}},
			{"role": "assistant", "content": {"text": "Got it"}}
		],
		"sessionId": "session-1",
		"actorId": "actor-1",
		"endingTimestamp": 1700000000
	}`
	store := &fakeStorage{objects: map[string][]byte{
		"payloads/conv/job-1.json": []byte(payload),
	}}

	got, err := NewPayloadFetcher(store).Fetch(context.Background(), "s3://payloads/conv/job-1.json")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if got.SessionID != "session-1" {
		t.Errorf("SessionID: got %q, want %q", got.SessionID, "session-1")
	}
	if got.ActorID != "actor-1" {
		t.Errorf("ActorID: got %q, want %q", got.ActorID, "actor-1")
	}
	if len(got.HistoricalContext) != 1 {
		t.Fatalf("HistoricalContext: got %d turns, want 1", len(got.HistoricalContext))
	}
	if len(got.CurrentContext) != 2 {
		t.Fatalf("CurrentContext: got %d turns, want 2", len(got.CurrentContext))
	}
	if got.CurrentContext[0].Role != "user" || got.CurrentContext[0].Content.Text != "I like pizza" {
		t.Errorf("unexpected first turn: %+v", got.CurrentContext[0])
	}
	if string(got.EndingTimestamp) != "1700000000" {
		t.Errorf("EndingTimestamp: got %s", got.EndingTimestamp)
	}
}

func TestFetchMissingObject(t *testing.T) {
	store := &fakeStorage{objects: map[string][]byte{}}

	_, err := NewPayloadFetcher(store).Fetch(context.Background(), "s3://payloads/missing.json")

	var notFound *PayloadNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected PayloadNotFoundError, got %v", err)
	}
	if notFound.Locator != "s3://payloads/missing.json" {
		t.Errorf("Locator: got %q", notFound.Locator)
	}
}

func TestFetchInvalidJSON(t *testing.T) {
	store := &fakeStorage{objects: map[string][]byte{
		"payloads/bad.json": []byte("not json"),
	}}

	_, err := NewPayloadFetcher(store).Fetch(context.Background(), "s3://payloads/bad.json")

	var parseErr *PayloadParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected PayloadParseError, got %v", err)
	}
}

func TestFetchBadLocator(t *testing.T) {
	store := &fakeStorage{objects: map[string][]byte{}}

	_, err := NewPayloadFetcher(store).Fetch(context.Background(), "gs://payloads/x.json")
	if err == nil {
		t.Fatal("expected error for non-s3 locator")
	}
}

func TestFetchStorageFailure(t *testing.T) {
	store := &fakeStorage{err: errors.New("connection refused")}

	_, err := NewPayloadFetcher(store).Fetch(context.Background(), "s3://payloads/x.json")
	if err == nil {
		t.Fatal("expected error for storage failure")
	}

	var notFound *PayloadNotFoundError
	if errors.As(err, &notFound) {
		t.Fatal("transport failure must not map to PayloadNotFoundError")
	}
}
