package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/timmy/memflow/internal/domain"
	"github.com/timmy/memflow/internal/logger"
)

// PayloadNotFoundError indicates the object behind a storage locator does
// not exist.
type PayloadNotFoundError struct {
	Locator string
}

func (e *PayloadNotFoundError) Error() string {
	return fmt.Sprintf("payload not found at %s", e.Locator)
}

// PayloadParseError indicates the fetched object was not a valid JSON
// conversation payload.
type PayloadParseError struct {
	Locator string
	Err     error
}

func (e *PayloadParseError) Error() string {
	return fmt.Sprintf("payload at %s is not valid JSON: %v", e.Locator, e.Err)
}

func (e *PayloadParseError) Unwrap() error {
	return e.Err
}

// PayloadFetcher retrieves and decodes conversation payloads from object
// storage. Single attempt, no retry.
type PayloadFetcher struct {
	storage ObjectStorage
}

// NewPayloadFetcher creates a payload fetcher backed by the given storage.
func NewPayloadFetcher(objectStorage ObjectStorage) *PayloadFetcher {
	return &PayloadFetcher{storage: objectStorage}
}

// Fetch downloads the object at the given locator and decodes it as a
// conversation payload.
func (f *PayloadFetcher) Fetch(ctx context.Context, locator string) (*domain.ConversationPayload, error) {
	bucket, key, err := ParseLocator(locator)
	if err != nil {
		return nil, err
	}

	logger.CtxDebug(ctx, "Downloading payload from bucket=%s key=%s", bucket, key)

	reader, err := f.storage.Download(ctx, bucket, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, &PayloadNotFoundError{Locator: locator}
		}
		return nil, fmt.Errorf("failed to fetch payload: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	var payload domain.ConversationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &PayloadParseError{Locator: locator, Err: err}
	}

	return &payload, nil
}
