package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/memflow/internal/domain"
	"github.com/timmy/memflow/internal/logger"
)

// millisecond timestamps exceed this; plain unix seconds do not
const millisThreshold = 10_000_000_000

// IngestionError wraps a failed batch write to the downstream memory store.
type IngestionError struct {
	Err error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("failed to ingest memory records: %v", e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// RecordStore is the downstream memory store accepting batched records.
type RecordStore interface {
	BatchCreate(ctx context.Context, memoryID string, records []domain.IngestionRecord, clientToken string) error
}

// IngestStats reports the outcome of one batch ingestion.
type IngestStats struct {
	RecordsIngested int
}

// BatchIngestor converts extracted facts into ingestion records and submits
// them as a single batch write.
type BatchIngestor struct {
	store RecordStore
	now   func() time.Time
}

// NewBatchIngestor creates a batch ingestor backed by the given record store.
func NewBatchIngestor(store RecordStore) *BatchIngestor {
	return &BatchIngestor{store: store, now: time.Now}
}

// Ingest submits all facts as one batch. An empty fact list is a no-op, not
// an error. Every record gets a fresh UUID request identifier, so replays of
// the same job produce new identifiers.
func (b *BatchIngestor) Ingest(
	ctx context.Context,
	memoryID string,
	facts []domain.ExtractedFact,
	strategyID string,
	rawTimestamp json.RawMessage,
) (*IngestStats, error) {
	if len(facts) == 0 {
		logger.CtxInfo(ctx, "No memory records to ingest")
		return &IngestStats{RecordsIngested: 0}, nil
	}

	timestamp := b.normalizeTimestamp(ctx, rawTimestamp)

	records := make([]domain.IngestionRecord, 0, len(facts))
	for _, fact := range facts {
		records = append(records, domain.IngestionRecord{
			RequestID:  uuid.New().String(),
			Content:    fact.Content,
			Namespaces: []string{fact.Namespace},
			StrategyID: strategyID,
			Timestamp:  timestamp,
		})
	}

	logger.With(logger.Fields{logger.FieldCount: len(records)}).Info(ctx, "Ingesting memory records")

	if err := b.store.BatchCreate(ctx, memoryID, records, uuid.New().String()); err != nil {
		return nil, &IngestionError{Err: err}
	}

	return &IngestStats{RecordsIngested: len(records)}, nil
}

// normalizeTimestamp interprets the payload-provided timestamp. Integer
// values above the millisecond threshold are milliseconds, other numerics
// are unix seconds, and anything unparseable falls back to the current time
// without raising.
func (b *BatchIngestor) normalizeTimestamp(ctx context.Context, raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return b.now()
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		// Tolerate a quoted numeric string.
		var s string
		if strErr := json.Unmarshal(raw, &s); strErr != nil {
			logger.CtxError(ctx, "Error processing timestamp %s: %v", string(raw), err)
			return b.now()
		}
		num = json.Number(s)
	}

	seconds, err := num.Float64()
	if err != nil {
		logger.CtxError(ctx, "Error processing timestamp %s: %v", string(raw), err)
		return b.now()
	}

	if seconds > millisThreshold {
		seconds = seconds / 1000.0
	}

	sec := int64(seconds)
	nsec := int64((seconds - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}
