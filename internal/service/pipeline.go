package service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/timmy/memflow/internal/domain"
	"github.com/timmy/memflow/internal/logger"
	"github.com/timmy/memflow/internal/notification"
	"github.com/timmy/memflow/internal/repository"
	"github.com/timmy/memflow/internal/storage"
)

// Stage labels a pipeline invocation's progress. Transitions are linear:
// Received → Parsed → Fetched → Extracted → Ingested → Done, with any step
// able to jump straight to Failed. There is no retry; a failure is terminal
// for the invocation.
type Stage string

const (
	StageReceived  Stage = "received"
	StageParsed    Stage = "parsed"
	StageFetched   Stage = "fetched"
	StageExtracted Stage = "extracted"
	StageIngested  Stage = "ingested"
	StageDone      Stage = "done"
	StageFailed    Stage = "failed"
)

// Result is the structured response of one pipeline invocation. Body is
// always a JSON document; callers never see a raw error.
type Result struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type successBody struct {
	JobID             string `json:"jobId"`
	ExtractedMemories int    `json:"extractedMemories"`
	IngestedRecords   int    `json:"ingestedRecords"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Pipeline orchestrates one memory-extraction invocation: parse the
// notification, fetch the payload, extract facts, ingest them as a batch.
// Invocations are independent and share no state; all coordination lives in
// the upstream queue and object store.
type Pipeline struct {
	parser    *notification.Parser
	fetcher   *storage.PayloadFetcher
	extractor *ContentExtractor
	ingestor  *BatchIngestor
	jobs      *repository.JobRepository // optional ledger; nil disables it
	indexer   *Indexer                  // optional semantic index; nil disables it
}

// NewPipeline assembles the orchestrator. jobs and indexer may be nil.
func NewPipeline(
	parser *notification.Parser,
	fetcher *storage.PayloadFetcher,
	extractor *ContentExtractor,
	ingestor *BatchIngestor,
	jobs *repository.JobRepository,
	indexer *Indexer,
) *Pipeline {
	return &Pipeline{
		parser:    parser,
		fetcher:   fetcher,
		extractor: extractor,
		ingestor:  ingestor,
		jobs:      jobs,
		indexer:   indexer,
	}
}

// Process runs one invocation over a raw queue event. It always returns a
// structured result: 200 with counts on success (including degraded
// extraction), 500 with an error body on any fatal failure.
func (p *Pipeline) Process(ctx context.Context, event []byte) *Result {
	logger.CtxInfo(ctx, "Pipeline invocation started, stage=%s", StageReceived)

	job, err := p.parser.Parse(ctx, event)
	if err != nil {
		return p.fail(ctx, nil, err)
	}
	return p.run(ctx, job)
}

// ProcessEvent runs one invocation over an already decoded queue event.
func (p *Pipeline) ProcessEvent(ctx context.Context, evt *notification.Event) *Result {
	logger.CtxInfo(ctx, "Pipeline invocation started, stage=%s", StageReceived)

	job, err := p.parser.ParseEvent(ctx, evt)
	if err != nil {
		return p.fail(ctx, nil, err)
	}
	return p.run(ctx, job)
}

func (p *Pipeline) run(ctx context.Context, job *domain.Job) *Result {

	ctx = logger.SetJobID(ctx, job.JobID)
	ctx = logger.WithField(ctx, logger.FieldMemoryID, job.MemoryID)
	logger.CtxInfo(ctx, "Processing job for memory %s, stage=%s", job.MemoryID, StageParsed)

	entry := p.recordStart(ctx, job)

	payload, err := p.fetcher.Fetch(ctx, job.PayloadLocation)
	if err != nil {
		return p.fail(ctx, entry, err)
	}
	logger.CtxInfo(ctx, "Fetched conversation payload, stage=%s", StageFetched)

	extraction := p.extractor.Extract(ctx, payload)
	logger.CtxInfo(ctx, "Extracted %d facts (degraded=%v), stage=%s",
		len(extraction.Facts), extraction.Degraded, StageExtracted)

	stats, err := p.ingestor.Ingest(ctx, job.MemoryID, extraction.Facts, job.StrategyID, payload.EndingTimestamp)
	if err != nil {
		return p.fail(ctx, entry, err)
	}
	logger.CtxInfo(ctx, "Ingested %d records, stage=%s", stats.RecordsIngested, StageIngested)

	// Index failures are non-fatal: the record store is authoritative and
	// the index can be rebuilt from it.
	if p.indexer != nil && len(extraction.Facts) > 0 {
		if err := p.indexer.IndexFacts(ctx, job.MemoryID, job.StrategyID, extraction.Facts); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to index facts for recall")
		}
	}

	if entry != nil {
		if err := p.jobs.MarkCompleted(ctx, entry, len(extraction.Facts), stats.RecordsIngested, extraction.Degraded); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to update job ledger")
		}
	}

	body, _ := json.Marshal(successBody{
		JobID:             job.JobID,
		ExtractedMemories: len(extraction.Facts),
		IngestedRecords:   stats.RecordsIngested,
	})

	logger.CtxInfo(ctx, "Pipeline invocation finished, stage=%s", StageDone)

	return &Result{StatusCode: http.StatusOK, Body: string(body)}
}

// recordStart writes the running ledger entry and logs redeliveries. Ledger
// trouble never fails the invocation.
func (p *Pipeline) recordStart(ctx context.Context, job *domain.Job) *domain.ProcessedJob {
	if p.jobs == nil {
		return nil
	}

	if count, err := p.jobs.CountByJobID(ctx, job.JobID); err == nil && count > 0 {
		logger.CtxWarn(ctx, "Duplicate delivery of job %s (seen %d times before); records may be duplicated downstream", job.JobID, count)
	}

	entry, err := p.jobs.RecordStart(ctx, job)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to record job start in ledger")
		return nil
	}
	return entry
}

func (p *Pipeline) fail(ctx context.Context, entry *domain.ProcessedJob, err error) *Result {
	logger.FromContext(ctx).WithError(err).Error("Pipeline failed")

	if entry != nil {
		if ledgerErr := p.jobs.MarkFailed(ctx, entry, err.Error()); ledgerErr != nil {
			logger.FromContext(ctx).WithError(ledgerErr).Warn("Failed to update job ledger")
		}
	}

	body, _ := json.Marshal(errorBody{Error: err.Error()})
	return &Result{StatusCode: http.StatusInternalServerError, Body: string(body)}
}
