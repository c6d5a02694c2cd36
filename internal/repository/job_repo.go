package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/memflow/internal/domain"
	"gorm.io/gorm"
)

// JobRepository persists the ledger of processed pipeline jobs.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Ping verifies the underlying database connection is alive.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - error: non-nil if the database is unreachable.
func (r *JobRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// RecordStart inserts a running ledger entry for a job invocation.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: parsed job being processed.
// Returns:
//   - *domain.ProcessedJob: the created ledger entry.
//   - error: non-nil if the insert fails.
func (r *JobRepository) RecordStart(ctx context.Context, job *domain.Job) (*domain.ProcessedJob, error) {
	entry := &domain.ProcessedJob{
		ID:              uuid.New().String(),
		JobID:           job.JobID,
		MemoryID:        job.MemoryID,
		StrategyID:      job.StrategyID,
		PayloadLocation: job.PayloadLocation,
		Status:          domain.JobStatusRunning,
		StartedAt:       time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// CountByJobID returns how many ledger entries exist for a job ID. A count
// above zero before RecordStart means the notification was redelivered.
func (r *JobRepository) CountByJobID(ctx context.Context, jobID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.ProcessedJob{}).
		Where("job_id = ?", jobID).
		Count(&count).Error
	return count, err
}

// MarkCompleted finalizes a ledger entry after a successful run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entry: ledger entry to finalize.
//   - extracted: number of extracted facts.
//   - ingested: number of ingested records.
//   - degraded: whether extraction degraded to an empty result.
// Returns:
//   - error: non-nil if the update fails.
func (r *JobRepository) MarkCompleted(ctx context.Context, entry *domain.ProcessedJob, extracted, ingested int, degraded bool) error {
	now := time.Now()
	entry.Status = domain.JobStatusCompleted
	entry.ExtractedFacts = extracted
	entry.IngestedRecords = ingested
	entry.Degraded = degraded
	entry.FinishedAt = &now
	return r.db.WithContext(ctx).Save(entry).Error
}

// MarkFailed finalizes a ledger entry after a failed run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entry: ledger entry to finalize.
//   - errMsg: failure description stored with the entry.
// Returns:
//   - error: non-nil if the update fails.
func (r *JobRepository) MarkFailed(ctx context.Context, entry *domain.ProcessedJob, errMsg string) error {
	now := time.Now()
	entry.Status = domain.JobStatusFailed
	entry.ErrorMessage = errMsg
	entry.FinishedAt = &now
	return r.db.WithContext(ctx).Save(entry).Error
}

// GetByJobID retrieves all ledger entries for a job ID, newest first.
func (r *JobRepository) GetByJobID(ctx context.Context, jobID string) ([]domain.ProcessedJob, error) {
	var entries []domain.ProcessedJob
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("started_at DESC").
		Find(&entries).Error
	return entries, err
}

// List retrieves ledger entries with pagination, newest first.
func (r *JobRepository) List(ctx context.Context, limit, offset int) ([]domain.ProcessedJob, error) {
	var entries []domain.ProcessedJob
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}
