package domain

import "time"

// Job describes a single memory-extraction job parsed from a queue
// notification. It is immutable and consumed exactly once per invocation.
type Job struct {
	JobID           string
	MemoryID        string
	StrategyID      string
	PayloadLocation string
}

// JobStatus represents the status of a processed pipeline job.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ProcessedJob is the ledger record kept for every pipeline invocation.
type ProcessedJob struct {
	ID              string     `gorm:"type:text;primaryKey" json:"id"`
	JobID           string     `gorm:"type:text;not null;index" json:"job_id"`
	MemoryID        string     `gorm:"type:text;not null;index" json:"memory_id"`
	StrategyID      string     `gorm:"type:text" json:"strategy_id"`
	PayloadLocation string     `gorm:"type:text" json:"payload_location"`
	Status          JobStatus  `gorm:"default:running" json:"status"`
	ExtractedFacts  int        `gorm:"default:0" json:"extracted_facts"`
	IngestedRecords int        `gorm:"default:0" json:"ingested_records"`
	Degraded        bool       `gorm:"default:false" json:"degraded"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ProcessedJob.
func (ProcessedJob) TableName() string {
	return "processed_jobs"
}
