package domain

import "time"

// IngestionRecord is the batch-write unit submitted to the downstream memory
// store. Derived 1:1 from an ExtractedFact; not retained after submission.
//
// RequestID is a fresh UUID per submission attempt. Re-running the same job
// therefore produces new identifiers for logically identical facts.
type IngestionRecord struct {
	RequestID  string
	Content    string
	Namespaces []string
	StrategyID string
	Timestamp  time.Time
}
