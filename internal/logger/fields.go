package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields propagated through the call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldJobID is the memory-extraction job ID from the notification
	FieldJobID = "job_id"

	// FieldMemoryID is the target memory resource ID
	FieldMemoryID = "memory_id"

	// FieldStage is the current pipeline stage
	FieldStage = "stage"

	// FieldComponent is the component/module name
	FieldComponent = "component"
)

// Metric fields attached at the log site.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldSize is a response or payload size in bytes
	FieldSize = "size"
)
