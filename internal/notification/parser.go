package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/timmy/memflow/internal/domain"
	"github.com/timmy/memflow/internal/logger"
)

// Event is the queue event delivered to the pipeline. Exactly one record is
// expected per invocation.
type Event struct {
	Records []Record `json:"Records"`
}

// Record is a single queue message within an event.
type Record struct {
	MessageID string `json:"messageId"`
	Body      string `json:"body"`
}

// envelope is the notification layer inside a record body. Message is itself
// a JSON-encoded string carrying the job fields.
type envelope struct {
	Message string `json:"Message"`
}

// message holds the job fields of the innermost notification layer. Pointers
// distinguish absent fields from empty ones.
type message struct {
	JobID             *string `json:"jobId"`
	MemoryID          *string `json:"memoryId"`
	StrategyID        *string `json:"strategyId"`
	S3PayloadLocation *string `json:"s3PayloadLocation"`
}

// Parser turns raw queue events into immutable jobs.
type Parser struct{}

// NewParser creates a new notification parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse validates the event shape, unwraps the nested notification envelope
// and extracts the job metadata.
func (p *Parser) Parse(ctx context.Context, data []byte) (*domain.Job, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, &MalformedEventError{Reason: "event is not valid JSON", Err: err}
	}
	return p.ParseEvent(ctx, &evt)
}

// ParseEvent extracts the job from an already decoded event.
func (p *Parser) ParseEvent(ctx context.Context, evt *Event) (*domain.Job, error) {
	if evt == nil || len(evt.Records) != 1 {
		count := 0
		if evt != nil {
			count = len(evt.Records)
		}
		return nil, &MalformedEventError{Reason: fmt.Sprintf("expected 1 record, got %d", count)}
	}

	record := evt.Records[0]

	var env envelope
	if err := json.Unmarshal([]byte(record.Body), &env); err != nil {
		return nil, &MalformedEventError{Reason: "record body is not valid JSON", Err: err}
	}
	if env.Message == "" {
		return nil, &MissingFieldError{Field: "Message"}
	}

	var msg message
	if err := json.Unmarshal([]byte(env.Message), &msg); err != nil {
		return nil, &MalformedEventError{Reason: "notification message is not valid JSON", Err: err}
	}

	logger.CtxDebug(ctx, "Parsed notification message: %s", env.Message)

	job := &domain.Job{}
	for _, field := range []struct {
		name string
		src  *string
		dst  *string
	}{
		{"jobId", msg.JobID, &job.JobID},
		{"memoryId", msg.MemoryID, &job.MemoryID},
		{"strategyId", msg.StrategyID, &job.StrategyID},
		{"s3PayloadLocation", msg.S3PayloadLocation, &job.PayloadLocation},
	} {
		if field.src == nil || *field.src == "" {
			return nil, &MissingFieldError{Field: field.name}
		}
		*field.dst = *field.src
	}

	return job, nil
}
