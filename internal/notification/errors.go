package notification

import "fmt"

// MalformedEventError indicates the queue event did not have the expected
// shape (not JSON, wrong record count, or an unparseable envelope layer).
type MalformedEventError struct {
	Reason string
	Err    error
}

func (e *MalformedEventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed queue event: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed queue event: %s", e.Reason)
}

func (e *MalformedEventError) Unwrap() error {
	return e.Err
}

// MissingFieldError indicates a required job field was absent from the
// notification message.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("notification missing required field %q", e.Field)
}
