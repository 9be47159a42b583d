package bulk

import (
	"errors"
	"fmt"
)

// Bulk-specific errors.
var (
	// ErrInvalidCursor indicates the cursor format is invalid.
	ErrInvalidCursor = errors.New("bulk: invalid cursor format")

	// ErrResultsNotReady indicates the job has produced no results
	// yet.
	ErrResultsNotReady = errors.New("bulk: results not ready")

	// ErrNoFields indicates a query selected no fields.
	ErrNoFields = errors.New("bulk: query must select at least one field")
)

// FieldError reports a field that cannot be selected in a bulk query.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("bulk: field %s: %s", e.Field, e.Reason)
}

// JobError reports a job that ended in a terminal failure state.
type JobError struct {
	ID    string
	State State
}

func (e *JobError) Error() string {
	return fmt.Sprintf("bulk: job %s ended in state %s", e.ID, e.State)
}
