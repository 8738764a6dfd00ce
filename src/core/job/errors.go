package job

import "fmt"

// NotFoundError is returned when no job exists for the requested id.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job %q not found", e.JobID)
}

// InvalidTransitionError is returned when a status change is not in the
// legal transition table. It carries both endpoint states.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %q to %q", e.From, e.To)
}

// InvalidSignatureError is returned when a payment confirmation carries a
// signature that does not verify against the job id.
type InvalidSignatureError struct {
	JobID string
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("signature mismatch for job %q", e.JobID)
}
