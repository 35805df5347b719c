package jobspec

import "fmt"

// Concurrency carries the optimistic concurrency markers of an edited job.
type Concurrency struct {
	SeqNo       int64
	PrimaryTerm int64
}

// Concurrency returns nil for new jobs.
func (j Job) Concurrency() *Concurrency {
	if !j.IsEdit() {
		return nil
	}
	return &Concurrency{SeqNo: *j.SeqNo, PrimaryTerm: *j.PrimaryTerm}
}

// SubmissionError is a rejection from the rollup plugin. Reason is the
// backend's message, shown to the user as is.
type SubmissionError struct {
	Status int
	Type   string
	Reason string
}

func (e *SubmissionError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("rollup job rejected (%d): %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("rollup job rejected (%d %s): %s", e.Status, e.Type, e.Reason)
}

// Conflict reports a stale seq_no/primary_term on update.
func (e *SubmissionError) Conflict() bool {
	return e.Status == 409
}
