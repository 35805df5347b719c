package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/jobspec"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/wizard"
)

// Observer writes each wizard submission to a Recorder.
type Observer struct {
	recorder Recorder
}

func NewObserver(recorder Recorder) *Observer {
	return &Observer{recorder: recorder}
}

// NewEntry converts a submission into an audit entry.
func NewEntry(sub wizard.Submission) (*Entry, error) {
	doc, err := json.Marshal(sub.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	e := &Entry{
		SessionID:  sub.SessionID,
		JobID:      sub.JobID,
		Action:     sub.Action,
		Succeeded:  sub.Succeeded(),
		Document:   doc,
		DurationMs: sub.Duration.Milliseconds(),
	}
	if sub.Response != nil {
		seq, term := sub.Response.SeqNo, sub.Response.PrimaryTerm
		e.SeqNo = &seq
		e.PrimaryTerm = &term
	}
	if sub.Err != nil {
		e.Reason = sub.Err.Error()
		var se *jobspec.SubmissionError
		if errors.As(sub.Err, &se) {
			e.Status = se.Status
			e.Reason = se.Reason
		}
	}
	return e, nil
}

func (o *Observer) ObserveSubmission(ctx context.Context, sub wizard.Submission) error {
	e, err := NewEntry(sub)
	if err != nil {
		return err
	}
	return o.recorder.Record(ctx, e)
}
