// Package events announces rollup job lifecycle changes on the message bus.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/logging"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/messaging"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/jobspec"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/wizard"
)

// JobEvent is the payload of every rollup.jobs.* message.
type JobEvent struct {
	SessionID   string    `json:"session_id"`
	JobID       string    `json:"job_id"`
	Action      string    `json:"action"`
	Succeeded   bool      `json:"succeeded"`
	SourceIndex string    `json:"source_index"`
	TargetIndex string    `json:"target_index"`
	Enabled     bool      `json:"enabled"`
	SeqNo       *int64    `json:"seq_no,omitempty"`
	PrimaryTerm *int64    `json:"primary_term,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher implements wizard.SubmitObserver on a messaging.Publisher.
type Publisher struct {
	pub    messaging.Publisher
	logger *logging.Logger
	now    func() time.Time
}

func NewPublisher(pub messaging.Publisher, logger *logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{pub: pub, logger: logger, now: time.Now}
}

// Subject picks the subject for a submission outcome.
func Subject(sub wizard.Submission) string {
	switch {
	case !sub.Succeeded():
		return messaging.SubjectRollupJobsFailed
	case sub.Action == "update":
		return messaging.SubjectRollupJobsUpdated
	default:
		return messaging.SubjectRollupJobsCreated
	}
}

func (p *Publisher) event(sub wizard.Submission) JobEvent {
	ev := JobEvent{
		SessionID:   sub.SessionID,
		JobID:       sub.JobID,
		Action:      sub.Action,
		Succeeded:   sub.Succeeded(),
		SourceIndex: sub.Document.Rollup.SourceIndex,
		TargetIndex: sub.Document.Rollup.TargetIndex,
		Enabled:     sub.Document.Rollup.Enabled,
		Timestamp:   p.now().UTC(),
	}
	if sub.Response != nil {
		seq, term := sub.Response.SeqNo, sub.Response.PrimaryTerm
		ev.SeqNo, ev.PrimaryTerm = &seq, &term
	}
	if sub.Err != nil {
		ev.Reason = sub.Err.Error()
		var se *jobspec.SubmissionError
		if errors.As(sub.Err, &se) {
			ev.Reason = se.Reason
		}
	}
	return ev
}

func (p *Publisher) ObserveSubmission(ctx context.Context, sub wizard.Submission) error {
	data, err := json.Marshal(p.event(sub))
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}

	subject := messaging.RollupJobSubject(Subject(sub), sub.JobID)
	if err := p.pub.Publish(ctx, subject, data, messaging.WithHeader(messaging.HeaderSession, sub.SessionID)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.DebugContext(ctx, "published job event", "subject", subject, logging.FieldJobID, sub.JobID)
	return nil
}

// PublishCancelled announces a discarded wizard session.
func (p *Publisher) PublishCancelled(ctx context.Context, sessionID, jobID string) error {
	data, err := json.Marshal(map[string]any{
		"session_id": sessionID,
		"job_id":     jobID,
		"timestamp":  p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal cancel event: %w", err)
	}
	return p.pub.Publish(ctx, messaging.SubjectRollupWizardsCancelled, data, messaging.WithHeader(messaging.HeaderSession, sessionID))
}
