package wizard

import (
	"errors"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/jobspec"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/schedule"
)

// StepResult is the outcome of validating one step. Warnings never block.
type StepResult struct {
	Valid    bool              `json:"valid"`
	Messages map[string]string `json:"messages,omitempty"`
	Warnings map[string]string `json:"warnings,omitempty"`
}

// ValidateStep checks step n against s. It has no side effects.
func ValidateStep(n Step, s State) StepResult {
	res := StepResult{Messages: map[string]string{}, Warnings: map[string]string{}}
	j := s.Job

	switch n {
	case StepCollections:
		if j.ID == "" {
			res.Messages[jobspec.FieldName] = "Job name is required"
		}
		if j.SourceIndex == "" {
			res.Messages[jobspec.FieldSourceIndex] = "Source index is required"
		}
		if j.TargetIndex == "" {
			res.Messages[jobspec.FieldTargetIndex] = "Target index is required"
		}

	case StepAggregations:
		if j.DateHistogram == nil {
			res.Messages[jobspec.FieldDateHistogram] = "Select a timestamp field"
		}
		// Metrics without aggregations only block submission.
		for _, m := range j.Metrics {
			if len(m.Aggregations) == 0 {
				res.Warnings[jobspec.MetricField(m.Field.Path)] = "No aggregation selected"
			}
		}

	case StepSchedule:
		if _, err := schedule.Normalize(j.Schedule.Input()); err != nil {
			var se schedule.Errors
			if errors.As(err, &se) {
				for k, v := range se.Fields() {
					res.Messages[k] = v
				}
			} else {
				res.Messages["schedule"] = err.Error()
			}
		}
		if j.DelayMillis < 0 {
			res.Messages[schedule.FieldDelay] = "must not be negative"
		}

	case StepReview:
		if err := jobspec.Finalize(j); err != nil {
			var ve *jobspec.ValidationError
			if errors.As(err, &ve) {
				res.Messages = ve.Fields()
			} else {
				res.Messages["job"] = err.Error()
			}
		}

	default:
		res.Messages["step"] = "unknown step " + n.String()
	}

	res.Valid = len(res.Messages) == 0
	return res
}
