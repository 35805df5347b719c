package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/fields"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/jobspec"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/schedule"
)

func stateWith(patch func(*jobspec.Job)) State {
	j := jobspec.New(jobspec.DefaultDefaults())
	patch(&j)
	return newState("s", j)
}

func TestValidateStep(t *testing.T) {
	dateField := fields.FieldDescriptor{Path: "ts", Type: fields.TypeDate}
	amount := fields.FieldDescriptor{Path: "amount", Type: fields.TypeNumeric}

	tests := []struct {
		name    string
		step    Step
		patch   func(*jobspec.Job)
		valid   bool
		message string
		warning string
	}{
		{
			name:    "collections empty",
			step:    StepCollections,
			patch:   func(j *jobspec.Job) {},
			message: jobspec.FieldName,
		},
		{
			name: "collections complete",
			step: StepCollections,
			patch: func(j *jobspec.Job) {
				j.ID, j.SourceIndex, j.TargetIndex = "a", "b-*", "c"
			},
			valid: true,
		},
		{
			name:    "aggregations without date histogram",
			step:    StepAggregations,
			patch:   func(j *jobspec.Job) {},
			message: jobspec.FieldDateHistogram,
		},
		{
			name: "aggregations with empty metric",
			step: StepAggregations,
			patch: func(j *jobspec.Job) {
				j.DateHistogram = &jobspec.DateHistogram{Field: dateField, Interval: hourly, Timezone: "UTC"}
				j.Metrics = []jobspec.Metric{{Field: amount}}
			},
			valid:   true,
			warning: jobspec.MetricField("amount"),
		},
		{
			name:    "fixed schedule zero period",
			step:    StepSchedule,
			patch:   func(j *jobspec.Job) { j.Schedule.Period = 0 },
			message: schedule.FieldPeriod,
		},
		{
			name: "cron schedule bad timezone",
			step: StepSchedule,
			patch: func(j *jobspec.Job) {
				j.Schedule = schedule.Spec{Kind: schedule.KindCron, Expression: "@daily", Timezone: "Nowhere/City"}
			},
			message: schedule.FieldTimezone,
		},
		{
			name:    "negative delay",
			step:    StepSchedule,
			patch:   func(j *jobspec.Job) { j.DelayMillis = -1 },
			message: schedule.FieldDelay,
		},
		{
			name:    "review runs finalize",
			step:    StepReview,
			patch:   func(j *jobspec.Job) { j.PageSize = 0 },
			message: jobspec.FieldPageSize,
		},
		{
			name:    "unknown step",
			step:    Step(7),
			patch:   func(j *jobspec.Job) {},
			message: "step",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateStep(tt.step, stateWith(tt.patch))
			assert.Equal(t, tt.valid, res.Valid)
			if tt.message != "" {
				assert.Contains(t, res.Messages, tt.message)
			} else {
				assert.Empty(t, res.Messages)
			}
			if tt.warning != "" {
				assert.Contains(t, res.Warnings, tt.warning)
			}
		})
	}
}

func TestValidateStep_IsPure(t *testing.T) {
	s := stateWith(func(j *jobspec.Job) {})
	before := s.Clone()
	ValidateStep(StepCollections, s)
	ValidateStep(StepReview, s)
	assert.Equal(t, before, s)
}
