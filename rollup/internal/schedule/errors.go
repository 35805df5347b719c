package schedule

import "strings"

// FieldError is a validation failure tied to one input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Errors collects every FieldError found in one normalization.
type Errors []*FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Error())
	}
	return "invalid schedule: " + strings.Join(parts, "; ")
}

// Fields returns field -> message.
func (e Errors) Fields() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		out[fe.Field] = fe.Message
	}
	return out
}

// Field names used in FieldError.
const (
	FieldPeriod       = "schedule.period"
	FieldUnit         = "schedule.unit"
	FieldKind         = "schedule.kind"
	FieldExpression   = "schedule.cron_expression"
	FieldTimezone     = "schedule.timezone"
	FieldDelay        = "delay"
	FieldInterval     = "date_histogram.interval"
	FieldIntervalUnit = "date_histogram.unit"
)
