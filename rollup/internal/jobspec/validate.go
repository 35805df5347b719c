package jobspec

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/fields"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/schedule"
)

// Field names reported in validation problems.
const (
	FieldName          = "name"
	FieldSourceIndex   = "source_index"
	FieldTargetIndex   = "target_index"
	FieldDateHistogram = "date_histogram"
	FieldDimensions    = "dimensions"
	FieldMetrics       = "metrics"
	FieldPageSize      = "page_size"
)

// Problem is one finalization failure.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every problem that blocks submission.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Message)
	}
	return "invalid rollup job: " + strings.Join(parts, "; ")
}

// Fields returns field -> message. Later problems on the same field win.
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Problems))
	for _, p := range e.Problems {
		out[p.Field] = p.Message
	}
	return out
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Problems = append(e.Problems, Problem{Field: field, Message: fmt.Sprintf(format, args...)})
}

// MetricField is the problem key for the metric on path.
func MetricField(path string) string {
	return FieldMetrics + "." + path
}

// Finalize checks everything the rollup plugin requires of a job. It
// returns a *ValidationError or nil.
func Finalize(j Job) error {
	ve := &ValidationError{}

	if j.ID == "" {
		ve.add(FieldName, "is required")
	} else if strings.ContainsAny(j.ID, " \t/\\#*?\"<>|,") {
		ve.add(FieldName, "must not contain whitespace or any of /\\#*?\"<>|,")
	}
	if j.SourceIndex == "" {
		ve.add(FieldSourceIndex, "is required")
	}
	if j.TargetIndex == "" {
		ve.add(FieldTargetIndex, "is required")
	} else if strings.ContainsAny(j.TargetIndex, "*?") {
		ve.add(FieldTargetIndex, "must be a concrete index name")
	}

	switch dh := j.DateHistogram; {
	case dh == nil:
		ve.add(FieldDateHistogram, "a date field is required")
	case dh.Field.Type != fields.TypeDate:
		ve.add(FieldDateHistogram, "%s is %s, not date", dh.Field.Path, dh.Field.Type)
	default:
		if err := dh.Interval.Validate(); err != nil {
			ve.add(FieldDateHistogram, "%v", err)
		}
	}

	for _, d := range j.Dimensions {
		if d.Method == MethodHistogram && d.Interval <= 0 {
			ve.add(FieldDimensions, "histogram on %s needs a positive interval", d.Field.Path)
		}
	}

	for _, m := range j.Metrics {
		if len(m.Aggregations) == 0 {
			ve.add(MetricField(m.Field.Path), "select at least one aggregation")
		}
	}

	if j.PageSize < 1 {
		ve.add(FieldPageSize, "must be at least 1")
	}
	if j.DelayMillis < 0 {
		ve.add(schedule.FieldDelay, "must not be negative")
	}

	if _, err := schedule.Normalize(j.Schedule.Input()); err != nil {
		var se schedule.Errors
		if errors.As(err, &se) {
			for _, fe := range se {
				ve.add(fe.Field, "%s", fe.Message)
			}
		} else {
			ve.add("schedule", "%v", err)
		}
	}

	if len(ve.Problems) > 0 {
		return ve
	}
	return nil
}

// Prepare normalizes the schedule with n and finalizes the result. The
// returned job is ready to Encode.
func Prepare(j Job, n *schedule.Normalizer) (Job, error) {
	if err := Finalize(j); err != nil {
		return j, err
	}
	spec, err := n.Normalize(j.Schedule.Input())
	if err != nil {
		return j, err
	}
	out := j.Clone()
	out.Schedule = spec
	return out, nil
}

// SortedFields returns the fields of a validation message map in order,
// for stable rendering.
func SortedFields(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
