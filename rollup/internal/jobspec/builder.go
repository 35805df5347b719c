package jobspec

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/fields"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/schedule"
)

var (
	ErrNoDateHistogram   = errors.New("no date histogram selected")
	ErrDuplicate         = errors.New("field already selected")
	ErrIncompatibleField = errors.New("field type not allowed")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrUnknownAgg        = errors.New("unknown aggregation")
)

// SetJobName sets the job id.
func SetJobName(j Job, name string) Job {
	out := j.Clone()
	out.ID = strings.TrimSpace(name)
	return out
}

// SetDescription sets the free-form description.
func SetDescription(j Job, desc string) Job {
	out := j.Clone()
	out.Description = desc
	return out
}

// SetSourceIndex changes the source pattern. A different pattern drops the
// date histogram, dimensions and metrics since they were chosen from the
// previous field set.
func SetSourceIndex(j Job, pattern string) Job {
	out := j.Clone()
	pattern = strings.TrimSpace(pattern)
	if pattern == out.SourceIndex {
		return out
	}
	out.SourceIndex = pattern
	out.DateHistogram = nil
	out.Dimensions = []Dimension{}
	out.Metrics = []Metric{}
	return out
}

// SetTargetIndex sets the rollup target index.
func SetTargetIndex(j Job, target string) Job {
	out := j.Clone()
	out.TargetIndex = strings.TrimSpace(target)
	return out
}

// SetDateHistogram selects the time-bucketing field. An empty timezone is UTC.
func SetDateHistogram(j Job, field fields.FieldDescriptor, iv schedule.Interval, tz string) (Job, error) {
	if field.Type != fields.TypeDate {
		return j, fmt.Errorf("date histogram on %s (%s): %w", field.Path, field.Type, ErrIncompatibleField)
	}
	if err := iv.Validate(); err != nil {
		return j, err
	}
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return j, fmt.Errorf("timezone %q: %w", tz, err)
	}
	out := j.Clone()
	out.DateHistogram = &DateHistogram{Field: field, Interval: iv, Timezone: tz}
	return out, nil
}

// SetDateHistogramInterval replaces the interval of the selected date
// histogram. The previous interval type is discarded entirely.
func SetDateHistogramInterval(j Job, iv schedule.Interval) (Job, error) {
	if j.DateHistogram == nil {
		return j, ErrNoDateHistogram
	}
	if err := iv.Validate(); err != nil {
		return j, err
	}
	out := j.Clone()
	out.DateHistogram.Interval = iv
	return out, nil
}

// ClearDateHistogram removes the date histogram selection.
func ClearDateHistogram(j Job) Job {
	out := j.Clone()
	out.DateHistogram = nil
	return out
}

// AddDimension appends a terms or histogram dimension.
func AddDimension(j Job, d Dimension) (Job, error) {
	switch d.Method {
	case MethodTerms:
		if d.Field.Type != fields.TypeKeyword && d.Field.Type != fields.TypeNumeric {
			return j, fmt.Errorf("terms on %s (%s): %w", d.Field.Path, d.Field.Type, ErrIncompatibleField)
		}
		d.Interval = 0
	case MethodHistogram:
		if d.Field.Type != fields.TypeNumeric {
			return j, fmt.Errorf("histogram on %s (%s): %w", d.Field.Path, d.Field.Type, ErrIncompatibleField)
		}
		if d.Interval <= 0 {
			return j, fmt.Errorf("histogram on %s: interval must be positive", d.Field.Path)
		}
	case MethodDateHistogram:
		return j, fmt.Errorf("use SetDateHistogram for %s", d.Field.Path)
	default:
		return j, fmt.Errorf("unknown dimension method %q", d.Method)
	}

	for _, existing := range j.Dimensions {
		if existing.Field.Path == d.Field.Path && existing.Method == d.Method {
			return j, fmt.Errorf("%s %s: %w", d.Method, d.Field.Path, ErrDuplicate)
		}
	}
	out := j.Clone()
	out.Dimensions = append(out.Dimensions, d)
	return out, nil
}

// RemoveDimension deletes the dimension at i.
func RemoveDimension(j Job, i int) (Job, error) {
	if i < 0 || i >= len(j.Dimensions) {
		return j, fmt.Errorf("dimension %d: %w", i, ErrIndexOutOfRange)
	}
	out := j.Clone()
	out.Dimensions = append(out.Dimensions[:i], out.Dimensions[i+1:]...)
	return out, nil
}

// ReorderDimension moves the dimension at from to position to.
func ReorderDimension(j Job, from, to int) (Job, error) {
	n := len(j.Dimensions)
	if from < 0 || from >= n || to < 0 || to >= n {
		return j, fmt.Errorf("move %d to %d: %w", from, to, ErrIndexOutOfRange)
	}
	out := j.Clone()
	d := out.Dimensions[from]
	dims := append(out.Dimensions[:from:from], out.Dimensions[from+1:]...)
	dims = append(dims[:to], append([]Dimension{d}, dims[to:]...)...)
	out.Dimensions = dims
	return out, nil
}

// AddMetric appends a numeric metric. aggs may be empty; submission
// rejects it later.
func AddMetric(j Job, field fields.FieldDescriptor, aggs ...Aggregation) (Job, error) {
	if field.Type != fields.TypeNumeric {
		return j, fmt.Errorf("metric on %s (%s): %w", field.Path, field.Type, ErrIncompatibleField)
	}
	for _, m := range j.Metrics {
		if m.Field.Path == field.Path {
			return j, fmt.Errorf("metric %s: %w", field.Path, ErrDuplicate)
		}
	}
	canon, err := canonicalAggs(aggs)
	if err != nil {
		return j, err
	}
	out := j.Clone()
	out.Metrics = append(out.Metrics, Metric{Field: field, Aggregations: canon})
	return out, nil
}

// RemoveMetric deletes the metric at i.
func RemoveMetric(j Job, i int) (Job, error) {
	if i < 0 || i >= len(j.Metrics) {
		return j, fmt.Errorf("metric %d: %w", i, ErrIndexOutOfRange)
	}
	out := j.Clone()
	out.Metrics = append(out.Metrics[:i], out.Metrics[i+1:]...)
	return out, nil
}

// SetMetricAggregations replaces the aggregations of the metric at i.
func SetMetricAggregations(j Job, i int, aggs ...Aggregation) (Job, error) {
	if i < 0 || i >= len(j.Metrics) {
		return j, fmt.Errorf("metric %d: %w", i, ErrIndexOutOfRange)
	}
	canon, err := canonicalAggs(aggs)
	if err != nil {
		return j, err
	}
	out := j.Clone()
	out.Metrics[i].Aggregations = canon
	return out, nil
}

// SetSchedule stores the schedule as entered. It is normalized on submit.
func SetSchedule(j Job, s schedule.Spec) Job {
	out := j.Clone()
	out.Schedule = s
	return out
}

// SetPaging sets the page size. Values below one are kept and reported by
// Finalize.
func SetPaging(j Job, size int) Job {
	out := j.Clone()
	out.PageSize = size
	return out
}

func SetEnabled(j Job, enabled bool) Job {
	out := j.Clone()
	out.Enabled = enabled
	return out
}

func SetContinuous(j Job, continuous bool) Job {
	out := j.Clone()
	out.Continuous = continuous
	return out
}

// SetDelay stores the delay in milliseconds.
func SetDelay(j Job, value *int64, unit schedule.DelayUnit) (Job, error) {
	ms, err := schedule.DelayMillis(value, unit)
	if err != nil {
		return j, err
	}
	out := j.Clone()
	out.DelayMillis = ms
	return out, nil
}

// ParseAggregation accepts the wire names plus "count".
func ParseAggregation(s string) (Aggregation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "count" {
		return AggValueCount, nil
	}
	for _, a := range Aggregations {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownAgg)
}

// canonicalAggs parses aggs and returns them in canonical order.
func canonicalAggs(aggs []Aggregation) ([]Aggregation, error) {
	parsed := make([]Aggregation, 0, len(aggs))
	for _, a := range aggs {
		p, err := ParseAggregation(string(a))
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, p)
	}
	return orderAggs(parsed), nil
}

// orderAggs dedupes already parsed aggs and orders them as in Aggregations.
func orderAggs(aggs []Aggregation) []Aggregation {
	seen := make(map[Aggregation]bool, len(aggs))
	for _, a := range aggs {
		seen[a] = true
	}
	out := make([]Aggregation, 0, len(seen))
	for _, a := range Aggregations {
		if seen[a] {
			out = append(out, a)
		}
	}
	return out
}
