package jobspec

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/fields"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/schedule"
)

// Document is the body of PUT _plugins/_rollup/jobs/<id>.
type Document struct {
	Rollup Rollup `json:"rollup"`
}

// Rollup is the job as the rollup plugin stores it.
type Rollup struct {
	Description string         `json:"description"`
	SourceIndex string         `json:"source_index"`
	TargetIndex string         `json:"target_index"`
	PageSize    int            `json:"page_size"`
	Delay       int64          `json:"delay"`
	Enabled     bool           `json:"enabled"`
	Continuous  bool           `json:"continuous"`
	Dimensions  []DimensionDoc `json:"dimensions"`
	Metrics     []MetricDoc    `json:"metrics"`
	Schedule    ScheduleDoc    `json:"schedule"`
}

// DimensionDoc holds exactly one of its members.
type DimensionDoc struct {
	DateHistogram *DateHistogramDoc `json:"date_histogram,omitempty"`
	Terms         *TermsDoc         `json:"terms,omitempty"`
	Histogram     *HistogramDoc     `json:"histogram,omitempty"`
}

type DateHistogramDoc struct {
	SourceField      string `json:"source_field"`
	FixedInterval    string `json:"fixed_interval,omitempty"`
	CalendarInterval string `json:"calendar_interval,omitempty"`
	Timezone         string `json:"timezone"`
}

type TermsDoc struct {
	SourceField string `json:"source_field"`
}

type HistogramDoc struct {
	SourceField string  `json:"source_field"`
	Interval    float64 `json:"interval"`
}

// MetricDoc lists aggregations as single-key objects, e.g. {"sum":{}}.
type MetricDoc struct {
	SourceField string                `json:"source_field"`
	Metrics     []map[string]struct{} `json:"metrics"`
}

// ScheduleDoc holds exactly one of Interval or Cron.
type ScheduleDoc struct {
	Interval *IntervalScheduleDoc `json:"interval,omitempty"`
	Cron     *CronScheduleDoc     `json:"cron,omitempty"`
}

type IntervalScheduleDoc struct {
	StartTime int64  `json:"start_time"`
	Period    int    `json:"period"`
	Unit      string `json:"unit"`
}

type CronScheduleDoc struct {
	Expression string `json:"expression"`
	Timezone   string `json:"timezone"`
}

// JobResponse is the plugin's reply to GET and PUT on a job.
type JobResponse struct {
	ID          string `json:"_id"`
	Version     int64  `json:"_version"`
	SeqNo       int64  `json:"_seq_no"`
	PrimaryTerm int64  `json:"_primary_term"`
	Rollup      Rollup `json:"rollup"`
}

// Encode renders j in the plugin's wire format. The date histogram, when
// set, is always the first dimension.
func Encode(j Job) (Document, error) {
	r := Rollup{
		Description: j.Description,
		SourceIndex: j.SourceIndex,
		TargetIndex: j.TargetIndex,
		PageSize:    j.PageSize,
		Delay:       j.DelayMillis,
		Enabled:     j.Enabled,
		Continuous:  j.Continuous,
		Dimensions:  make([]DimensionDoc, 0, len(j.Dimensions)+1),
		Metrics:     make([]MetricDoc, 0, len(j.Metrics)),
	}

	if dh := j.DateHistogram; dh != nil {
		key, value, err := dh.Interval.Encode()
		if err != nil {
			return Document{}, err
		}
		doc := &DateHistogramDoc{SourceField: dh.Field.Path, Timezone: dh.Timezone}
		if key == schedule.KeyCalendarInterval {
			doc.CalendarInterval = value
		} else {
			doc.FixedInterval = value
		}
		r.Dimensions = append(r.Dimensions, DimensionDoc{DateHistogram: doc})
	}

	for _, d := range j.Dimensions {
		switch d.Method {
		case MethodTerms:
			r.Dimensions = append(r.Dimensions, DimensionDoc{Terms: &TermsDoc{SourceField: d.Field.Path}})
		case MethodHistogram:
			r.Dimensions = append(r.Dimensions, DimensionDoc{
				Histogram: &HistogramDoc{SourceField: d.Field.Path, Interval: d.Interval},
			})
		default:
			return Document{}, fmt.Errorf("dimension %s: unsupported method %q", d.Field.Path, d.Method)
		}
	}

	for _, m := range j.Metrics {
		md := MetricDoc{SourceField: m.Field.Path, Metrics: make([]map[string]struct{}, 0, len(m.Aggregations))}
		for _, a := range m.Aggregations {
			md.Metrics = append(md.Metrics, map[string]struct{}{string(a): {}})
		}
		r.Metrics = append(r.Metrics, md)
	}

	switch j.Schedule.Kind {
	case schedule.KindCron:
		r.Schedule.Cron = &CronScheduleDoc{Expression: j.Schedule.Expression, Timezone: j.Schedule.Timezone}
	default:
		r.Schedule.Interval = &IntervalScheduleDoc{
			StartTime: j.Schedule.StartTime,
			Period:    j.Schedule.Period,
			Unit:      string(j.Schedule.Unit),
		}
	}

	return Document{Rollup: r}, nil
}

// Decode parses a GET response into an editable job. Field types are
// inferred from how each field is used; Reconcile replaces them with the
// resolved descriptors once the field set is known.
func Decode(raw []byte) (Job, error) {
	var resp JobResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Job{}, fmt.Errorf("decode rollup job: %w", err)
	}
	return FromResponse(resp)
}

// FromResponse converts a decoded response into a Job.
func FromResponse(resp JobResponse) (Job, error) {
	r := resp.Rollup
	j := Job{
		ID:          resp.ID,
		Description: r.Description,
		SourceIndex: r.SourceIndex,
		TargetIndex: r.TargetIndex,
		PageSize:    r.PageSize,
		DelayMillis: r.Delay,
		Enabled:     r.Enabled,
		Continuous:  r.Continuous,
		Dimensions:  []Dimension{},
		Metrics:     []Metric{},
	}
	seq, term := resp.SeqNo, resp.PrimaryTerm
	j.SeqNo, j.PrimaryTerm = &seq, &term

	for i, d := range r.Dimensions {
		switch {
		case d.DateHistogram != nil:
			if j.DateHistogram != nil {
				return Job{}, fmt.Errorf("dimension %d: second date_histogram", i)
			}
			dh := d.DateHistogram
			key, value := schedule.KeyFixedInterval, dh.FixedInterval
			if dh.CalendarInterval != "" {
				key, value = schedule.KeyCalendarInterval, dh.CalendarInterval
			}
			iv, err := schedule.ParseInterval(key, value)
			if err != nil {
				return Job{}, fmt.Errorf("dimension %d: %w", i, err)
			}
			tz := dh.Timezone
			if tz == "" {
				tz = "UTC"
			}
			j.DateHistogram = &DateHistogram{
				Field:    fields.FieldDescriptor{Path: dh.SourceField, Type: fields.TypeDate},
				Interval: iv,
				Timezone: tz,
			}
		case d.Terms != nil:
			j.Dimensions = append(j.Dimensions, Dimension{
				Field:  fields.FieldDescriptor{Path: d.Terms.SourceField, Type: fields.TypeKeyword},
				Method: MethodTerms,
			})
		case d.Histogram != nil:
			j.Dimensions = append(j.Dimensions, Dimension{
				Field:    fields.FieldDescriptor{Path: d.Histogram.SourceField, Type: fields.TypeNumeric},
				Method:   MethodHistogram,
				Interval: d.Histogram.Interval,
			})
		default:
			return Job{}, fmt.Errorf("dimension %d: empty", i)
		}
	}

	for _, md := range r.Metrics {
		var aggs []Aggregation
		for _, entry := range md.Metrics {
			for name := range entry {
				a, err := ParseAggregation(name)
				if err != nil {
					return Job{}, fmt.Errorf("metric %s: %w", md.SourceField, err)
				}
				aggs = append(aggs, a)
			}
		}
		j.Metrics = append(j.Metrics, Metric{
			Field:        fields.FieldDescriptor{Path: md.SourceField, Type: fields.TypeNumeric},
			Aggregations: orderAggs(aggs),
		})
	}

	switch {
	case r.Schedule.Cron != nil:
		j.Schedule = schedule.Spec{
			Kind:       schedule.KindCron,
			Expression: r.Schedule.Cron.Expression,
			Timezone:   r.Schedule.Cron.Timezone,
		}
	case r.Schedule.Interval != nil:
		unit, err := schedule.ParseUnit(r.Schedule.Interval.Unit)
		if err != nil {
			return Job{}, err
		}
		j.Schedule = schedule.Spec{
			Kind:      schedule.KindFixed,
			Period:    r.Schedule.Interval.Period,
			Unit:      unit,
			StartTime: r.Schedule.Interval.StartTime,
		}
	default:
		return Job{}, fmt.Errorf("rollup job %s has no schedule", resp.ID)
	}

	return j, nil
}

// Reconcile swaps the inferred descriptors of a decoded job for the
// resolved ones. It returns the paths that are missing from resolved.
func Reconcile(j Job, resolved []fields.FieldDescriptor) (Job, []string) {
	out := j.Clone()
	missing := map[string]bool{}

	lookup := func(d fields.FieldDescriptor, allowed ...fields.FieldType) fields.FieldDescriptor {
		for _, r := range resolved {
			if r.Path != d.Path {
				continue
			}
			for _, t := range allowed {
				if r.Type == t {
					return r
				}
			}
		}
		missing[d.Path] = true
		return d
	}

	if out.DateHistogram != nil {
		out.DateHistogram.Field = lookup(out.DateHistogram.Field, fields.TypeDate)
	}
	for i, d := range out.Dimensions {
		if d.Method == MethodTerms {
			out.Dimensions[i].Field = lookup(d.Field, fields.TypeKeyword, fields.TypeNumeric)
		} else {
			out.Dimensions[i].Field = lookup(d.Field, fields.TypeNumeric)
		}
	}
	for i, m := range out.Metrics {
		out.Metrics[i].Field = lookup(m.Field, fields.TypeNumeric)
	}

	paths := make([]string, 0, len(missing))
	for p := range missing {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return out, paths
}
