// Package jobspec holds the rollup job specification the wizard accumulates,
// the patch operations that evolve it, and its wire encoding.
package jobspec

import (
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/fields"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/schedule"
)

// Method is a dimension bucketing method.
type Method string

const (
	MethodTerms         Method = "terms"
	MethodHistogram     Method = "histogram"
	MethodDateHistogram Method = "date_histogram"
)

// Aggregation is a metric aggregation function.
type Aggregation string

const (
	AggMin        Aggregation = "min"
	AggMax        Aggregation = "max"
	AggSum        Aggregation = "sum"
	AggAvg        Aggregation = "avg"
	AggValueCount Aggregation = "value_count"
)

// Aggregations is the canonical aggregation order used in documents.
var Aggregations = []Aggregation{AggMin, AggMax, AggSum, AggAvg, AggValueCount}

// DateHistogram is the distinguished time-bucketing dimension.
type DateHistogram struct {
	Field    fields.FieldDescriptor `json:"field"`
	Interval schedule.Interval      `json:"interval"`
	Timezone string                 `json:"timezone"`
}

// Dimension is a terms or histogram grouping.
type Dimension struct {
	Field    fields.FieldDescriptor `json:"field"`
	Method   Method                 `json:"method"`
	Interval float64                `json:"interval,omitempty"`
}

// Metric is a numeric field with its enabled aggregations.
type Metric struct {
	Field        fields.FieldDescriptor `json:"field"`
	Aggregations []Aggregation          `json:"aggregations"`
}

// Job is the rollup job specification. Values are treated as immutable:
// every patch returns a fresh copy.
type Job struct {
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	SourceIndex   string         `json:"source_index"`
	TargetIndex   string         `json:"target_index"`
	DateHistogram *DateHistogram `json:"date_histogram,omitempty"`
	Dimensions    []Dimension    `json:"dimensions"`
	Metrics       []Metric       `json:"metrics"`
	Schedule      schedule.Spec  `json:"schedule"`
	PageSize      int            `json:"page_size"`
	DelayMillis   int64          `json:"delay"`
	Enabled       bool           `json:"enabled"`
	Continuous    bool           `json:"continuous"`

	// Set when editing an existing job; sent as optimistic concurrency
	// parameters.
	SeqNo       *int64 `json:"seq_no,omitempty"`
	PrimaryTerm *int64 `json:"primary_term,omitempty"`
}

// Defaults seed a new job.
type Defaults struct {
	PageSize     int
	Timezone     string
	ScheduleUnit schedule.Unit
	Period       int
	Enabled      bool
}

// DefaultDefaults mirrors the rollup plugin's form defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		PageSize:     1000,
		Timezone:     "UTC",
		ScheduleUnit: schedule.Minutes,
		Period:       1,
		Enabled:      true,
	}
}

// New returns an empty job seeded with d.
func New(d Defaults) Job {
	return Job{
		Dimensions: []Dimension{},
		Metrics:    []Metric{},
		Schedule: schedule.Spec{
			Kind:     schedule.KindFixed,
			Period:   d.Period,
			Unit:     d.ScheduleUnit,
			Timezone: d.Timezone,
		},
		PageSize: d.PageSize,
		Enabled:  d.Enabled,
	}
}

// IsEdit reports whether the job was loaded from the cluster.
func (j Job) IsEdit() bool {
	return j.SeqNo != nil && j.PrimaryTerm != nil
}

// Clone deep-copies j.
func (j Job) Clone() Job {
	out := j
	if j.DateHistogram != nil {
		dh := *j.DateHistogram
		out.DateHistogram = &dh
	}
	out.Dimensions = append([]Dimension{}, j.Dimensions...)
	out.Metrics = make([]Metric, len(j.Metrics))
	for i, m := range j.Metrics {
		out.Metrics[i] = Metric{Field: m.Field, Aggregations: append([]Aggregation{}, m.Aggregations...)}
	}
	if j.SeqNo != nil {
		v := *j.SeqNo
		out.SeqNo = &v
	}
	if j.PrimaryTerm != nil {
		v := *j.PrimaryTerm
		out.PrimaryTerm = &v
	}
	return out
}
