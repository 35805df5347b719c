package wizard

import (
	"errors"
	"fmt"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/jobspec"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/schedule"
)

// ErrUnknownAction is returned by Dispatch for an unrecognized Type.
var ErrUnknownAction = errors.New("unknown action")

// Action types accepted by Dispatch.
const (
	ActionSetJobName               = "set_job_name"
	ActionSetDescription           = "set_description"
	ActionSetSourceIndex           = "set_source_index"
	ActionReloadFields             = "reload_fields"
	ActionSetTargetIndex           = "set_target_index"
	ActionSetDateHistogram         = "set_date_histogram"
	ActionSetDateHistogramInterval = "set_date_histogram_interval"
	ActionClearDateHistogram       = "clear_date_histogram"
	ActionAddDimension             = "add_dimension"
	ActionRemoveDimension          = "remove_dimension"
	ActionReorderDimension         = "reorder_dimension"
	ActionAddMetric                = "add_metric"
	ActionRemoveMetric             = "remove_metric"
	ActionSetMetricAggregations    = "set_metric_aggregations"
	ActionSetSchedule              = "set_schedule"
	ActionSetPageSize              = "set_page_size"
	ActionSetEnabled               = "set_enabled"
	ActionSetContinuous            = "set_continuous"
	ActionSetDelay                 = "set_delay"
)

// Action is a serialized patch, as sent by the HTTP API and job files.
// Only the members relevant to Type are read.
type Action struct {
	Type string `json:"type" yaml:"type"`

	Value string `json:"value,omitempty" yaml:"value,omitempty"`
	Flag  *bool  `json:"flag,omitempty" yaml:"flag,omitempty"`

	Field         string   `json:"field,omitempty" yaml:"field,omitempty"`
	Method        string   `json:"method,omitempty" yaml:"method,omitempty"`
	Interval      float64  `json:"interval,omitempty" yaml:"interval,omitempty"`
	IntervalType  string   `json:"interval_type,omitempty" yaml:"interval_type,omitempty"`
	IntervalValue int      `json:"interval_value,omitempty" yaml:"interval_value,omitempty"`
	IntervalUnit  string   `json:"interval_unit,omitempty" yaml:"interval_unit,omitempty"`
	Timezone      string   `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Aggregations  []string `json:"aggregations,omitempty" yaml:"aggregations,omitempty"`

	Index int `json:"index,omitempty" yaml:"index,omitempty"`
	From  int `json:"from,omitempty" yaml:"from,omitempty"`
	To    int `json:"to,omitempty" yaml:"to,omitempty"`

	Kind           string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Period         int    `json:"period,omitempty" yaml:"period,omitempty"`
	Unit           string `json:"unit,omitempty" yaml:"unit,omitempty"`
	CronExpression string `json:"cron_expression,omitempty" yaml:"cron_expression,omitempty"`
	CronTimezone   string `json:"cron_timezone,omitempty" yaml:"cron_timezone,omitempty"`

	PageSize  int    `json:"page_size,omitempty" yaml:"page_size,omitempty"`
	Delay     *int64 `json:"delay,omitempty" yaml:"delay,omitempty"`
	DelayUnit string `json:"delay_unit,omitempty" yaml:"delay_unit,omitempty"`
}

// Dispatch applies a. A source index change returns the field request the
// caller must resolve.
func (c *Controller) Dispatch(a Action) (*FieldRequest, error) {
	switch a.Type {
	case ActionSetJobName:
		return nil, c.SetJobName(a.Value)
	case ActionSetDescription:
		return nil, c.SetDescription(a.Value)
	case ActionSetSourceIndex:
		req, err := c.SetSourceIndex(a.Value)
		if err != nil {
			return nil, err
		}
		return &req, nil
	case ActionReloadFields:
		req, err := c.ReloadFields()
		if err != nil {
			return nil, err
		}
		return &req, nil
	case ActionSetTargetIndex:
		return nil, c.SetTargetIndex(a.Value)

	case ActionSetDateHistogram:
		iv, err := a.interval()
		if err != nil {
			return nil, err
		}
		return nil, c.SetDateHistogram(a.Field, iv, a.Timezone)
	case ActionSetDateHistogramInterval:
		iv, err := a.interval()
		if err != nil {
			return nil, err
		}
		return nil, c.SetDateHistogramInterval(iv)
	case ActionClearDateHistogram:
		return nil, c.ClearDateHistogram()

	case ActionAddDimension:
		method := jobspec.Method(a.Method)
		if method == "" {
			method = jobspec.MethodTerms
		}
		return nil, c.AddDimension(a.Field, method, a.Interval)
	case ActionRemoveDimension:
		return nil, c.RemoveDimension(a.Index)
	case ActionReorderDimension:
		return nil, c.ReorderDimension(a.From, a.To)

	case ActionAddMetric:
		aggs, err := parseAggregations(a.Aggregations)
		if err != nil {
			return nil, err
		}
		return nil, c.AddMetric(a.Field, aggs...)
	case ActionRemoveMetric:
		return nil, c.RemoveMetric(a.Index)
	case ActionSetMetricAggregations:
		aggs, err := parseAggregations(a.Aggregations)
		if err != nil {
			return nil, err
		}
		return nil, c.SetMetricAggregations(a.Index, aggs...)

	case ActionSetSchedule:
		spec, err := a.schedule()
		if err != nil {
			return nil, err
		}
		return nil, c.SetSchedule(spec)
	case ActionSetPageSize:
		return nil, c.SetPaging(a.PageSize)
	case ActionSetEnabled:
		return nil, c.SetEnabled(a.flag())
	case ActionSetContinuous:
		return nil, c.SetContinuous(a.flag())
	case ActionSetDelay:
		unit, err := schedule.ParseDelayUnit(a.DelayUnit)
		if err != nil {
			return nil, err
		}
		return nil, c.SetDelay(a.Delay, unit)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownAction, a.Type)
}

func (a Action) flag() bool {
	return a.Flag != nil && *a.Flag
}

func (a Action) interval() (schedule.Interval, error) {
	t := schedule.IntervalFixed
	if a.IntervalType != "" {
		var err error
		if t, err = schedule.ParseIntervalType(a.IntervalType); err != nil {
			return schedule.Interval{}, err
		}
	}
	value := a.IntervalValue
	if t == schedule.IntervalCalendar && value == 0 {
		value = 1
	}
	return schedule.Interval{Type: t, Value: value, Unit: a.IntervalUnit}, nil
}

func (a Action) schedule() (schedule.Spec, error) {
	kind, err := schedule.ParseKind(a.Kind)
	if err != nil {
		return schedule.Spec{}, err
	}
	if kind == schedule.KindCron {
		return schedule.Spec{Kind: kind, Expression: a.CronExpression, Timezone: a.CronTimezone}, nil
	}
	unit := schedule.Unit(a.Unit)
	if parsed, err := schedule.ParseUnit(a.Unit); err == nil {
		unit = parsed
	}
	return schedule.Spec{Kind: kind, Period: a.Period, Unit: unit}, nil
}

func parseAggregations(names []string) ([]jobspec.Aggregation, error) {
	out := make([]jobspec.Aggregation, 0, len(names))
	for _, n := range names {
		a, err := jobspec.ParseAggregation(n)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
