package wizard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/jobspec"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/schedule"
)

const actionScript = `
- type: set_job_name
  value: nightly_rollup
- type: set_source_index
  value: sales-*
- type: set_target_index
  value: sales_rollup
- type: set_date_histogram
  field: order_date
  interval_type: calendar
  interval_unit: d
- type: add_dimension
  field: region
- type: add_dimension
  field: quantity
  method: histogram
  interval: 10
- type: reorder_dimension
  from: 1
  to: 0
- type: add_metric
  field: amount
  aggregations: [avg, sum, count]
- type: set_schedule
  kind: cron
  cron_expression: "0 2 * * *"
  cron_timezone: UTC
- type: set_delay
  delay: 5
  delay_unit: minutes
- type: set_continuous
  flag: true
- type: set_page_size
  page_size: 250
`

func TestDispatch_Script(t *testing.T) {
	var actions []Action
	require.NoError(t, yaml.Unmarshal([]byte(actionScript), &actions))

	h := newHarness(salesClient())
	ctx := context.Background()
	for _, a := range actions {
		req, err := h.c.Dispatch(a)
		require.NoError(t, err, a.Type)
		if req != nil {
			assert.Equal(t, ActionSetSourceIndex, a.Type)
			require.True(t, h.c.ApplyFields(ctx, h.c.Resolve(ctx, *req)))
		}
	}

	j := h.c.State().Job
	assert.Equal(t, "nightly_rollup", j.ID)
	assert.Equal(t, schedule.Interval{Type: schedule.IntervalCalendar, Value: 1, Unit: "d"}, j.DateHistogram.Interval)
	require.Len(t, j.Dimensions, 2)
	assert.Equal(t, "quantity", j.Dimensions[0].Field.Path)
	assert.Equal(t, []jobspec.Aggregation{jobspec.AggSum, jobspec.AggAvg, jobspec.AggValueCount}, j.Metrics[0].Aggregations)
	assert.Equal(t, schedule.KindCron, j.Schedule.Kind)
	assert.Equal(t, int64(300000), j.DelayMillis)
	assert.True(t, j.Continuous)
	assert.Equal(t, 250, j.PageSize)
	assert.NoError(t, jobspec.Finalize(j))
}

func TestDispatch_Errors(t *testing.T) {
	h := newHarness(salesClient())

	_, err := h.c.Dispatch(Action{Type: "explode"})
	assert.Error(t, err)

	_, err = h.c.Dispatch(Action{Type: ActionSetSchedule, Kind: "weekly"})
	assert.Error(t, err)

	_, err = h.c.Dispatch(Action{Type: ActionAddMetric, Field: "amount", Aggregations: []string{"median"}})
	assert.ErrorIs(t, err, jobspec.ErrUnknownAgg)

	_, err = h.c.Dispatch(Action{Type: ActionSetDelay, DelayUnit: "fortnights"})
	assert.Error(t, err)

	_, err = h.c.Dispatch(Action{Type: ActionRemoveMetric, Index: 3})
	assert.ErrorIs(t, err, jobspec.ErrIndexOutOfRange)
}

func TestDispatch_DateHistogramIntervalValue(t *testing.T) {
	h := newHarness(salesClient())
	h.source("sales-*")

	_, err := h.c.Dispatch(Action{Type: ActionSetDateHistogram, Field: "order_date", IntervalType: "fixed", IntervalValue: 0, IntervalUnit: "h"})
	var errs schedule.Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "must be a positive integer", errs.Fields()[schedule.FieldInterval])
	assert.Nil(t, h.c.State().Job.DateHistogram)

	_, err = h.c.Dispatch(Action{Type: ActionSetDateHistogram, Field: "order_date", IntervalType: "calendar", IntervalUnit: "d"})
	require.NoError(t, err)
	assert.Equal(t, schedule.Interval{Type: schedule.IntervalCalendar, Value: 1, Unit: "d"}, h.c.State().Job.DateHistogram.Interval)

	_, err = h.c.Dispatch(Action{Type: ActionSetDateHistogramInterval, IntervalType: "fixed", IntervalUnit: "m"})
	require.Error(t, err)
	assert.Equal(t, schedule.IntervalCalendar, h.c.State().Job.DateHistogram.Interval.Type)
}
