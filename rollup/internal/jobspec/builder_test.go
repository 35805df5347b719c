package jobspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/fields"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/schedule"
)

func TestSetSourceIndex_ClearsSelections(t *testing.T) {
	j := SetSourceIndex(New(DefaultDefaults()), "sales-*")
	j = must(SetDateHistogram(j, orderDate, hourly, "UTC"))
	j = must(AddDimension(j, Dimension{Field: region, Method: MethodTerms}))
	j = must(AddDimension(j, Dimension{Field: quantity, Method: MethodHistogram, Interval: 5}))
	j = must(AddMetric(j, amount, AggSum))

	same := SetSourceIndex(j, "sales-*")
	assert.Len(t, same.Dimensions, 2)
	assert.Len(t, same.Metrics, 1)
	assert.NotNil(t, same.DateHistogram)

	changed := SetSourceIndex(j, "orders-*")
	assert.Equal(t, "orders-*", changed.SourceIndex)
	assert.Empty(t, changed.Dimensions)
	assert.Empty(t, changed.Metrics)
	assert.Nil(t, changed.DateHistogram)

	// the original is untouched
	assert.Len(t, j.Dimensions, 2)
	assert.Len(t, j.Metrics, 1)
}

func TestPatchesDoNotAlias(t *testing.T) {
	base := must(AddDimension(New(DefaultDefaults()), Dimension{Field: region, Method: MethodTerms}))
	base = must(AddMetric(base, amount, AggMin))

	next := must(AddDimension(base, Dimension{Field: quantity, Method: MethodTerms}))
	next = must(SetMetricAggregations(next, 0, AggMax))

	assert.Len(t, base.Dimensions, 1)
	assert.Equal(t, []Aggregation{AggMin}, base.Metrics[0].Aggregations)
	assert.Len(t, next.Dimensions, 2)
	assert.Equal(t, []Aggregation{AggMax}, next.Metrics[0].Aggregations)
}

func TestAddDimension_Rules(t *testing.T) {
	base := New(DefaultDefaults())

	tests := []struct {
		name    string
		dim     Dimension
		wantErr error
	}{
		{"terms on keyword", Dimension{Field: region, Method: MethodTerms}, nil},
		{"terms on numeric", Dimension{Field: amount, Method: MethodTerms}, nil},
		{"terms on text", Dimension{Field: notes, Method: MethodTerms}, ErrIncompatibleField},
		{"histogram on keyword", Dimension{Field: region, Method: MethodHistogram, Interval: 1}, ErrIncompatibleField},
		{"histogram on numeric", Dimension{Field: amount, Method: MethodHistogram, Interval: 10}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AddDimension(base, tt.dim)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	_, err := AddDimension(base, Dimension{Field: amount, Method: MethodHistogram})
	assert.Error(t, err, "histogram without interval")

	_, err = AddDimension(base, Dimension{Field: orderDate, Method: MethodDateHistogram})
	assert.Error(t, err)
}

func TestAddDimension_Duplicate(t *testing.T) {
	j := must(AddDimension(New(DefaultDefaults()), Dimension{Field: amount, Method: MethodTerms}))

	_, err := AddDimension(j, Dimension{Field: amount, Method: MethodTerms})
	assert.ErrorIs(t, err, ErrDuplicate)

	// same field, different method is allowed
	j = must(AddDimension(j, Dimension{Field: amount, Method: MethodHistogram, Interval: 100}))
	assert.Len(t, j.Dimensions, 2)
}

func TestReorderDimension(t *testing.T) {
	j := New(DefaultDefaults())
	for _, d := range []fields.FieldDescriptor{region, amount, quantity} {
		j = must(AddDimension(j, Dimension{Field: d, Method: MethodTerms}))
	}

	moved := must(ReorderDimension(j, 0, 2))
	paths := func(j Job) []string {
		var out []string
		for _, d := range j.Dimensions {
			out = append(out, d.Field.Path)
		}
		return out
	}
	assert.Equal(t, []string{"amount", "quantity", "region"}, paths(moved))
	assert.Equal(t, []string{"region", "amount", "quantity"}, paths(j))

	back := must(ReorderDimension(moved, 2, 0))
	assert.Equal(t, paths(j), paths(back))

	_, err := ReorderDimension(j, 0, 3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	removed := must(RemoveDimension(j, 1))
	assert.Equal(t, []string{"region", "quantity"}, paths(removed))
	_, err = RemoveDimension(j, -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestAddMetric(t *testing.T) {
	j := must(AddMetric(New(DefaultDefaults()), amount, AggAvg, AggSum, AggSum))
	assert.Equal(t, []Aggregation{AggSum, AggAvg}, j.Metrics[0].Aggregations)

	_, err := AddMetric(j, amount, AggMin)
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = AddMetric(j, region, AggMin)
	assert.ErrorIs(t, err, ErrIncompatibleField)

	_, err = AddMetric(j, quantity, "median")
	assert.ErrorIs(t, err, ErrUnknownAgg)

	empty := must(AddMetric(j, quantity))
	assert.Empty(t, empty.Metrics[1].Aggregations)

	dropped := must(RemoveMetric(empty, 0))
	require.Len(t, dropped.Metrics, 1)
	assert.Equal(t, "quantity", dropped.Metrics[0].Field.Path)
}

func TestParseAggregation(t *testing.T) {
	a, err := ParseAggregation("COUNT")
	require.NoError(t, err)
	assert.Equal(t, AggValueCount, a)

	a, err = ParseAggregation(" avg ")
	require.NoError(t, err)
	assert.Equal(t, AggAvg, a)
}

func TestSetDateHistogram(t *testing.T) {
	j := New(DefaultDefaults())

	_, err := SetDateHistogram(j, region, hourly, "UTC")
	assert.ErrorIs(t, err, ErrIncompatibleField)

	_, err = SetDateHistogram(j, orderDate, hourly, "Mars/Olympus")
	assert.Error(t, err)

	j = must(SetDateHistogram(j, orderDate, hourly, ""))
	assert.Equal(t, "UTC", j.DateHistogram.Timezone)

	_, err = SetDateHistogramInterval(New(DefaultDefaults()), hourly)
	assert.ErrorIs(t, err, ErrNoDateHistogram)

	cal := must(SetDateHistogramInterval(j, schedule.Interval{Type: schedule.IntervalCalendar, Value: 7, Unit: "d"}))
	assert.Equal(t, schedule.IntervalCalendar, cal.DateHistogram.Interval.Type)
	assert.Equal(t, schedule.IntervalFixed, j.DateHistogram.Interval.Type)

	_, err = SetDateHistogramInterval(j, schedule.Interval{Type: schedule.IntervalCalendar, Value: 1, Unit: "ms"})
	assert.Error(t, err)

	assert.Nil(t, ClearDateHistogram(j).DateHistogram)
}

func TestSetDelay(t *testing.T) {
	five := int64(5)
	j := must(SetDelay(New(DefaultDefaults()), &five, schedule.DelayMinutes))
	assert.Equal(t, int64(300000), j.DelayMillis)

	j = must(SetDelay(j, nil, schedule.DelayMinutes))
	assert.Equal(t, int64(0), j.DelayMillis)

	neg := int64(-1)
	_, err := SetDelay(j, &neg, schedule.DelaySeconds)
	assert.Error(t, err)
}

func TestScalarSetters(t *testing.T) {
	j := New(DefaultDefaults())
	j = SetJobName(j, "  nightly_rollup ")
	j = SetDescription(j, "nightly sales")
	j = SetTargetIndex(j, "sales_rollup")
	j = SetPaging(j, 500)
	j = SetEnabled(j, false)
	j = SetContinuous(j, true)
	j = SetSchedule(j, schedule.Spec{Kind: schedule.KindCron, Expression: "0 1 * * *", Timezone: "UTC"})

	assert.Equal(t, "nightly_rollup", j.ID)
	assert.Equal(t, "nightly sales", j.Description)
	assert.Equal(t, "sales_rollup", j.TargetIndex)
	assert.Equal(t, 500, j.PageSize)
	assert.False(t, j.Enabled)
	assert.True(t, j.Continuous)
	assert.Equal(t, schedule.KindCron, j.Schedule.Kind)
	assert.False(t, j.IsEdit())
}
