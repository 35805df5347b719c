package jobspec

import (
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/fields"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/schedule"
)

var (
	orderDate = fields.FieldDescriptor{Path: "order_date", Type: fields.TypeDate, Raw: "date"}
	region    = fields.FieldDescriptor{Path: "region", Type: fields.TypeKeyword, Raw: "keyword"}
	amount    = fields.FieldDescriptor{Path: "amount", Type: fields.TypeNumeric, Raw: "double"}
	quantity  = fields.FieldDescriptor{Path: "quantity", Type: fields.TypeNumeric, Raw: "integer"}
	notes     = fields.FieldDescriptor{Path: "notes", Type: fields.TypeText, Raw: "text"}

	hourly = schedule.Interval{Type: schedule.IntervalFixed, Value: 1, Unit: "h"}
)

// must unwraps a patch result in fixtures that are known to be valid.
func must(j Job, err error) Job {
	if err != nil {
		panic(err)
	}
	return j
}
