package seeder

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/internal/api"
)

var (
	calendarUnits = []string{"m", "h", "d", "w", "M"}
	fixedUnits    = []string{"m", "h", "d"}
	scheduleUnits = []string{"Minutes", "Hours", "Days"}
	delayUnits    = []string{"seconds", "minutes", "hours"}
	aggregations  = []string{"min", "max", "sum", "avg", "value_count"}
	cronPresets   = []string{"0 * * * *", "0 2 * * *", "*/15 * * * *", "30 4 * * 1"}
	timezones     = []string{"UTC", "Europe/Berlin", "America/New_York", "Asia/Tokyo"}
)

// Generator builds random but valid job scripts for a set of fields.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator returns a generator. A zero seed picks a random one.
func NewGenerator(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Actions returns the actions that fill every step of a job reading
// pattern. fields must be the fields the service resolved for pattern; at
// least one date field and one numeric field are required.
func (g *Generator) Actions(pattern string, fields []api.Field) ([]api.Action, error) {
	byType := map[string][]string{}
	for _, f := range fields {
		byType[f.Type] = append(byType[f.Type], f.Path)
	}
	dates, numerics, keywords := byType["date"], byType["numeric"], byType["keyword"]
	if len(dates) == 0 {
		return nil, fmt.Errorf("%s has no date field", pattern)
	}
	if len(numerics) == 0 {
		return nil, fmt.Errorf("%s has no numeric field", pattern)
	}

	name := g.jobName()
	actions := []api.Action{
		{Type: "set_job_name", Value: name},
		{Type: "set_description", Value: g.faker.Sentence(6)},
		{Type: "set_source_index", Value: pattern},
		{Type: "set_target_index", Value: name + "_rollup"},
		g.dateHistogram(g.faker.RandomString(dates)),
	}

	for _, path := range g.pick(keywords, 2) {
		actions = append(actions, api.Action{Type: "add_dimension", Field: path, Method: "terms"})
	}
	// The first numeric field is always a metric so the job has one.
	for i, path := range g.pick(numerics, 3) {
		if i > 0 && g.faker.Bool() {
			actions = append(actions, api.Action{
				Type:     "add_dimension",
				Field:    path,
				Method:   "histogram",
				Interval: float64(g.faker.Number(1, 100)),
			})
			continue
		}
		actions = append(actions, api.Action{
			Type:         "add_metric",
			Field:        path,
			Aggregations: g.pick(aggregations, len(aggregations)),
		})
	}

	delay := int64(g.faker.Number(0, 30))
	actions = append(actions,
		g.schedule(),
		api.Action{Type: "set_page_size", PageSize: g.faker.Number(1, 10) * 100},
		api.Action{Type: "set_delay", Delay: &delay, DelayUnit: g.faker.RandomString(delayUnits)},
	)
	return actions, nil
}

func (g *Generator) jobName() string {
	name := fmt.Sprintf("%s_%s_%d", g.faker.Adjective(), g.faker.Noun(), g.faker.Number(1, 999))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + 'a' - 'A'
		}
		return '_'
	}, name)
}

func (g *Generator) dateHistogram(field string) api.Action {
	a := api.Action{
		Type:     "set_date_histogram",
		Field:    field,
		Timezone: g.faker.RandomString(timezones),
	}
	if g.faker.Bool() {
		a.IntervalType = "calendar"
		a.IntervalUnit = g.faker.RandomString(calendarUnits)
		return a
	}
	a.IntervalType = "fixed"
	a.IntervalValue = g.faker.Number(1, 60)
	a.IntervalUnit = g.faker.RandomString(fixedUnits)
	return a
}

func (g *Generator) schedule() api.Action {
	if g.faker.Bool() {
		return api.Action{
			Type:           "set_schedule",
			Kind:           "cron",
			CronExpression: g.faker.RandomString(cronPresets),
			CronTimezone:   g.faker.RandomString(timezones),
		}
	}
	return api.Action{
		Type:   "set_schedule",
		Kind:   "interval",
		Period: g.faker.Number(1, 24),
		Unit:   g.faker.RandomString(scheduleUnits),
	}
}

// pick returns between one and max distinct entries of from, keeping
// their order. It returns nil for an empty from.
func (g *Generator) pick(from []string, max int) []string {
	if len(from) == 0 {
		return nil
	}
	if max > len(from) {
		max = len(from)
	}
	n := g.faker.Number(1, max)
	idx := make([]int, len(from))
	for i := range idx {
		idx[i] = i
	}
	g.faker.ShuffleAnySlice(idx)
	keep := make(map[int]bool, n)
	for _, i := range idx[:n] {
		keep[i] = true
	}
	out := make([]string, 0, n)
	for i, s := range from {
		if keep[i] {
			out = append(out, s)
		}
	}
	return out
}
