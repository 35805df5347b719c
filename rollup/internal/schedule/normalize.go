package schedule

import (
	"math"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Input is what the user entered on the schedule step.
type Input struct {
	Kind           Kind
	Period         int
	Unit           Unit
	CronExpression string
	CronTimezone   string
	// StartTime is epoch millis; zero means "now" at normalization.
	StartTime int64
}

// Spec is a normalized schedule. Only the fields of Kind are set.
type Spec struct {
	Kind       Kind   `json:"kind" yaml:"kind"`
	Period     int    `json:"period,omitempty" yaml:"period,omitempty"`
	Unit       Unit   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
	Timezone   string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	StartTime  int64  `json:"start_time,omitempty" yaml:"start_time,omitempty"`
}

// Input converts a stored spec back into editable input.
func (s Spec) Input() Input {
	return Input{
		Kind:           s.Kind,
		Period:         s.Period,
		Unit:           s.Unit,
		CronExpression: s.Expression,
		CronTimezone:   s.Timezone,
		StartTime:      s.StartTime,
	}
}

// Normalizer validates schedule input. The clock stamps start_time on fixed
// schedules.
type Normalizer struct {
	now    func() time.Time
	parser cron.Parser
}

// NewNormalizer creates a Normalizer; a nil clock means time.Now.
func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{
		now:    now,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Normalize validates in and returns its normalized form. Errors are
// always of type Errors.
func (n *Normalizer) Normalize(in Input) (Spec, error) {
	var errs Errors

	switch in.Kind {
	case KindFixed:
		if in.Period <= 0 {
			errs = append(errs, &FieldError{Field: FieldPeriod, Message: "must be a positive integer"})
		}
		if _, err := ParseUnit(string(in.Unit)); err != nil {
			errs = append(errs, &FieldError{Field: FieldUnit, Message: "must be one of MINUTES, HOURS, DAYS"})
		}
		if len(errs) > 0 {
			return Spec{}, errs
		}

		start := in.StartTime
		if start == 0 {
			start = n.now().UnixMilli()
		}
		return Spec{Kind: KindFixed, Period: in.Period, Unit: in.Unit, StartTime: start}, nil

	case KindCron:
		expr := strings.TrimSpace(in.CronExpression)
		if expr == "" {
			errs = append(errs, &FieldError{Field: FieldExpression, Message: "is required"})
		} else if _, err := n.parser.Parse(expr); err != nil {
			errs = append(errs, &FieldError{Field: FieldExpression, Message: err.Error()})
		}

		tz := strings.TrimSpace(in.CronTimezone)
		if tz == "" {
			errs = append(errs, &FieldError{Field: FieldTimezone, Message: "is required"})
		} else if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, &FieldError{Field: FieldTimezone, Message: "unknown timezone " + tz})
		}
		if len(errs) > 0 {
			return Spec{}, errs
		}
		return Spec{Kind: KindCron, Expression: expr, Timezone: tz}, nil
	}

	return Spec{}, Errors{{Field: FieldKind, Message: "must be fixed or cron"}}
}

var defaultNormalizer = NewNormalizer(nil)

// Normalize uses the wall clock.
func Normalize(in Input) (Spec, error) {
	return defaultNormalizer.Normalize(in)
}

// DelayMillis converts a delay to milliseconds. A nil value is zero.
func DelayMillis(value *int64, unit DelayUnit) (int64, error) {
	if value == nil {
		return 0, nil
	}
	if *value < 0 {
		return 0, Errors{{Field: FieldDelay, Message: "must not be negative"}}
	}
	mult, ok := delayMultipliers[unit]
	if !ok {
		return 0, Errors{{Field: FieldDelay, Message: "unknown unit " + string(unit)}}
	}
	if *value > math.MaxInt64/mult {
		return 0, Errors{{Field: FieldDelay, Message: "is too large"}}
	}
	return *value * mult, nil
}

// SplitDelay renders millis back into the largest unit that divides it.
func SplitDelay(millis int64) (int64, DelayUnit) {
	for _, u := range []DelayUnit{DelayDays, DelayHours, DelayMinutes} {
		if m := delayMultipliers[u]; millis != 0 && millis%m == 0 {
			return millis / m, u
		}
	}
	return millis / delayMultipliers[DelaySeconds], DelaySeconds
}
