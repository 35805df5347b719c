package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// Interval is a date-histogram bucket width.
type Interval struct {
	Type  IntervalType `json:"type" yaml:"type"`
	Value int          `json:"value" yaml:"value"`
	Unit  string       `json:"unit" yaml:"unit"`
}

// Validate checks the unit against the interval type and, for fixed
// intervals, that Value is positive. Calendar intervals ignore Value.
func (i Interval) Validate() error {
	var errs Errors
	switch i.Type {
	case IntervalFixed:
		if i.Value <= 0 {
			errs = append(errs, &FieldError{Field: FieldInterval, Message: "must be a positive integer"})
		}
	case IntervalCalendar:
	default:
		return Errors{{Field: FieldInterval, Message: "interval type must be fixed or calendar"}}
	}
	if !unitAllowed(i.Type, i.Unit) {
		errs = append(errs, &FieldError{
			Field:   FieldIntervalUnit,
			Message: fmt.Sprintf("unit %q not allowed for %s intervals", i.Unit, i.Type),
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Encode returns the wire key and value: fixed_interval "<n><unit>" or
// calendar_interval "1<unit>".
func (i Interval) Encode() (key, value string, err error) {
	if err := i.Validate(); err != nil {
		return "", "", err
	}
	if i.Type == IntervalCalendar {
		return KeyCalendarInterval, "1" + i.Unit, nil
	}
	return KeyFixedInterval, strconv.Itoa(i.Value) + i.Unit, nil
}

// String is the encoded value, or "" when invalid.
func (i Interval) String() string {
	_, v, err := i.Encode()
	if err != nil {
		return ""
	}
	return v
}

// ParseInterval reverses Encode for one wire key.
func ParseInterval(key, value string) (Interval, error) {
	var t IntervalType
	switch key {
	case KeyFixedInterval:
		t = IntervalFixed
	case KeyCalendarInterval:
		t = IntervalCalendar
	default:
		return Interval{}, fmt.Errorf("unknown interval key %q", key)
	}

	digits := len(value) - len(strings.TrimLeft(value, "0123456789"))
	if digits == 0 {
		return Interval{}, fmt.Errorf("interval %q has no magnitude", value)
	}
	n, err := strconv.Atoi(value[:digits])
	if err != nil {
		return Interval{}, fmt.Errorf("interval %q: %w", value, err)
	}

	iv := Interval{Type: t, Value: n, Unit: value[digits:]}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// ParseIntervalValue parses user input like "90m" into a value and unit.
func ParseIntervalValue(t IntervalType, s string) (Interval, error) {
	key := KeyFixedInterval
	if t == IntervalCalendar {
		key = KeyCalendarInterval
	}
	return ParseInterval(key, strings.TrimSpace(s))
}
