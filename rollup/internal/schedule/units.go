// Package schedule normalizes user schedule input into the two encodings the
// rollup scheduler accepts, converts delays to milliseconds, and encodes
// date-histogram bucket intervals.
package schedule

import (
	"fmt"
	"strings"
)

// Kind selects between a fixed recurring interval and a cron expression.
type Kind string

const (
	KindFixed Kind = "fixed"
	KindCron  Kind = "cron"
)

// ParseKind accepts "fixed"/"interval" and "cron".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed", "interval":
		return KindFixed, nil
	case "cron":
		return KindCron, nil
	}
	return "", fmt.Errorf("unknown schedule kind %q", s)
}

// Unit is a fixed-interval schedule unit as the scheduler spells it.
type Unit string

const (
	Minutes Unit = "MINUTES"
	Hours   Unit = "HOURS"
	Days    Unit = "DAYS"
)

// Units lists the accepted schedule units in display order.
var Units = []Unit{Minutes, Hours, Days}

// ParseUnit is case-insensitive.
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Units {
		if u == known {
			return u, nil
		}
	}
	return "", fmt.Errorf("unknown schedule unit %q", s)
}

// DelayUnit is the unit a delay is entered in.
type DelayUnit string

const (
	DelaySeconds DelayUnit = "SECONDS"
	DelayMinutes DelayUnit = "MINUTES"
	DelayHours   DelayUnit = "HOURS"
	DelayDays    DelayUnit = "DAYS"
)

var delayMultipliers = map[DelayUnit]int64{
	DelaySeconds: 1000,
	DelayMinutes: 60 * 1000,
	DelayHours:   60 * 60 * 1000,
	DelayDays:    24 * 60 * 60 * 1000,
}

// ParseDelayUnit is case-insensitive. Empty means minutes.
func ParseDelayUnit(s string) (DelayUnit, error) {
	if strings.TrimSpace(s) == "" {
		return DelayMinutes, nil
	}
	u := DelayUnit(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := delayMultipliers[u]; !ok {
		return "", fmt.Errorf("unknown delay unit %q", s)
	}
	return u, nil
}

// IntervalType is the date-histogram interval flavour.
type IntervalType string

const (
	IntervalFixed    IntervalType = "fixed"
	IntervalCalendar IntervalType = "calendar"
)

// ParseIntervalType accepts "fixed" and "calendar".
func ParseIntervalType(s string) (IntervalType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed":
		return IntervalFixed, nil
	case "calendar":
		return IntervalCalendar, nil
	}
	return "", fmt.Errorf("unknown interval type %q", s)
}

// Wire keys of the date-histogram interval. Exactly one is ever present.
const (
	KeyFixedInterval    = "fixed_interval"
	KeyCalendarInterval = "calendar_interval"
)

// FixedUnits and CalendarUnits are the unit suffixes each interval type
// accepts. Calendar "m" is minute and "M" is month.
var (
	FixedUnits    = []string{"ms", "s", "m", "h", "d"}
	CalendarUnits = []string{"m", "h", "d", "w", "M", "q", "y"}
)

func unitAllowed(t IntervalType, unit string) bool {
	allowed := FixedUnits
	if t == IntervalCalendar {
		allowed = CalendarUnits
	}
	for _, u := range allowed {
		if u == unit {
			return true
		}
	}
	return false
}
