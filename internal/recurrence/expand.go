// Package recurrence turns a recurrence rule and a date range into the
// concrete task instances it describes. Expand is pure: it performs no
// I/O and always returns the same output for the same input.
package recurrence

import (
	"errors"
	"fmt"

	"github.com/iliyamo/phdplan/internal/model"
)

// MaxSpanDays bounds the inclusive range a single rule may cover.
const MaxSpanDays = 5 * 366

var (
	// ErrInvalidRule is returned when the rule cannot be evaluated.
	ErrInvalidRule = errors.New("invalid recurrence rule")
	// ErrEmptyRecurrence is returned when no date in the range matches.
	ErrEmptyRecurrence = errors.New("recurrence produced no dates")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRule, fmt.Sprintf(format, args...))
}

// Validate checks that rule can be expanded.
func Validate(rule model.Recurrence) error {
	if !rule.IsSpecified() {
		return invalid("type, start and end dates are required")
	}
	if rule.End.Before(rule.Start.Time) {
		return invalid("start date %s is after end date %s", rule.Start, rule.End)
	}
	if rule.End.DaysSince(*rule.Start) > MaxSpanDays {
		return invalid("range longer than %d days", MaxSpanDays)
	}
	switch rule.Type {
	case model.RecurrenceEveryNDays:
		if rule.Interval < 1 {
			return invalid("interval must be at least 1, got %d", rule.Interval)
		}
	case model.RecurrenceDayOfMonth:
		if rule.DayOfMonth < 1 || rule.DayOfMonth > 31 {
			return invalid("day of month must be between 1 and 31, got %d", rule.DayOfMonth)
		}
	case model.RecurrenceWeekdays:
		if len(rule.Weekdays) == 0 {
			return invalid("at least one weekday is required")
		}
		for _, d := range rule.Weekdays {
			if d < 0 || d > 6 {
				return invalid("weekday %d out of range 0..6", d)
			}
		}
	default:
		return invalid("unsupported type %q", rule.Type)
	}
	return nil
}

// Dates returns every date in [rule.Start, rule.End] that the rule
// selects, in ascending order.
func Dates(rule model.Recurrence) ([]model.Date, error) {
	if err := Validate(rule); err != nil {
		return nil, err
	}
	start, end := *rule.Start, *rule.End
	var out []model.Date
	for d := start; !d.After(end.Time); d = d.AddDays(1) {
		if matches(rule, start, d) {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyRecurrence
	}
	return out, nil
}

func matches(rule model.Recurrence, start, d model.Date) bool {
	switch rule.Type {
	case model.RecurrenceEveryNDays:
		return d.DaysSince(start)%rule.Interval == 0
	case model.RecurrenceDayOfMonth:
		return d.Day() == rule.DayOfMonth
	case model.RecurrenceWeekdays:
		return rule.Weekdays.Contains(d.WeekdayIndex())
	}
	return false
}

// Expand clones base once per selected date, overriding the date and
// keeping rule on every clone.
func Expand(rule model.Recurrence, base model.TaskFields) ([]model.TaskFields, error) {
	dates, err := Dates(rule)
	if err != nil {
		return nil, err
	}
	out := make([]model.TaskFields, len(dates))
	for i, d := range dates {
		clone := base
		clone.Date = d
		clone.Recurrence = copyRule(rule)
		out[i] = clone
	}
	return out, nil
}

// copyRule detaches the pointer and slice fields so instances never
// share backing storage.
func copyRule(rule model.Recurrence) model.Recurrence {
	c := rule
	if rule.Start != nil {
		s := *rule.Start
		c.Start = &s
	}
	if rule.End != nil {
		e := *rule.End
		c.End = &e
	}
	if rule.Weekdays != nil {
		c.Weekdays = append(model.Weekdays(nil), rule.Weekdays...)
	}
	return c
}
