package shared

import (
	"errors"
	"time"
)

// OverallPeriodCurrent marks the current-type periods that posting flags apply to.
const OverallPeriodCurrent = "C"

// ErrInvalidPeriod indicates a reporting period with missing or inverted bounds.
var ErrInvalidPeriod = errors.New("period: begin and end required, begin must not be after end")

// ReportingPeriod is an inclusive date range. Both bounds are calendar days.
type ReportingPeriod struct {
	Begin time.Time `json:"begin"`
	End   time.Time `json:"end"`
}

// NewReportingPeriod normalises both bounds to midnight UTC.
func NewReportingPeriod(begin, end time.Time) ReportingPeriod {
	return ReportingPeriod{Begin: Day(begin), End: Day(end)}
}

// Validate ensures the period bounds are set and ordered.
func (p ReportingPeriod) Validate() error {
	if p.Begin.IsZero() || p.End.IsZero() || p.Begin.After(p.End) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains reports whether t falls on a day within [Begin, End].
func (p ReportingPeriod) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(p.Begin)) && !d.After(Day(p.End))
}

// Next returns the period starting the day after p ends and finishing at end.
func (p ReportingPeriod) Next(end time.Time) ReportingPeriod {
	return NewReportingPeriod(Day(p.End).AddDate(0, 0, 1), end)
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
