package report

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidPeriod = errors.New("invalid report period")

// Period is the reporting window.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ParsePeriod parses a period name. An empty string means a week.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodWeek, nil
	case PeriodWeek, PeriodMonth, PeriodAll:
		return Period(s), nil
	}
	return "", fmt.Errorf("%w: %q (want week, month or all)", ErrInvalidPeriod, s)
}

// Start returns the first instant of the period ending now, or the zero time
// for PeriodAll. Windows are whole calendar days in loc.
func (p Period) Start(now time.Time, loc *time.Location) time.Time {
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	switch p {
	case PeriodWeek:
		return today.AddDate(0, 0, -6)
	case PeriodMonth:
		return today.AddDate(0, 0, -29)
	default:
		return time.Time{}
	}
}
