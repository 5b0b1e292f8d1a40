package payroll

import (
	"fmt"
	"time"
)

// Payroll periods close on the 24th; the next one opens on the 25th.
const (
	PeriodStartDay = 25
	PeriodEndDay   = 24
)

// Period - Inclusive date range a monthly payroll covers
type Period struct {
	Month int
	Year  int
	Start time.Time
	End   time.Time
}

// NewPeriod builds the period labelled (month, year): 25th of the previous month to the 24th of month.
// Only the month is checked; any year yields a period.
func NewPeriod(month, year int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: month %d out of range", ErrInvalidPeriod, month)
	}

	end := time.Date(year, time.Month(month), PeriodEndDay, 0, 0, 0, 0, time.UTC)
	var start time.Time
	if month == 1 {
		start = time.Date(year-1, time.December, PeriodStartDay, 0, 0, 0, 0, time.UTC)
	} else {
		start = time.Date(year, time.Month(month-1), PeriodStartDay, 0, 0, 0, 0, time.UTC)
	}

	return Period{Month: month, Year: year, Start: start, End: end}, nil
}

// PeriodClosedBefore returns the latest period whose end date is strictly before t.
func PeriodClosedBefore(t time.Time) Period {
	y, m, d := t.Date()
	month, year := int(m), y
	if d <= PeriodEndDay {
		month--
		if month == 0 {
			month, year = 12, year-1
		}
	}
	p, _ := NewPeriod(month, year)
	return p
}

// Days returns the inclusive number of calendar days in the period.
func (p Period) Days() int {
	return daysBetween(p.Start, p.End) + 1
}

// DaysSinceJoining counts the period days on or after joining, clamped to [0, Days()].
// Both the joining day and the end day are counted, matching Days.
// A nil or zero joining date counts as joined before the period.
func (p Period) DaysSinceJoining(joining *time.Time) int {
	from := p.Start
	if joining != nil && !joining.IsZero() {
		j := truncateDay(*joining)
		if j.After(from) {
			from = j
		}
	}
	days := daysBetween(from, p.End) + 1
	if days < 0 {
		return 0
	}
	if total := p.Days(); days > total {
		return total
	}
	return days
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(truncateDay(to).Sub(truncateDay(from)).Hours() / 24)
}
