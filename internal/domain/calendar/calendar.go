package calendar

import "time"

const dateLayout = "2006-01-02"

// Calendar answers holiday questions for due-date and fine arithmetic.
// It is configured once from the library's weekly closing days plus the
// explicit holiday date list and is safe for concurrent reads.
type Calendar struct {
	weekdays map[time.Weekday]bool
	dates    map[string]bool
}

func New(weekdays []time.Weekday, dates []time.Time) *Calendar {
	c := &Calendar{
		weekdays: make(map[time.Weekday]bool, len(weekdays)),
		dates:    make(map[string]bool, len(dates)),
	}
	for _, wd := range weekdays {
		c.weekdays[wd] = true
	}
	for _, d := range dates {
		c.dates[DateOnly(d).Format(dateLayout)] = true
	}
	return c
}

// DateOnly truncates a timestamp to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays is plain calendar-day addition with no holiday skipping.
func AddDays(from time.Time, days int) time.Time {
	return DateOnly(from).AddDate(0, 0, days)
}

// DaysBetween counts whole calendar days from start to end.
// Negative when end precedes start.
func DaysBetween(start, end time.Time) int {
	return int(DateOnly(end).Sub(DateOnly(start)).Hours() / 24)
}

func (c *Calendar) IsHoliday(t time.Time) bool {
	d := DateOnly(t)
	if c.weekdays[d.Weekday()] {
		return true
	}
	return c.dates[d.Format(dateLayout)]
}

// NextNonHoliday returns t unchanged when it is a working day, otherwise
// the first following date that is not a holiday.
func (c *Calendar) NextNonHoliday(t time.Time) time.Time {
	d := DateOnly(t)
	for c.IsHoliday(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// CountHolidaysBetween counts holidays in the interval (start, end],
// matching the day-counting convention of DaysBetween.
func (c *Calendar) CountHolidaysBetween(start, end time.Time) int {
	s, e := DateOnly(start), DateOnly(end)
	count := 0
	for d := s.AddDate(0, 0, 1); !d.After(e); d = d.AddDate(0, 0, 1) {
		if c.IsHoliday(d) {
			count++
		}
	}
	return count
}
