package core

import (
	"fmt"
	"time"
)

// Date is a calendar date with no time-of-day component. All arithmetic and
// formatting work on the date's own year/month/day fields, never through a
// timezone conversion, so a stored day can never shift across midnight.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date in the local timezone.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDateKey parses a "YYYY-MM-DD" date key.
func ParseDateKey(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// Key formats the date as "YYYY-MM-DD" from its own calendar fields.
func (d Date) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Time.Year(), int(d.Time.Month()), d.Time.Day())
}

// Day returns the day of the month.
func (d Date) Day() int { return d.Time.Day() }

// Month returns the month as an int (1-12).
func (d Date) Month() int { return int(d.Time.Month()) }

// Year returns the year.
func (d Date) Year() int { return d.Time.Year() }

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year, month int) int {
	// Day zero of the next month normalizes to the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampToMonthEnd returns min(day, last day of the month). Day-of-month
// anchors (closing day, due day, installment day) go through this whenever
// they are projected onto a shorter month.
func ClampToMonthEnd(year, month, day int) int {
	if last := LastDayOfMonth(year, month); day > last {
		return last
	}
	return day
}

// MonthAnchor returns the date at the given day in (year, month), with the
// day clamped to the month end. Month may be outside 1-12 and is normalized
// (month 13 rolls into January of the next year).
func MonthAnchor(year, month, day int) Date {
	norm := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	y, m := norm.Year(), int(norm.Month())
	return NewDate(y, m, ClampToMonthEnd(y, m, day))
}

// AddMonths advances the date by n months, holding the day-of-month and
// clamping it per target month (Jan 31 + 1 month is Feb 28 or 29).
func (d Date) AddMonths(n int) Date {
	return MonthAnchor(d.Year(), d.Month()+n, d.Day())
}

// AddYears advances the date by n years, clamping Feb 29 onto Feb 28 in
// non-leap years.
func (d Date) AddYears(n int) Date {
	return MonthAnchor(d.Year()+n, d.Month(), d.Day())
}

// AddDays advances the date by n days.
func (d Date) AddDays(n int) Date {
	t := d.Time.AddDate(0, 0, n)
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Before reports whether d falls before other.
func (d Date) Before(other Date) bool { return d.Key() < other.Key() }

// After reports whether d falls after other.
func (d Date) After(other Date) bool { return d.Key() > other.Key() }

// Equal reports whether both dates name the same calendar day.
func (d Date) Equal(other Date) bool { return d.Key() == other.Key() }

// Within reports whether d falls inside [start, end], inclusive on both ends.
func (d Date) Within(start, end Date) bool {
	return !d.Before(start) && !d.After(end)
}

// Validate checks the date is set.
func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Reason: "date is required"}
	}
	return nil
}
