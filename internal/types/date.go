package types

import (
	"time"

	ierr "github.com/fitclub/billing/internal/errors"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// ToDate truncates t to a calendar date at midnight UTC, after moving it into loc.
// Membership dates carry no time component, so every date in the system goes through here.
func ToDate(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays moves a calendar date by n days
func AddDays(date time.Time, n int) time.Time {
	return date.AddDate(0, 0, n)
}

// DaysBetween returns to - from in whole days. Negative when to is before from.
func DaysBetween(from, to time.Time) int {
	from = ToDate(from, nil)
	to = ToDate(to, nil)
	return int(to.Sub(from).Hours() / 24)
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ierr.WithError(err).
			WithHintf("Invalid date %q, expected format YYYY-MM-DD", s).
			WithReportableDetails(map[string]any{"date": s}).
			Mark(ierr.ErrValidation)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// LoadLocation resolves a timezone name, falling back to UTC for empty names
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Unknown timezone %q", name).
			Mark(ierr.ErrValidation)
	}
	return loc, nil
}
