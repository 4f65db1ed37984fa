package domain

import (
	"fmt"
	"strings"
	"time"
)

// Month is a calendar month encoded as year*12 + (month-1), so consecutive
// months are consecutive integers and ordering is plain integer ordering.
type Month int

// NewMonth builds a Month from a year and calendar month.
func NewMonth(year int, month time.Month) Month {
	return Month(year*12 + int(month) - 1)
}

// MonthOf truncates t to its month (UTC).
func MonthOf(t time.Time) Month {
	t = t.UTC()
	return NewMonth(t.Year(), t.Month())
}

// ParseMonth accepts "2006-01" or a first-of-month "2006-01-02" date.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	layout := "2006-01"
	if len(s) > len(layout) {
		layout = "2006-01-02"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("parse month %q: %w", s, err)
	}
	if t.Day() != 1 {
		return 0, fmt.Errorf("parse month %q: not the first of the month", s)
	}
	return MonthOf(t), nil
}

func (m Month) Year() int { return int(m) / 12 }

func (m Month) Calendar() time.Month { return time.Month(int(m)%12 + 1) }

// Start returns the first instant of the month in UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year(), m.Calendar(), 1, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return m.Start().AddDate(0, 1, -1).Day()
}

// Date formats the month-start timestamp as stored in archives.
func (m Month) Date() string { return m.Start().Format("2006-01-02") }

func (m Month) String() string { return m.Start().Format("2006-01") }

// MonthRange is an inclusive range of months.
type MonthRange struct {
	Start Month
	End   Month
}

// Contains reports whether m falls within the range.
func (r MonthRange) Contains(m Month) bool { return m >= r.Start && m <= r.End }

// Len returns the number of months in the range, or 0 if End precedes Start.
func (r MonthRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return int(r.End-r.Start) + 1
}

// Months lists every month in the range in ascending order.
func (r MonthRange) Months() []Month {
	out := make([]Month, 0, r.Len())
	for m := r.Start; m <= r.End; m++ {
		out = append(out, m)
	}
	return out
}

func (r MonthRange) String() string { return r.Start.String() + ".." + r.End.String() }

// ParseMonthRange parses "2001-01..2023-12".
func ParseMonthRange(s string) (MonthRange, error) {
	start, end, ok := strings.Cut(s, "..")
	if !ok {
		return MonthRange{}, fmt.Errorf("parse range %q: expected START..END", s)
	}
	a, err := ParseMonth(start)
	if err != nil {
		return MonthRange{}, err
	}
	b, err := ParseMonth(end)
	if err != nil {
		return MonthRange{}, err
	}
	if b < a {
		return MonthRange{}, fmt.Errorf("parse range %q: end before start", s)
	}
	return MonthRange{Start: a, End: b}, nil
}

// MarshalText encodes the month as "2006-01".
func (m Month) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText accepts the forms understood by ParseMonth.
func (m *Month) UnmarshalText(b []byte) error {
	v, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
