package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, plain dates, and unix seconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// NextBusinessDay returns the next weekday after t.
func NextBusinessDay(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// StepDates produces n forecast dates after `last` for the given frequency.
// Daily frequency steps over weekends; weekly and monthly step calendar
// weeks and months.
func StepDates(last time.Time, frequency string, n int) []time.Time {
	out := make([]time.Time, n)
	cur := last
	for i := 0; i < n; i++ {
		switch frequency {
		case "weekly":
			cur = cur.AddDate(0, 0, 7)
		case "monthly":
			cur = cur.AddDate(0, 1, 0)
		default:
			cur = NextBusinessDay(cur)
		}
		out[i] = cur
	}
	return out
}
