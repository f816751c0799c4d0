package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestNextBusinessDaySkipsWeekend(t *testing.T) {
	friday := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	got := NextBusinessDay(friday)
	if got.Weekday() != time.Monday {
		t.Fatalf("expected Monday, got %v", got.Weekday())
	}
	if got.Day() != 31 {
		t.Fatalf("unexpected day %d", got.Day())
	}
}

func TestStepDatesDaily(t *testing.T) {
	// Thursday; business-day stepping crosses one weekend
	last := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	dates := StepDates(last, "daily", 3)
	if len(dates) != 3 {
		t.Fatalf("expected 3 dates, got %d", len(dates))
	}
	want := []int{28, 31, 1}
	for i, d := range dates {
		if d.Day() != want[i] {
			t.Fatalf("step %d: expected day %d, got %d", i, want[i], d.Day())
		}
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("step %d landed on weekend", i)
		}
	}
}

func TestStepDatesWeeklyAndMonthly(t *testing.T) {
	last := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	weekly := StepDates(last, "weekly", 2)
	if !weekly[0].Equal(last.AddDate(0, 0, 7)) || !weekly[1].Equal(last.AddDate(0, 0, 14)) {
		t.Fatalf("unexpected weekly dates %v", weekly)
	}

	monthly := StepDates(last, "monthly", 2)
	if monthly[1].Month() != time.March {
		t.Fatalf("expected March, got %v", monthly[1].Month())
	}
}
