package dateparse

import (
	"testing"
	"time"
)

// 2026-02-10 is a Tuesday.
var now = time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

func TestTomorrow(t *testing.T) {
	r := Parse(now, "tomorrow buy milk")
	if r.Date == nil {
		t.Fatal("Date = nil, want tomorrow")
	}
	if got := r.Date.Format("2006-01-02"); got != "2026-02-11" {
		t.Errorf("Date = %s, want 2026-02-11", got)
	}
	if r.Remainder != "buy milk" {
		t.Errorf("Remainder = %q, want %q", r.Remainder, "buy milk")
	}
}

func TestToday(t *testing.T) {
	r := Parse(now, "today water plants")
	if r.Date == nil || r.Date.Day() != 10 {
		t.Fatalf("Date = %v, want today", r.Date)
	}
	if r.Remainder != "water plants" {
		t.Errorf("Remainder = %q", r.Remainder)
	}
}

func TestNextWeek(t *testing.T) {
	r := Parse(now, "next week review goals")
	if r.Date == nil {
		t.Fatal("Date = nil")
	}
	if got := r.Date.Format("2006-01-02"); got != "2026-02-17" {
		t.Errorf("Date = %s, want 2026-02-17", got)
	}
	if r.Remainder != "review goals" {
		t.Errorf("Remainder = %q", r.Remainder)
	}
}

func TestWeekdayStrictlyFuture(t *testing.T) {
	// Monday spoken on a Monday means next Monday, never today.
	monday := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	r := Parse(monday, "monday call bob")
	if r.Date == nil {
		t.Fatal("Date = nil")
	}
	if got := r.Date.Format("2006-01-02"); got != "2026-02-16" {
		t.Errorf("Date = %s, want 2026-02-16 (7 days later)", got)
	}
	if r.Remainder != "call bob" {
		t.Errorf("Remainder = %q", r.Remainder)
	}
}

func TestWeekdayNextOccurrence(t *testing.T) {
	r := Parse(now, "Friday submit report")
	if r.Date == nil {
		t.Fatal("Date = nil")
	}
	if got := r.Date.Format("2006-01-02"); got != "2026-02-13" {
		t.Errorf("Date = %s, want 2026-02-13", got)
	}
}

func TestWeekdayNoSubstringMatch(t *testing.T) {
	r := Parse(now, "mondays are rough")
	if r.Date != nil {
		t.Errorf("Date = %v, want nil for non-word-boundary weekday", r.Date)
	}
}

func TestISODate(t *testing.T) {
	r := Parse(now, "2026-06-15 renew passport")
	if r.Date == nil {
		t.Fatal("Date = nil")
	}
	if got := r.Date.Format("2006-01-02"); got != "2026-06-15" {
		t.Errorf("Date = %s, want 2026-06-15", got)
	}
	if r.Date.Hour() != 12 {
		t.Errorf("Hour = %d, want noon anchor", r.Date.Hour())
	}
	if r.Remainder != "renew passport" {
		t.Errorf("Remainder = %q", r.Remainder)
	}
}

func TestISODateInvalidCalendarDay(t *testing.T) {
	r := Parse(now, "2026-02-31 impossible")
	if r.Date != nil {
		t.Errorf("Date = %v, want nil for non-existent date", r.Date)
	}
}

func TestInNDays(t *testing.T) {
	r := Parse(now, "in 3 days follow up")
	if r.Date == nil {
		t.Fatal("Date = nil")
	}
	if got := r.Date.Format("2006-01-02"); got != "2026-02-13" {
		t.Errorf("Date = %s, want 2026-02-13", got)
	}
	if r.Remainder != "follow up" {
		t.Errorf("Remainder = %q", r.Remainder)
	}
}

func TestNoMatch(t *testing.T) {
	r := Parse(now, "blarg")
	if r.Date != nil {
		t.Errorf("Date = %v, want nil", r.Date)
	}
	if r.Remainder != "blarg" {
		t.Errorf("Remainder = %q, want original text", r.Remainder)
	}
}

func TestCaseInsensitive(t *testing.T) {
	r := Parse(now, "Tomorrow dentist")
	if r.Date == nil {
		t.Fatal("Date = nil, want case-insensitive match")
	}
	if r.Remainder != "dentist" {
		t.Errorf("Remainder = %q", r.Remainder)
	}
}
