package schedule

import (
	"testing"
	"time"
)

func mondayHours(start, end int) WeeklyHours {
	w := NewWeeklyHours()
	w["mon"] = []Interval{{start, end}}
	return w
}

func TestWithinHours(t *testing.T) {
	// 2026-09-07 is a Monday.
	w := mondayHours(480, 720) // 08:00-12:00

	at := func(h, m int) time.Time {
		return time.Date(2026, 9, 7, h, m, 0, 0, time.UTC)
	}

	if !WithinHours(w, time.UTC, at(8, 0), at(8, 30)) {
		t.Error("08:00-08:30 should be within hours")
	}
	if !WithinHours(w, time.UTC, at(11, 30), at(12, 0)) {
		t.Error("11:30-12:00 should fit the half-open interval end")
	}
	if WithinHours(w, time.UTC, at(11, 45), at(12, 15)) {
		t.Error("window past close must be rejected")
	}
	if WithinHours(w, time.UTC, at(7, 30), at(8, 30)) {
		t.Error("window starting before open must be rejected")
	}
	// Tuesday has no hours.
	tue := time.Date(2026, 9, 8, 8, 0, 0, 0, time.UTC)
	if WithinHours(w, time.UTC, tue, tue.Add(30*time.Minute)) {
		t.Error("closed day must be rejected")
	}
}

func TestWithinHours_EndAtLocalMidnight(t *testing.T) {
	w := mondayHours(23*60, 24*60) // 23:00-24:00
	start := time.Date(2026, 9, 7, 23, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	if !WithinHours(w, time.UTC, start, end) {
		t.Error("a window ending exactly at midnight closes the previous day")
	}
	// But crossing into the next day by a minute does not.
	if WithinHours(w, time.UTC, start, end.Add(time.Minute)) {
		t.Error("window crossing midnight must be rejected")
	}
}

func TestWithinHours_RespectsLocation(t *testing.T) {
	// 07:00 UTC on Monday is 08:00 in UTC+1.
	loc := time.FixedZone("utc+1", 3600)
	w := mondayHours(480, 720)
	start := time.Date(2026, 9, 7, 7, 0, 0, 0, time.UTC)
	if !WithinHours(w, loc, start, start.Add(30*time.Minute)) {
		t.Error("open-hours check must evaluate in the given location")
	}
	if WithinHours(w, time.UTC, start, start.Add(30*time.Minute)) {
		t.Error("same instant in UTC is before open")
	}
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	at := func(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

	if !Overlaps(at(0), at(30), at(15), at(45)) {
		t.Error("partial overlap expected")
	}
	if Overlaps(at(0), at(30), at(30), at(60)) {
		t.Error("touching half-open intervals do not overlap")
	}
	if !Overlaps(at(0), at(60), at(15), at(30)) {
		t.Error("containment is overlap")
	}
	if Overlaps(at(0), at(15), at(30), at(45)) {
		t.Error("disjoint intervals do not overlap")
	}
}
