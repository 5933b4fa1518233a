package schedule

import (
	"fmt"
	"sort"
)

// Interval is a time-of-day range in minutes from midnight, half-open
// [Start, End). Produced by ParseIntervals, so End > Start always holds.
type Interval struct {
	Start int
	End   int
}

// RawInterval is the wire shape of an interval: "HH:MM" strings.
type RawInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ToMinutes parses "HH:MM" into minutes from midnight.
func ToMinutes(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// FromMinutes renders minutes from midnight as "HH:MM".
func FromMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseIntervals validates raw intervals, dropping malformed and zero or
// negative length entries. Invalid input is filtered, never rejected.
func ParseIntervals(raw []RawInterval) []Interval {
	out := make([]Interval, 0, len(raw))
	for _, r := range raw {
		start, ok := ToMinutes(r.Start)
		if !ok {
			continue
		}
		end, ok := ToMinutes(r.End)
		if !ok {
			continue
		}
		if end <= start {
			continue
		}
		out = append(out, Interval{Start: start, End: end})
	}
	return out
}

// MergeOverlapping sorts intervals by start and coalesces touching or
// overlapping ranges. Output is sorted and pairwise non-overlapping.
func MergeOverlapping(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	out := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// IntersectIntervals produces only the ranges present in both inputs.
// Inputs need not be sorted; the result is sorted and non-overlapping.
func IntersectIntervals(a, b []Interval) []Interval {
	ma := MergeOverlapping(a)
	mb := MergeOverlapping(b)

	var out []Interval
	i, j := 0, 0
	for i < len(ma) && j < len(mb) {
		start := ma[i].Start
		if mb[j].Start > start {
			start = mb[j].Start
		}
		end := ma[i].End
		if mb[j].End < end {
			end = mb[j].End
		}
		if start < end {
			out = append(out, Interval{Start: start, End: end})
		}
		if ma[i].End < mb[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

// Contains reports whether [start, end) lies fully inside one interval.
func Contains(intervals []Interval, start, end int) bool {
	for _, iv := range intervals {
		if start >= iv.Start && end <= iv.End {
			return true
		}
	}
	return false
}
