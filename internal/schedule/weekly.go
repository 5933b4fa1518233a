package schedule

import (
	"encoding/json"
	"time"
)

// WeekdayKeys lists the weekly-hours map keys, Monday first. Legacy
// positional layouts are decoded against this order.
var WeekdayKeys = [7]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

var longDayNames = map[string]string{
	"monday":    "mon",
	"tuesday":   "tue",
	"wednesday": "wed",
	"thursday":  "thu",
	"friday":    "fri",
	"saturday":  "sat",
	"sunday":    "sun",
}

// WeeklyHours maps weekday key (mon..sun) to open intervals. A normalized
// value always carries all seven keys; days with no hours hold an empty list.
type WeeklyHours map[string][]Interval

// DayKey returns the weekly-hours key for a Go weekday.
func DayKey(d time.Weekday) string {
	// time.Sunday is 0; WeekdayKeys is Monday-first.
	return WeekdayKeys[(int(d)+6)%7]
}

// Empty reports whether no weekday has any open interval.
func (w WeeklyHours) Empty() bool {
	for _, key := range WeekdayKeys {
		if len(w[key]) > 0 {
			return false
		}
	}
	return true
}

// Intersect produces the weekly hours present in both inputs, per weekday.
func Intersect(a, b WeeklyHours) WeeklyHours {
	out := make(WeeklyHours, len(WeekdayKeys))
	for _, key := range WeekdayKeys {
		ivs := IntersectIntervals(a[key], b[key])
		if ivs == nil {
			ivs = []Interval{}
		}
		out[key] = ivs
	}
	return out
}

// NewWeeklyHours returns a normalized empty week.
func NewWeeklyHours() WeeklyHours {
	out := make(WeeklyHours, len(WeekdayKeys))
	for _, key := range WeekdayKeys {
		out[key] = []Interval{}
	}
	return out
}

// rawWeek matches the canonical weeklyHours field: short day keys mapping to
// interval lists.
type rawWeek map[string][]RawInterval

// ParseWeek decodes a bare canonical week map (short day keys). Unknown keys
// are ignored; malformed intervals are dropped.
func ParseWeek(raw json.RawMessage) WeeklyHours {
	out := NewWeeklyHours()
	if len(raw) == 0 {
		return out
	}
	var week rawWeek
	if err := json.Unmarshal(raw, &week); err != nil {
		return out
	}
	for _, key := range WeekdayKeys {
		merged := MergeOverlapping(ParseIntervals(week[key]))
		if merged == nil {
			merged = []Interval{}
		}
		out[key] = merged
	}
	return out
}

// NormalizeWeeklyHours decodes any of the historical weekly-hours layouts
// into a normalized week. The fallback chain is ordered and is
// backward-compatibility policy, so it must stay pinned by tests:
//
//  1. "weeklyHours": {"mon": [{"start","end"}], ...}
//  2. "openingHours": {"monday": [{"start","end"}], ...} (long day names)
//  3. "openingHours": [[...], ...] — a 7-element array read positionally
//     as Mon..Sun
//
// Unrecognized input yields an empty (never nil) week.
func NormalizeWeeklyHours(raw json.RawMessage) WeeklyHours {
	out := NewWeeklyHours()
	if len(raw) == 0 {
		return out
	}

	var doc struct {
		WeeklyHours  json.RawMessage `json:"weeklyHours"`
		OpeningHours json.RawMessage `json:"openingHours"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return out
	}

	if len(doc.WeeklyHours) > 0 {
		var week rawWeek
		if err := json.Unmarshal(doc.WeeklyHours, &week); err == nil {
			return ParseWeek(doc.WeeklyHours)
		}
	}

	if len(doc.OpeningHours) > 0 {
		var byName map[string][]RawInterval
		if err := json.Unmarshal(doc.OpeningHours, &byName); err == nil {
			for name, raw := range byName {
				key, ok := longDayNames[name]
				if !ok {
					continue
				}
				out[key] = MergeOverlapping(ParseIntervals(raw))
				if out[key] == nil {
					out[key] = []Interval{}
				}
			}
			return out
		}

		// Oldest layout: a bare 7-element array, positionally Mon..Sun.
		var positional [][]RawInterval
		if err := json.Unmarshal(doc.OpeningHours, &positional); err == nil && len(positional) == 7 {
			for i, key := range WeekdayKeys {
				out[key] = MergeOverlapping(ParseIntervals(positional[i]))
				if out[key] == nil {
					out[key] = []Interval{}
				}
			}
			return out
		}
	}

	return out
}

// MarshalWeek renders a normalized week back into the canonical wire shape
// with all seven keys present.
func MarshalWeek(w WeeklyHours) map[string][]RawInterval {
	out := make(map[string][]RawInterval, len(WeekdayKeys))
	for _, key := range WeekdayKeys {
		raws := make([]RawInterval, 0, len(w[key]))
		for _, iv := range w[key] {
			raws = append(raws, RawInterval{Start: FromMinutes(iv.Start), End: FromMinutes(iv.End)})
		}
		out[key] = raws
	}
	return out
}
