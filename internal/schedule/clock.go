package schedule

import "time"

// DateOf renders t as a YYYY-MM-DD calendar day in loc.
func DateOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// MinutesOf returns t's time of day in loc as minutes from midnight.
func MinutesOf(t time.Time, loc *time.Location) int {
	lt := t.In(loc)
	return lt.Hour()*60 + lt.Minute()
}

// WithinHours reports whether [start, end) falls on a single local calendar
// day and lies fully inside one open interval of that weekday.
func WithinHours(w WeeklyHours, loc *time.Location, start, end time.Time) bool {
	ls := start.In(loc)
	le := end.In(loc)

	sameDay := ls.Year() == le.Year() && ls.YearDay() == le.YearDay()
	endMin := le.Hour()*60 + le.Minute()
	// An end exactly at local midnight closes the previous day.
	if !sameDay {
		prev := le.Add(-time.Minute)
		if endMin == 0 && prev.Year() == ls.Year() && prev.YearDay() == ls.YearDay() {
			endMin = 24 * 60
		} else {
			return false
		}
	}

	day := w[DayKey(ls.Weekday())]
	startMin := ls.Hour()*60 + ls.Minute()
	return Contains(day, startMin, endMin)
}

// Overlaps is the half-open interval overlap test used everywhere blocking
// data is compared.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
