package schedule

import (
	"reflect"
	"testing"
)

func TestToMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"08:30", 510, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"9:00", 0, false},
		{"nope!", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := ToMinutes(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("ToMinutes(%q) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestFromMinutes(t *testing.T) {
	if got := FromMinutes(510); got != "08:30" {
		t.Errorf("FromMinutes(510) = %q, want 08:30", got)
	}
	if got := FromMinutes(0); got != "00:00" {
		t.Errorf("FromMinutes(0) = %q, want 00:00", got)
	}
}

func TestParseIntervals_FiltersInvalid(t *testing.T) {
	raw := []RawInterval{
		{Start: "09:00", End: "12:00"},
		{Start: "12:00", End: "12:00"}, // zero length
		{Start: "14:00", End: "13:00"}, // inverted
		{Start: "bad", End: "15:00"},   // malformed
		{Start: "16:00", End: "17:00"},
	}
	got := ParseIntervals(raw)
	want := []Interval{{540, 720}, {960, 1020}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseIntervals = %v, want %v", got, want)
	}
}

func TestMergeOverlapping(t *testing.T) {
	cases := []struct {
		name string
		in   []Interval
		want []Interval
	}{
		{"empty", nil, nil},
		{"disjoint stay sorted", []Interval{{600, 660}, {480, 540}}, []Interval{{480, 540}, {600, 660}}},
		{"overlapping coalesce", []Interval{{480, 600}, {540, 660}}, []Interval{{480, 660}}},
		{"touching coalesce", []Interval{{480, 540}, {540, 600}}, []Interval{{480, 600}}},
		{"contained absorbed", []Interval{{480, 720}, {500, 520}}, []Interval{{480, 720}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := MergeOverlapping(c.in)
			if !reflect.DeepEqual(got, c.want) {
				t.Errorf("MergeOverlapping(%v) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestIntersectIntervals(t *testing.T) {
	a := []Interval{{480, 720}}          // 08:00-12:00
	b := []Interval{{540, 600}, {660, 780}} // 09:00-10:00, 11:00-13:00

	want := []Interval{{540, 600}, {660, 720}}
	if got := IntersectIntervals(a, b); !reflect.DeepEqual(got, want) {
		t.Errorf("IntersectIntervals = %v, want %v", got, want)
	}
	// commutative
	if got := IntersectIntervals(b, a); !reflect.DeepEqual(got, want) {
		t.Errorf("IntersectIntervals reversed = %v, want %v", got, want)
	}
	// idempotent
	if got := IntersectIntervals(a, a); !reflect.DeepEqual(got, a) {
		t.Errorf("IntersectIntervals(a, a) = %v, want %v", got, a)
	}
	if got := IntersectIntervals(a, nil); got != nil {
		t.Errorf("IntersectIntervals(a, nil) = %v, want nil", got)
	}
}

func TestContains(t *testing.T) {
	ivs := []Interval{{480, 720}, {780, 1020}}
	if !Contains(ivs, 480, 720) {
		t.Error("expected full interval to be contained")
	}
	if !Contains(ivs, 500, 530) {
		t.Error("expected inner range to be contained")
	}
	if Contains(ivs, 700, 790) {
		t.Error("range spanning the gap must not be contained")
	}
	if Contains(ivs, 460, 500) {
		t.Error("range starting before open must not be contained")
	}
}
