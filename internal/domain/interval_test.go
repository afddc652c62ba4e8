package domain

import (
	"errors"
	"testing"
	"time"
)

func at(day, hour, min int) time.Time {
	return time.Date(2026, 3, day, hour, min, 0, 0, time.UTC)
}

func TestIntervalValidate(t *testing.T) {
	if err := (Interval{Start: at(1, 10, 0), End: at(1, 11, 0)}).Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if err := (Interval{Start: at(1, 11, 0), End: at(1, 10, 0)}).Validate(); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
	if err := (Interval{Start: at(1, 10, 0), End: at(1, 10, 0)}).Validate(); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("zero-length err = %v, want ErrInvalidRange", err)
	}
}

func TestIntervalOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{
			name: "partial overlap",
			a:    Interval{Start: at(1, 10, 0), End: at(1, 12, 0)},
			b:    Interval{Start: at(1, 11, 0), End: at(1, 13, 0)},
			want: true,
		},
		{
			name: "containment",
			a:    Interval{Start: at(1, 10, 0), End: at(1, 14, 0)},
			b:    Interval{Start: at(1, 11, 0), End: at(1, 12, 0)},
			want: true,
		},
		{
			name: "touching endpoints do not conflict",
			a:    Interval{Start: at(1, 10, 0), End: at(1, 11, 0)},
			b:    Interval{Start: at(1, 11, 0), End: at(1, 12, 0)},
			want: false,
		},
		{
			name: "disjoint",
			a:    Interval{Start: at(1, 10, 0), End: at(1, 11, 0)},
			b:    Interval{Start: at(1, 15, 0), End: at(1, 16, 0)},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Overlaps(tc.b); got != tc.want {
				t.Fatalf("a.Overlaps(b) = %v, want %v", got, tc.want)
			}
			if got := tc.b.Overlaps(tc.a); got != tc.want {
				t.Fatalf("b.Overlaps(a) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMergeIntervals_JoinsTouchingRanges(t *testing.T) {
	merged := MergeIntervals([]Interval{
		{Start: at(1, 19, 0), End: at(1, 21, 0)},
		{Start: at(1, 17, 0), End: at(1, 19, 0)},
	})
	if len(merged) != 1 {
		t.Fatalf("merged = %d intervals, want 1", len(merged))
	}
	if !merged[0].Start.Equal(at(1, 17, 0)) || !merged[0].End.Equal(at(1, 21, 0)) {
		t.Fatalf("merged = %v–%v, want 17:00–21:00", merged[0].Start, merged[0].End)
	}
}

func TestMergeIntervals_KeepsDisjointRanges(t *testing.T) {
	merged := MergeIntervals([]Interval{
		{Start: at(1, 9, 0), End: at(1, 10, 0)},
		{Start: at(1, 14, 0), End: at(1, 15, 0)},
		{Start: at(1, 9, 30), End: at(1, 10, 30)},
	})
	if len(merged) != 2 {
		t.Fatalf("merged = %d intervals, want 2", len(merged))
	}
	if !merged[0].End.Equal(at(1, 10, 30)) {
		t.Fatalf("first merged end = %v, want 10:30", merged[0].End)
	}
	if !merged[1].Start.Equal(at(1, 14, 0)) {
		t.Fatalf("second merged start = %v, want 14:00", merged[1].Start)
	}
}

func TestMergeIntervals_DoesNotModifyInput(t *testing.T) {
	input := []Interval{
		{Start: at(1, 12, 0), End: at(1, 13, 0)},
		{Start: at(1, 9, 0), End: at(1, 10, 0)},
	}
	MergeIntervals(input)
	if !input[0].Start.Equal(at(1, 12, 0)) {
		t.Fatalf("input reordered in place")
	}
}

func TestSplitByDay_MidnightCrossing(t *testing.T) {
	segments := SplitByDay(Interval{Start: at(5, 22, 0), End: at(6, 2, 0)})
	if len(segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(segments))
	}
	if !segments[0].Start.Equal(at(5, 22, 0)) || !segments[0].End.Equal(at(6, 0, 0)) {
		t.Fatalf("first segment = %v–%v, want 22:00–midnight", segments[0].Start, segments[0].End)
	}
	if !segments[1].Start.Equal(at(6, 0, 0)) || !segments[1].End.Equal(at(6, 2, 0)) {
		t.Fatalf("second segment = %v–%v, want midnight–02:00", segments[1].Start, segments[1].End)
	}
}

func TestSplitByDay_SameDayPassthrough(t *testing.T) {
	segments := SplitByDay(Interval{Start: at(5, 10, 0), End: at(5, 11, 0)})
	if len(segments) != 1 {
		t.Fatalf("segments = %d, want 1", len(segments))
	}
}

func TestFreeGaps(t *testing.T) {
	window := Interval{Start: at(1, 8, 0), End: at(1, 22, 0)}
	occupied := []Interval{
		{Start: at(1, 10, 0), End: at(1, 11, 0)},
		{Start: at(1, 17, 0), End: at(1, 19, 0)},
	}

	gaps := FreeGaps(window, occupied)
	want := []Interval{
		{Start: at(1, 8, 0), End: at(1, 10, 0)},
		{Start: at(1, 11, 0), End: at(1, 17, 0)},
		{Start: at(1, 19, 0), End: at(1, 22, 0)},
	}
	if len(gaps) != len(want) {
		t.Fatalf("gaps = %d, want %d", len(gaps), len(want))
	}
	for i := range want {
		if !gaps[i].Start.Equal(want[i].Start) || !gaps[i].End.Equal(want[i].End) {
			t.Fatalf("gap[%d] = %v–%v, want %v–%v", i, gaps[i].Start, gaps[i].End, want[i].Start, want[i].End)
		}
	}
}

func TestFreeGaps_ClipsOccupiedOutsideWindow(t *testing.T) {
	window := Interval{Start: at(1, 8, 0), End: at(1, 12, 0)}
	occupied := []Interval{
		{Start: at(1, 6, 0), End: at(1, 9, 0)},
		{Start: at(1, 11, 0), End: at(1, 14, 0)},
		{Start: at(1, 20, 0), End: at(1, 21, 0)},
	}

	gaps := FreeGaps(window, occupied)
	if len(gaps) != 1 {
		t.Fatalf("gaps = %d, want 1", len(gaps))
	}
	if !gaps[0].Start.Equal(at(1, 9, 0)) || !gaps[0].End.Equal(at(1, 11, 0)) {
		t.Fatalf("gap = %v–%v, want 09:00–11:00", gaps[0].Start, gaps[0].End)
	}
}

func TestFreeGaps_FullyBooked(t *testing.T) {
	window := Interval{Start: at(1, 8, 0), End: at(1, 10, 0)}
	gaps := FreeGaps(window, []Interval{{Start: at(1, 8, 0), End: at(1, 10, 0)}})
	if len(gaps) != 0 {
		t.Fatalf("gaps = %v, want none", gaps)
	}
}

func TestFormatRange(t *testing.T) {
	cases := []struct {
		iv   Interval
		want string
	}{
		{Interval{Start: at(1, 17, 0), End: at(1, 19, 0)}, "5pm–7pm"},
		{Interval{Start: at(1, 9, 30), End: at(1, 10, 0)}, "9:30am–10am"},
		{Interval{Start: at(1, 0, 0), End: at(1, 1, 0)}, "12am–1am"},
		{Interval{Start: at(1, 11, 0), End: at(1, 12, 0)}, "11am–12pm"},
	}
	for _, tc := range cases {
		if got := FormatRange(tc.iv); got != tc.want {
			t.Fatalf("FormatRange(%v) = %q, want %q", tc.iv, got, tc.want)
		}
	}
}

func TestDateOf(t *testing.T) {
	got := DateOf(at(7, 23, 59))
	if !got.Equal(time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("DateOf = %v, want midnight of the same day", got)
	}
}
