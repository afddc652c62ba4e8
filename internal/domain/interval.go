package domain

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrInvalidRange is returned when a requested time range has a start at or
// after its end.
var ErrInvalidRange = errors.New("invalid time range")

// FloatingLayout is the wire format for floating timestamps: wall-clock
// values without a UTC offset. Parsing it with time.Parse yields a UTC-held
// time.Time whose fields are the literal numbers from the input.
const FloatingLayout = "2006-01-02T15:04:05"

const DateLayout = "2006-01-02"

// Interval is a half-open [Start, End) occupancy range. Both endpoints are
// floating times carried in UTC fields; they are compared as plain
// date+time tuples and never pass through a timezone conversion.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Validate() error {
	if !iv.Start.Before(iv.End) {
		return ErrInvalidRange
	}
	return nil
}

// Overlaps reports whether two half-open intervals share any instant.
// Touching endpoints do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// DateOf truncates a floating time to its calendar day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MergeIntervals unions overlapping and touching intervals into a sorted,
// non-overlapping set. The input is not modified.
func MergeIntervals(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	out := make([]Interval, 0, len(sorted))
	current := sorted[0]
	for _, iv := range sorted[1:] {
		if iv.Start.After(current.End) {
			out = append(out, current)
			current = iv
			continue
		}
		if iv.End.After(current.End) {
			current.End = iv.End
		}
	}
	return append(out, current)
}

// SplitByDay clamps an interval into per-calendar-day segments, so an
// occurrence crossing midnight occupies the tail of its start day and the
// head of the following day(s).
func SplitByDay(iv Interval) []Interval {
	if iv.Validate() != nil {
		return nil
	}

	out := make([]Interval, 0, 1)
	segStart := iv.Start
	for segStart.Before(iv.End) {
		nextMidnight := DateOf(segStart).AddDate(0, 0, 1)
		segEnd := iv.End
		if nextMidnight.Before(segEnd) {
			segEnd = nextMidnight
		}
		out = append(out, Interval{Start: segStart, End: segEnd})
		segStart = nextMidnight
	}
	return out
}

// FreeGaps computes the complement of a sorted, non-overlapping occupied set
// inside the window. Occupied intervals outside the window are clipped.
func FreeGaps(window Interval, occupied []Interval) []Interval {
	if window.Validate() != nil {
		return nil
	}

	gaps := make([]Interval, 0, len(occupied)+1)
	cursor := window.Start
	for _, iv := range occupied {
		if !iv.End.After(window.Start) || !iv.Start.Before(window.End) {
			continue
		}
		start := iv.Start
		if start.Before(cursor) {
			start = cursor
		}
		if cursor.Before(start) {
			gaps = append(gaps, Interval{Start: cursor, End: start})
		}
		if iv.End.After(cursor) {
			cursor = iv.End
		}
	}
	if cursor.Before(window.End) {
		gaps = append(gaps, Interval{Start: cursor, End: window.End})
	}
	return gaps
}

// FormatClock renders a floating time as a compact 12-hour label, e.g.
// "5pm" or "5:30pm". Midnight renders as "12am".
func FormatClock(t time.Time) string {
	if t.Minute() == 0 {
		return strings.ToLower(t.Format("3PM"))
	}
	return strings.ToLower(t.Format("3:04PM"))
}

// FormatRange renders a free gap for display, e.g. "5pm–7pm".
func FormatRange(iv Interval) string {
	return FormatClock(iv.Start) + "–" + FormatClock(iv.End)
}
