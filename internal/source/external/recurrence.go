package external

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyDaily  Frequency = "DAILY"
	FrequencyWeekly Frequency = "WEEKLY"
)

// Rule is the supported subset of the provider's recurrence rule string:
// FREQ, INTERVAL, COUNT, UNTIL and BYDAY. All instants are floating.
type Rule struct {
	Frequency Frequency
	Interval  int
	Count     int       // 0 means unbounded
	Until     time.Time // zero means unbounded
	ByWeekday []int16   // ISO weekday 1..7, weekly only
}

var weekdayNames = map[string]int16{
	"MO": 1, "TU": 2, "WE": 3, "TH": 4, "FR": 5, "SA": 6, "SU": 7,
}

const untilLayout = "20060102T150405"

// ParseRule parses e.g. "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE;COUNT=10".
// A trailing Z on UNTIL is tolerated and ignored: the literal numbers pass
// through as a floating instant.
func ParseRule(raw string) (Rule, error) {
	rule := Rule{Interval: 1}
	seenFreq := false

	for _, part := range strings.Split(strings.TrimSpace(raw), ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return Rule{}, fmt.Errorf("malformed rule component %q", part)
		}

		switch strings.ToUpper(key) {
		case "FREQ":
			switch Frequency(strings.ToUpper(value)) {
			case FrequencyDaily:
				rule.Frequency = FrequencyDaily
			case FrequencyWeekly:
				rule.Frequency = FrequencyWeekly
			default:
				return Rule{}, fmt.Errorf("unsupported frequency %q", value)
			}
			seenFreq = true
		case "INTERVAL":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return Rule{}, fmt.Errorf("invalid interval %q", value)
			}
			rule.Interval = n
		case "COUNT":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return Rule{}, fmt.Errorf("invalid count %q", value)
			}
			rule.Count = n
		case "UNTIL":
			v := strings.TrimSuffix(strings.ToUpper(value), "Z")
			t, err := time.Parse(untilLayout, v)
			if err != nil {
				return Rule{}, fmt.Errorf("invalid until %q", value)
			}
			rule.Until = t
		case "BYDAY":
			for _, name := range strings.Split(value, ",") {
				wd, ok := weekdayNames[strings.ToUpper(strings.TrimSpace(name))]
				if !ok {
					return Rule{}, fmt.Errorf("invalid weekday %q", name)
				}
				rule.ByWeekday = append(rule.ByWeekday, wd)
			}
		default:
			// Unknown components are ignored rather than failing the
			// whole definition.
		}
	}

	if !seenFreq {
		return Rule{}, errors.New("rule missing FREQ")
	}
	return rule, nil
}

// Expand enumerates occurrence start instants inside [windowStart,
// windowEnd), in chronological order. All arithmetic stays on the UTC-held
// floating values; no timezone conversion is ever applied.
func (r Rule) Expand(dtstart, windowStart, windowEnd time.Time) []time.Time {
	switch r.Frequency {
	case FrequencyDaily:
		return r.expandDaily(dtstart, windowStart, windowEnd)
	case FrequencyWeekly:
		return r.expandWeekly(dtstart, windowStart, windowEnd)
	}
	return nil
}

func (r Rule) expandDaily(dtstart, windowStart, windowEnd time.Time) []time.Time {
	step := r.Interval

	startIndex := 0
	if windowStart.After(dtstart) && r.Count == 0 {
		daysDiff := int(windowStart.Sub(dtstart) / (24 * time.Hour))
		startIndex = daysDiff / step
	}

	out := make([]time.Time, 0, 8)
	for i := startIndex; ; i++ {
		if r.Count > 0 && i >= r.Count {
			return out
		}
		start := dtstart.AddDate(0, 0, i*step)
		if !r.Until.IsZero() && start.After(r.Until) {
			return out
		}
		if !start.Before(windowEnd) {
			return out
		}
		if !start.Before(windowStart) {
			out = append(out, start)
		}
	}
}

func (r Rule) expandWeekly(dtstart, windowStart, windowEnd time.Time) []time.Time {
	weekdays := make([]int16, 0, len(r.ByWeekday))
	seen := make(map[int16]struct{}, len(r.ByWeekday))
	for _, wd := range r.ByWeekday {
		if _, ok := seen[wd]; ok {
			continue
		}
		seen[wd] = struct{}{}
		weekdays = append(weekdays, wd)
	}
	if len(weekdays) == 0 {
		weekdays = []int16{isoWeekday(dtstart)}
	}
	for i := 1; i < len(weekdays); i++ {
		key := weekdays[i]
		j := i - 1
		for j >= 0 && weekdays[j] > key {
			weekdays[j+1] = weekdays[j]
			j--
		}
		weekdays[j+1] = key
	}

	startWeekMonday := mondayOf(dtstart)
	windowEndWeekBoundary := mondayOf(windowEnd).AddDate(0, 0, 7)

	startWeekIndex := 0
	if windowMonday := mondayOf(windowStart); windowMonday.After(startWeekMonday) {
		daysDiff := int(windowMonday.Sub(startWeekMonday) / (24 * time.Hour))
		startWeekIndex = daysDiff / (7 * r.Interval)
	}

	// Occurrence indices count from dtstart even when the window skips
	// ahead, so COUNT consumes instances the window never sees.
	occPerWeek := len(weekdays)
	skippedInFirstWeek := 0
	for _, wd := range weekdays {
		if occurrenceOn(startWeekMonday, wd, dtstart).Before(dtstart) {
			skippedInFirstWeek++
		}
	}

	out := make([]time.Time, 0, 8)
	for weekIndex := startWeekIndex; ; weekIndex++ {
		weekMonday := startWeekMonday.AddDate(0, 0, weekIndex*r.Interval*7)
		if !weekMonday.Before(windowEndWeekBoundary) {
			return out
		}

		for weekdayIndex, wd := range weekdays {
			start := occurrenceOn(weekMonday, wd, dtstart)
			if start.Before(dtstart) {
				continue
			}
			if !r.Until.IsZero() && start.After(r.Until) {
				return out
			}
			if r.Count > 0 {
				globalIndex := weekIndex*occPerWeek + weekdayIndex - skippedInFirstWeek
				if globalIndex >= r.Count {
					return out
				}
			}
			if !start.Before(windowStart) && start.Before(windowEnd) {
				out = append(out, start)
			}
		}
	}
}

func occurrenceOn(weekMonday time.Time, weekday int16, dtstart time.Time) time.Time {
	date := weekMonday.AddDate(0, 0, int(weekday)-1)
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		dtstart.Hour(), dtstart.Minute(), dtstart.Second(), dtstart.Nanosecond(),
		time.UTC,
	)
}

func mondayOf(t time.Time) time.Time {
	offset := int(t.Weekday()) - 1
	if t.Weekday() == time.Sunday {
		offset = 6
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -offset)
}

func isoWeekday(t time.Time) int16 {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int16(t.Weekday())
}
