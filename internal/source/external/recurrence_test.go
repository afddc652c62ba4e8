package external

import (
	"testing"
	"time"
)

// 2026-03-02 is a Monday.
func mar(day, hour, min int) time.Time {
	return time.Date(2026, 3, day, hour, min, 0, 0, time.UTC)
}

func TestParseRule(t *testing.T) {
	rule, err := ParseRule("FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE;COUNT=10")
	if err != nil {
		t.Fatalf("ParseRule error: %v", err)
	}
	if rule.Frequency != FrequencyWeekly {
		t.Fatalf("frequency = %q, want WEEKLY", rule.Frequency)
	}
	if rule.Interval != 2 {
		t.Fatalf("interval = %d, want 2", rule.Interval)
	}
	if rule.Count != 10 {
		t.Fatalf("count = %d, want 10", rule.Count)
	}
	if len(rule.ByWeekday) != 2 || rule.ByWeekday[0] != 1 || rule.ByWeekday[1] != 3 {
		t.Fatalf("byweekday = %v, want [1 3]", rule.ByWeekday)
	}
}

func TestParseRule_UntilToleratesTrailingZ(t *testing.T) {
	rule, err := ParseRule("FREQ=DAILY;UNTIL=20260310T235959Z")
	if err != nil {
		t.Fatalf("ParseRule error: %v", err)
	}
	want := time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)
	if !rule.Until.Equal(want) {
		t.Fatalf("until = %v, want %v", rule.Until, want)
	}
}

func TestParseRule_IgnoresUnknownComponents(t *testing.T) {
	if _, err := ParseRule("FREQ=DAILY;WKST=MO;X-CUSTOM=1"); err != nil {
		t.Fatalf("ParseRule error: %v", err)
	}
}

func TestParseRule_Invalid(t *testing.T) {
	cases := []string{
		"INTERVAL=2",               // missing FREQ
		"FREQ=MONTHLY",             // unsupported frequency
		"FREQ=WEEKLY;BYDAY=XX",     // bad weekday
		"FREQ=DAILY;COUNT=0",       // count below 1
		"FREQ=DAILY;INTERVAL=zero", // non-numeric interval
		"FREQ=DAILY;garbage",       // component without =
	}
	for _, raw := range cases {
		if _, err := ParseRule(raw); err == nil {
			t.Fatalf("ParseRule(%q) expected error", raw)
		}
	}
}

func TestExpandDaily(t *testing.T) {
	rule := Rule{Frequency: FrequencyDaily, Interval: 1}
	got := rule.Expand(mar(2, 18, 0), mar(2, 0, 0), mar(5, 0, 0))
	want := []time.Time{mar(2, 18, 0), mar(3, 18, 0), mar(4, 18, 0)}
	assertTimes(t, got, want)
}

func TestExpandDaily_CountStopsEnumeration(t *testing.T) {
	rule := Rule{Frequency: FrequencyDaily, Interval: 1, Count: 2}
	got := rule.Expand(mar(2, 18, 0), mar(1, 0, 0), mar(30, 0, 0))
	assertTimes(t, got, []time.Time{mar(2, 18, 0), mar(3, 18, 0)})
}

func TestExpandDaily_Interval(t *testing.T) {
	rule := Rule{Frequency: FrequencyDaily, Interval: 2}
	got := rule.Expand(mar(2, 18, 0), mar(2, 0, 0), mar(9, 0, 0))
	assertTimes(t, got, []time.Time{mar(2, 18, 0), mar(4, 18, 0), mar(6, 18, 0), mar(8, 18, 0)})
}

func TestExpandDaily_Until(t *testing.T) {
	rule := Rule{Frequency: FrequencyDaily, Interval: 1, Until: mar(4, 23, 59)}
	got := rule.Expand(mar(2, 18, 0), mar(1, 0, 0), mar(30, 0, 0))
	assertTimes(t, got, []time.Time{mar(2, 18, 0), mar(3, 18, 0), mar(4, 18, 0)})
}

func TestExpandDaily_WindowFarAfterStart(t *testing.T) {
	// An unbounded daily rule anchored months back must not enumerate from
	// the anchor; the window jump has to land on the right phase.
	rule := Rule{Frequency: FrequencyDaily, Interval: 1}
	dtstart := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	got := rule.Expand(dtstart, mar(10, 0, 0), mar(12, 0, 0))
	assertTimes(t, got, []time.Time{mar(10, 10, 0), mar(11, 10, 0)})
}

func TestExpandWeekly_ByDay(t *testing.T) {
	rule := Rule{Frequency: FrequencyWeekly, Interval: 1, ByWeekday: []int16{1, 3}, Count: 3}
	got := rule.Expand(mar(2, 18, 0), mar(1, 0, 0), mar(31, 0, 0))
	assertTimes(t, got, []time.Time{mar(2, 18, 0), mar(4, 18, 0), mar(9, 18, 0)})
}

func TestExpandWeekly_CountSkipsWeekdaysBeforeAnchor(t *testing.T) {
	// Anchored on a Wednesday: the Monday of that first week never happened,
	// so it must not consume COUNT.
	rule := Rule{Frequency: FrequencyWeekly, Interval: 1, ByWeekday: []int16{1, 3}, Count: 3}
	got := rule.Expand(mar(4, 18, 0), mar(1, 0, 0), mar(31, 0, 0))
	assertTimes(t, got, []time.Time{mar(4, 18, 0), mar(9, 18, 0), mar(11, 18, 0)})
}

func TestExpandWeekly_DefaultsToAnchorWeekday(t *testing.T) {
	rule := Rule{Frequency: FrequencyWeekly, Interval: 1}
	got := rule.Expand(mar(3, 7, 30), mar(1, 0, 0), mar(18, 0, 0))
	assertTimes(t, got, []time.Time{mar(3, 7, 30), mar(10, 7, 30), mar(17, 7, 30)})
}

func TestExpandWeekly_Interval(t *testing.T) {
	rule := Rule{Frequency: FrequencyWeekly, Interval: 2, ByWeekday: []int16{1}}
	got := rule.Expand(mar(2, 18, 0), mar(1, 0, 0), mar(31, 0, 0))
	assertTimes(t, got, []time.Time{mar(2, 18, 0), mar(16, 18, 0), mar(30, 18, 0)})
}

func TestExpandWeekly_WindowOnlySeesMiddle(t *testing.T) {
	// COUNT counts from the anchor even when the query window starts later.
	rule := Rule{Frequency: FrequencyWeekly, Interval: 1, ByWeekday: []int16{1}, Count: 3}
	got := rule.Expand(mar(2, 18, 0), mar(8, 0, 0), mar(31, 0, 0))
	assertTimes(t, got, []time.Time{mar(9, 18, 0), mar(16, 18, 0)})
}

func assertTimes(t *testing.T, got, want []time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d occurrences (%v), want %d (%v)", len(got), got, len(want), want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("occurrence[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
