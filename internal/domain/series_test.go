package domain

import (
	"errors"
	"testing"
	"time"
)

func TestSeriesOccurrences_Weekly(t *testing.T) {
	s := RecurringSeries{
		Frequency:       SeriesFrequencyWeekly,
		OccurrenceCount: 3,
		AnchorStart:     time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC),
		AnchorEnd:       time.Date(2026, 3, 2, 19, 30, 0, 0, time.UTC),
	}

	occs, err := s.Occurrences()
	if err != nil {
		t.Fatalf("Occurrences error: %v", err)
	}
	if len(occs) != 3 {
		t.Fatalf("occurrences = %d, want 3", len(occs))
	}
	for i, wantDay := range []int{2, 9, 16} {
		want := time.Date(2026, 3, wantDay, 18, 0, 0, 0, time.UTC)
		if !occs[i].Start.Equal(want) {
			t.Fatalf("occurrence[%d] start = %v, want %v", i, occs[i].Start, want)
		}
		if occs[i].Duration() != 90*time.Minute {
			t.Fatalf("occurrence[%d] duration = %v, want 90m", i, occs[i].Duration())
		}
	}
}

func TestSeriesOccurrences_Daily(t *testing.T) {
	s := RecurringSeries{
		Frequency:       SeriesFrequencyDaily,
		OccurrenceCount: 2,
		AnchorStart:     time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC),
		AnchorEnd:       time.Date(2026, 3, 31, 10, 0, 0, 0, time.UTC),
	}

	occs, err := s.Occurrences()
	if err != nil {
		t.Fatalf("Occurrences error: %v", err)
	}
	// Stepping across a month boundary.
	if !occs[1].Start.Equal(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("occurrence[1] start = %v, want April 1st 09:00", occs[1].Start)
	}
}

func TestSeriesOccurrences_Invalid(t *testing.T) {
	base := RecurringSeries{
		Frequency:       SeriesFrequencyDaily,
		OccurrenceCount: 1,
		AnchorStart:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		AnchorEnd:       time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
	}

	t.Run("unsupported frequency", func(t *testing.T) {
		s := base
		s.Frequency = "monthly"
		if _, err := s.Occurrences(); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("zero count", func(t *testing.T) {
		s := base
		s.OccurrenceCount = 0
		if _, err := s.Occurrences(); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("inverted anchor", func(t *testing.T) {
		s := base
		s.AnchorStart, s.AnchorEnd = s.AnchorEnd, s.AnchorStart
		if _, err := s.Occurrences(); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("err = %v, want ErrInvalidRange", err)
		}
	})
}
