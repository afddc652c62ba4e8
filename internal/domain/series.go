package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type SeriesFrequency string

const (
	SeriesFrequencyDaily  SeriesFrequency = "daily"
	SeriesFrequencyWeekly SeriesFrequency = "weekly"
)

func (f SeriesFrequency) stepDays() (int, bool) {
	switch f {
	case SeriesFrequencyDaily:
		return 1, true
	case SeriesFrequencyWeekly:
		return 7, true
	}
	return 0, false
}

// RecurringSeries is a locally defined repetition. Its occurrences are
// materialized eagerly as Booking rows tagged with the series id; the row
// here only records the definition.
type RecurringSeries struct {
	bun.BaseModel `bun:"table:recurring_series"`

	ID              uuid.UUID       `bun:"id,pk,type:uuid"`
	ResourceID      uuid.UUID       `bun:"resource_id,notnull,type:uuid"`
	OwnerID         string          `bun:"owner_id,notnull"`
	Frequency       SeriesFrequency `bun:"frequency,notnull"`
	OccurrenceCount int             `bun:"occurrence_count,notnull"`
	AnchorStart     time.Time       `bun:"anchor_start,notnull"`
	AnchorEnd       time.Time       `bun:"anchor_end,notnull"`
	CreatedAt       time.Time       `bun:"created_at,notnull"`
	UpdatedAt       time.Time       `bun:"updated_at,notnull"`
}

func (s *RecurringSeries) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

// Occurrences steps the anchor range by one day (daily) or seven days
// (weekly), OccurrenceCount times.
func (s RecurringSeries) Occurrences() ([]Interval, error) {
	step, ok := s.Frequency.stepDays()
	if !ok {
		return nil, errors.New("unsupported series frequency")
	}
	if s.OccurrenceCount < 1 {
		return nil, errors.New("occurrence count must be at least 1")
	}
	anchor := Interval{Start: s.AnchorStart, End: s.AnchorEnd}
	if err := anchor.Validate(); err != nil {
		return nil, err
	}

	out := make([]Interval, 0, s.OccurrenceCount)
	for i := 0; i < s.OccurrenceCount; i++ {
		out = append(out, Interval{
			Start: anchor.Start.AddDate(0, 0, i*step),
			End:   anchor.End.AddDate(0, 0, i*step),
		})
	}
	return out, nil
}
