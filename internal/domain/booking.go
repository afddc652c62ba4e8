package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingStatusPending      BookingStatus = "pending"
	BookingStatusPendingCoach BookingStatus = "pending_coach"
	BookingStatusConfirmed    BookingStatus = "confirmed"
	BookingStatusCompleted    BookingStatus = "completed"
	BookingStatusCancelled    BookingStatus = "cancelled"
	BookingStatusNoShow       BookingStatus = "no_show"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusPendingCoach, BookingStatusConfirmed,
		BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow:
		return true
	}
	return false
}

// Occupies reports whether a booking in this status blocks its time slot.
// Soft-cancelled rows release the slot; everything else holds it.
func (s BookingStatus) Occupies() bool {
	return s != BookingStatusCancelled && s != BookingStatusNoShow
}

var statusTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:      {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusPendingCoach: {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:    {BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow},
}

// CanTransitionTo enforces the booking state machine. No transition is
// time-driven here; an external scheduler owns those.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID              uuid.UUID     `bun:"id,pk,type:uuid"`
	ResourceID      uuid.UUID     `bun:"resource_id,notnull,type:uuid"`
	OwnerID         string        `bun:"owner_id,notnull"`
	SeriesID        *uuid.UUID    `bun:"series_id,type:uuid"`
	StartTime       time.Time     `bun:"start_time,notnull"`
	EndTime         time.Time     `bun:"end_time,notnull"`
	Status          BookingStatus `bun:"status,notnull"`
	OpenMatch       bool          `bun:"open_match,notnull,default:false"`
	ParticipantIDs  []string      `bun:"participant_ids,array"`
	MaxParticipants int           `bun:"max_participants,notnull,default:0"`
	PriceMinor      int64         `bun:"price_minor,notnull,default:0"`
	CreatedAt       time.Time     `bun:"created_at,notnull"`
	UpdatedAt       time.Time     `bun:"updated_at,notnull"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

// Date is the calendar day the booking starts on. Local bookings never
// cross midnight; start and end share this day.
func (b Booking) Date() time.Time {
	return DateOf(b.StartTime)
}

func (b Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

func (b Booking) HasParticipant(userID string) bool {
	for _, id := range b.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}
