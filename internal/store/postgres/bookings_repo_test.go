package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"matchpoint/backend/internal/domain"
	"matchpoint/backend/internal/store"
)

type fakeResourceTx struct {
	active  []domain.Booking
	listErr error
}

func (f *fakeResourceTx) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	panic("InsertBooking not expected")
}

func (f *fakeResourceTx) InsertRecurringSeries(ctx context.Context, s domain.RecurringSeries) (domain.RecurringSeries, error) {
	panic("InsertRecurringSeries not expected")
}

func (f *fakeResourceTx) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	panic("GetBooking not expected")
}

func (f *fakeResourceTx) ListActiveBookings(ctx context.Context, resourceID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var rows []domain.Booking
	for _, b := range f.active {
		if b.StartTime.Before(windowEnd) && b.EndTime.After(windowStart) {
			rows = append(rows, b)
		}
	}
	return rows, nil
}

func (f *fakeResourceTx) ListSeriesFrom(ctx context.Context, seriesID uuid.UUID, fromDate time.Time) ([]domain.Booking, error) {
	panic("ListSeriesFrom not expected")
}

func (f *fakeResourceTx) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	panic("UpdateBooking not expected")
}

func (f *fakeResourceTx) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	panic("DeleteBooking not expected")
}

func at(day, hour, min int) time.Time {
	return time.Date(2026, 3, day, hour, min, 0, 0, time.UTC)
}

var court = uuid.MustParse("0195fe44-0000-7000-8000-0000000000ff")

func activeBooking(id byte, start, end time.Time) domain.Booking {
	return domain.Booking{
		ID:         uuid.UUID{15: id},
		ResourceID: court,
		StartTime:  start,
		EndTime:    end,
		Status:     domain.BookingStatusConfirmed,
	}
}

func TestEnsureNoBookingConflicts(t *testing.T) {
	tx := &fakeResourceTx{active: []domain.Booking{
		activeBooking(1, at(10, 17, 0), at(10, 19, 0)),
	}}

	err := ensureNoBookingConflicts(context.Background(), tx, court, []domain.Interval{
		{Start: at(10, 18, 0), End: at(10, 20, 0)},
	}, nil)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestEnsureNoBookingConflicts_TouchingEndpointsAllowed(t *testing.T) {
	tx := &fakeResourceTx{active: []domain.Booking{
		activeBooking(1, at(10, 17, 0), at(10, 19, 0)),
	}}

	err := ensureNoBookingConflicts(context.Background(), tx, court, []domain.Interval{
		{Start: at(10, 19, 0), End: at(10, 21, 0)},
		{Start: at(10, 15, 0), End: at(10, 17, 0)},
	}, nil)
	if err != nil {
		t.Fatalf("ensureNoBookingConflicts error: %v", err)
	}
}

func TestEnsureNoBookingConflicts_CandidatesAgainstEachOther(t *testing.T) {
	tx := &fakeResourceTx{}

	err := ensureNoBookingConflicts(context.Background(), tx, court, []domain.Interval{
		{Start: at(10, 10, 0), End: at(10, 12, 0)},
		{Start: at(10, 11, 0), End: at(10, 13, 0)},
	}, nil)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict between candidates", err)
	}
}

func TestEnsureNoBookingConflicts_ExcludesOwnRow(t *testing.T) {
	own := activeBooking(1, at(10, 17, 0), at(10, 19, 0))
	tx := &fakeResourceTx{active: []domain.Booking{own}}

	// Shifting a booking within its own current range must not conflict
	// with itself.
	err := ensureNoBookingConflicts(context.Background(), tx, court, []domain.Interval{
		{Start: at(10, 17, 30), End: at(10, 19, 30)},
	}, map[uuid.UUID]struct{}{own.ID: {}})
	if err != nil {
		t.Fatalf("ensureNoBookingConflicts error: %v", err)
	}
}

func TestEnsureNoBookingConflicts_InvalidCandidate(t *testing.T) {
	tx := &fakeResourceTx{}

	err := ensureNoBookingConflicts(context.Background(), tx, court, []domain.Interval{
		{Start: at(10, 19, 0), End: at(10, 17, 0)},
	}, nil)
	if !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
}

func TestEnsureNoBookingConflicts_ListFailurePropagates(t *testing.T) {
	tx := &fakeResourceTx{listErr: errors.New("connection reset")}

	err := ensureNoBookingConflicts(context.Background(), tx, court, []domain.Interval{
		{Start: at(10, 17, 0), End: at(10, 18, 0)},
	}, nil)
	if err == nil || errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want the underlying list error", err)
	}
}
