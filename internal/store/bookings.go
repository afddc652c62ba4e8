package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"matchpoint/backend/internal/domain"
)

// ResourceTx is the set of booking operations available inside a
// per-resource transaction. The transaction holds an advisory lock on the
// resource, so no two concurrent commits can both observe a slot as free.
type ResourceTx interface {
	InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	InsertRecurringSeries(ctx context.Context, s domain.RecurringSeries) (domain.RecurringSeries, error)
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	ListActiveBookings(ctx context.Context, resourceID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Booking, error)
	ListSeriesFrom(ctx context.Context, seriesID uuid.UUID, fromDate time.Time) ([]domain.Booking, error)
	UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	DeleteBooking(ctx context.Context, id uuid.UUID) error
}

// BookingRepository couples each mutation with its local conflict check in
// one atomic unit. Mutations on disjoint resources do not block each other.
type BookingRepository interface {
	// CreateBooking inserts after re-checking local occupancy; ErrConflict
	// when the slot is taken.
	CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)

	// CreateSeries inserts the definition and every materialized instance
	// in one transaction. Any conflicting instance aborts the whole series.
	CreateSeries(ctx context.Context, s domain.RecurringSeries, instances []domain.Booking) (domain.RecurringSeries, []domain.Booking, error)

	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)

	// UpdateBooking re-checks occupancy excluding the row's own current
	// interval, then applies the changes.
	UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)

	// UpdateBookings applies sibling updates atomically; each row gets its
	// own conflict re-check and one failure aborts all of them.
	UpdateBookings(ctx context.Context, resourceID uuid.UUID, rows []domain.Booking) ([]domain.Booking, error)

	// DeleteBooking removes one row and returns its pre-delete state.
	DeleteBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)

	// DeleteSeriesFrom removes every sibling with date >= fromDate and
	// returns the deleted rows.
	DeleteSeriesFrom(ctx context.Context, seriesID uuid.UUID, fromDate time.Time) ([]domain.Booking, error)

	ListActiveBookings(ctx context.Context, resourceID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Booking, error)
	ListSeriesFrom(ctx context.Context, seriesID uuid.UUID, fromDate time.Time) ([]domain.Booking, error)
}
