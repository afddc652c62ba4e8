package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"matchpoint/backend/internal/domain"
	"matchpoint/backend/internal/store"
)

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

type resourceTx struct {
	tx bun.Tx
}

func (r *BookingRepo) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	var out domain.Booking
	err := r.inResourceTransaction(ctx, b.ResourceID, func(ctx context.Context, tx store.ResourceTx) error {
		if err := ensureNoBookingConflicts(ctx, tx, b.ResourceID, []domain.Interval{b.Interval()}, nil); err != nil {
			return err
		}
		created, err := tx.InsertBooking(ctx, b)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return out, nil
}

func (r *BookingRepo) CreateSeries(ctx context.Context, s domain.RecurringSeries, instances []domain.Booking) (domain.RecurringSeries, []domain.Booking, error) {
	var (
		outSeries domain.RecurringSeries
		outRows   []domain.Booking
	)
	err := r.inResourceTransaction(ctx, s.ResourceID, func(ctx context.Context, tx store.ResourceTx) error {
		candidates := make([]domain.Interval, 0, len(instances))
		for _, b := range instances {
			candidates = append(candidates, b.Interval())
		}
		if err := ensureNoBookingConflicts(ctx, tx, s.ResourceID, candidates, nil); err != nil {
			return err
		}

		created, err := tx.InsertRecurringSeries(ctx, s)
		if err != nil {
			return err
		}
		outSeries = created

		outRows = make([]domain.Booking, 0, len(instances))
		for _, b := range instances {
			b.SeriesID = &created.ID
			row, err := tx.InsertBooking(ctx, b)
			if err != nil {
				return err
			}
			outRows = append(outRows, row)
		}
		return nil
	})
	if err != nil {
		return domain.RecurringSeries{}, nil, err
	}
	return outSeries, outRows, nil
}

func (r *BookingRepo) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := r.db.NewSelect().
		Model(&b).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepo) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	rows, err := r.UpdateBookings(ctx, b.ResourceID, []domain.Booking{b})
	if err != nil {
		return domain.Booking{}, err
	}
	return rows[0], nil
}

func (r *BookingRepo) UpdateBookings(ctx context.Context, resourceID uuid.UUID, rows []domain.Booking) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.inResourceTransaction(ctx, resourceID, func(ctx context.Context, tx store.ResourceTx) error {
		out = make([]domain.Booking, 0, len(rows))
		for _, b := range rows {
			if b.Status.Occupies() {
				exclude := map[uuid.UUID]struct{}{b.ID: {}}
				if err := ensureNoBookingConflicts(ctx, tx, resourceID, []domain.Interval{b.Interval()}, exclude); err != nil {
					return err
				}
			}
			updated, err := tx.UpdateBooking(ctx, b)
			if err != nil {
				return err
			}
			out = append(out, updated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BookingRepo) DeleteBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	existing, err := r.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}

	err = r.inResourceTransaction(ctx, existing.ResourceID, func(ctx context.Context, tx store.ResourceTx) error {
		return tx.DeleteBooking(ctx, id)
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return existing, nil
}

func (r *BookingRepo) DeleteSeriesFrom(ctx context.Context, seriesID uuid.UUID, fromDate time.Time) ([]domain.Booking, error) {
	rows, err := r.ListSeriesFrom(ctx, seriesID, fromDate)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}

	err = r.inResourceTransaction(ctx, rows[0].ResourceID, func(ctx context.Context, tx store.ResourceTx) error {
		for _, b := range rows {
			if err := tx.DeleteBooking(ctx, b.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ListActiveBookings(ctx context.Context, resourceID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.db.NewSelect().
		Model(&rows).
		Where("resource_id = ?", resourceID).
		Where("status NOT IN (?)", bun.In([]domain.BookingStatus{domain.BookingStatusCancelled, domain.BookingStatusNoShow})).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ListSeriesFrom(ctx context.Context, seriesID uuid.UUID, fromDate time.Time) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.db.NewSelect().
		Model(&rows).
		Where("series_id = ?", seriesID).
		Where("start_time >= ?", domain.DateOf(fromDate)).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) inResourceTransaction(ctx context.Context, resourceID uuid.UUID, fn func(ctx context.Context, tx store.ResourceTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockResourceCalendar(ctx, tx, resourceID); err != nil {
			return err
		}
		return fn(ctx, resourceTx{tx: tx})
	})
}

// lockResourceCalendar serializes mutations per resource for the duration
// of the transaction. Disjoint resources hash to different locks.
func lockResourceCalendar(ctx context.Context, tx bun.Tx, resourceID uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", resourceID.String()).Exec(ctx)
	return err
}

// ensureNoBookingConflicts rejects candidates overlapping any active row on
// the resource (excluding listed ids) or overlapping each other. Strict
// half-open rule: touching endpoints do not conflict.
func ensureNoBookingConflicts(ctx context.Context, tx store.ResourceTx, resourceID uuid.UUID, candidates []domain.Interval, exclude map[uuid.UUID]struct{}) error {
	if len(candidates) == 0 {
		return nil
	}

	for _, c := range candidates {
		if err := c.Validate(); err != nil {
			return err
		}
	}

	windowStart := candidates[0].Start
	windowEnd := candidates[0].End
	for _, c := range candidates[1:] {
		if c.Start.Before(windowStart) {
			windowStart = c.Start
		}
		if c.End.After(windowEnd) {
			windowEnd = c.End
		}
	}

	for i := range candidates {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[i].Overlaps(candidates[j]) {
				return store.ErrConflict
			}
		}
	}

	existing, err := tx.ListActiveBookings(ctx, resourceID, windowStart, windowEnd)
	if err != nil {
		return err
	}

	for _, b := range existing {
		if _, skip := exclude[b.ID]; skip {
			continue
		}
		for _, c := range candidates {
			if c.Overlaps(b.Interval()) {
				return store.ErrConflict
			}
		}
	}
	return nil
}

func (r resourceTx) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := b
	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// Exclusion constraint backstop for the in-tx check.
			if pgErr.Code == "23P01" && pgErr.ConstraintName == "bookings_no_overlap" {
				return domain.Booking{}, store.ErrConflict
			}
		}
		return domain.Booking{}, err
	}
	return m, nil
}

func (r resourceTx) InsertRecurringSeries(ctx context.Context, s domain.RecurringSeries) (domain.RecurringSeries, error) {
	m := s
	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.RecurringSeries{}, err
	}
	return m, nil
}

func (r resourceTx) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := r.tx.NewSelect().
		Model(&b).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func (r resourceTx) ListActiveBookings(ctx context.Context, resourceID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.tx.NewSelect().
		Model(&rows).
		Where("resource_id = ?", resourceID).
		Where("status NOT IN (?)", bun.In([]domain.BookingStatus{domain.BookingStatusCancelled, domain.BookingStatusNoShow})).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r resourceTx) ListSeriesFrom(ctx context.Context, seriesID uuid.UUID, fromDate time.Time) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.tx.NewSelect().
		Model(&rows).
		Where("series_id = ?", seriesID).
		Where("start_time >= ?", domain.DateOf(fromDate)).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r resourceTx) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := b
	res, err := r.tx.NewUpdate().
		Model(&m).
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Booking{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, err
	}
	if affected == 0 {
		return domain.Booking{}, store.ErrNotFound
	}
	return m, nil
}

func (r resourceTx) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	res, err := r.tx.NewDelete().
		Model((*domain.Booking)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
