package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"matchpoint/backend/internal/domain"
	"matchpoint/backend/internal/store"
)

type WaitlistRepo struct {
	db *bun.DB
}

func NewWaitlistRepo(db *bun.DB) *WaitlistRepo {
	return &WaitlistRepo{db: db}
}

func (r *WaitlistRepo) Insert(ctx context.Context, e domain.WaitlistEntry) (domain.WaitlistEntry, error) {
	m := e
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.WaitlistEntry{}, err
	}
	return m, nil
}

func (r *WaitlistRepo) Delete(ctx context.Context, entryID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.WaitlistEntry)(nil)).
		Where("id = ?", entryID).
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

func (r *WaitlistRepo) ListForSlot(ctx context.Context, resourceID uuid.UUID, date, startTime, endTime time.Time) ([]domain.WaitlistEntry, error) {
	var rows []domain.WaitlistEntry
	err := r.db.NewSelect().
		Model(&rows).
		Where("resource_id = ?", resourceID).
		Where("date = ?", domain.DateOf(date)).
		Where("start_time = ?", startTime).
		Where("end_time = ?", endTime).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *WaitlistRepo) MarkNotified(ctx context.Context, entryID uuid.UUID) error {
	res, err := r.db.NewUpdate().
		Model((*domain.WaitlistEntry)(nil)).
		Set("notified = TRUE").
		Where("id = ?", entryID).
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
