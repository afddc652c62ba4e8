package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"matchpoint/backend/internal/domain"
)

type WaitlistRepository interface {
	Insert(ctx context.Context, e domain.WaitlistEntry) (domain.WaitlistEntry, error)
	Delete(ctx context.Context, entryID uuid.UUID) error

	// ListForSlot returns entries matching the exact slot key, oldest first.
	ListForSlot(ctx context.Context, resourceID uuid.UUID, date, startTime, endTime time.Time) ([]domain.WaitlistEntry, error)

	MarkNotified(ctx context.Context, entryID uuid.UUID) error
}

type AuditRepository interface {
	Append(ctx context.Context, e domain.AuditLogEntry) error
}
