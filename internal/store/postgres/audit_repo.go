package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"matchpoint/backend/internal/domain"
)

// AuditRepo appends to the audit_log table. Rows are never updated or
// deleted here; the log viewer is an external collaborator.
type AuditRepo struct {
	db *bun.DB
}

func NewAuditRepo(db *bun.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Append(ctx context.Context, e domain.AuditLogEntry) error {
	m := e
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	return err
}
