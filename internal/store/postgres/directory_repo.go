package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"matchpoint/backend/internal/directory"
	"matchpoint/backend/internal/store"
)

// venueRow is a read-only projection of the venue metadata owned by the
// surrounding system; this core never writes it.
type venueRow struct {
	bun.BaseModel `bun:"table:venues"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	Name         string    `bun:"name"`
	LocationName string    `bun:"location_name"`
}

type DirectoryRepo struct {
	db *bun.DB
}

func NewDirectoryRepo(db *bun.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

func (r *DirectoryRepo) ResolveResource(ctx context.Context, id uuid.UUID) (directory.ResourceInfo, error) {
	var row venueRow
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return directory.ResourceInfo{}, store.ErrNotFound
		}
		return directory.ResourceInfo{}, err
	}
	return directory.ResourceInfo{ID: row.ID, Name: row.Name, LocationName: row.LocationName}, nil
}

func (r *DirectoryRepo) ListResources(ctx context.Context, locationName string) ([]directory.ResourceInfo, error) {
	q := r.db.NewSelect().Model((*venueRow)(nil)).OrderExpr("name ASC")
	if locationName != "" {
		q = q.Where("location_name = ?", locationName)
	}

	var rows []venueRow
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}

	out := make([]directory.ResourceInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, directory.ResourceInfo{ID: row.ID, Name: row.Name, LocationName: row.LocationName})
	}
	return out, nil
}
