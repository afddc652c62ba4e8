package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// WaitlistEntry queues a user for an occupied slot. Entries are never
// mutated after creation except for the notified flag. The same user may
// hold duplicate entries for one slot; dedup happens at display time.
type WaitlistEntry struct {
	bun.BaseModel `bun:"table:waitlist_entries"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	ResourceID uuid.UUID `bun:"resource_id,notnull,type:uuid"`
	Date       time.Time `bun:"date,notnull"`
	StartTime  time.Time `bun:"start_time,notnull"`
	EndTime    time.Time `bun:"end_time,notnull"`
	UserID     string    `bun:"user_id,notnull"`
	Notified   bool      `bun:"notified,notnull,default:false"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func (e *WaitlistEntry) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if e.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		e.ID = id
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}
