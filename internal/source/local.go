package source

import (
	"context"
	"time"

	"github.com/google/uuid"

	"matchpoint/backend/internal/store"
)

// LocalSource reads persisted bookings. Series instances are already
// concrete rows, so no expansion happens here; soft-cancelled statuses are
// filtered by the repository query.
type LocalSource struct {
	repo store.BookingRepository
}

func NewLocalSource(repo store.BookingRepository) *LocalSource {
	return &LocalSource{repo: repo}
}

func (s *LocalSource) Occupied(ctx context.Context, resourceID uuid.UUID, windowStart, windowEnd time.Time) ([]OccupiedInterval, error) {
	rows, err := s.repo.ListActiveBookings(ctx, resourceID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	out := make([]OccupiedInterval, 0, len(rows))
	for _, b := range rows {
		out = append(out, OccupiedInterval{
			ResourceID:   b.ResourceID,
			Interval:     b.Interval(),
			BookingID:    b.ID,
			OwnerID:      b.OwnerID,
			OpenMatch:    b.OpenMatch,
			Participants: len(b.ParticipantIDs),
		})
	}
	return out, nil
}
