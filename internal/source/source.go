// Package source defines the occupancy source contract shared by the local
// booking store and the third-party scheduling provider.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"matchpoint/backend/internal/domain"
)

// ErrUnavailable signals that a source could not be consulted (network or
// auth failure, timeout). The reconciliation engine decides whether to fail
// open or closed.
var ErrUnavailable = errors.New("occupancy source unavailable")

// OccupiedInterval is one blocked range on a resource, tagged with enough
// metadata for display. External occurrences carry their dedup key instead
// of a booking id.
type OccupiedInterval struct {
	ResourceID   uuid.UUID
	Interval     domain.Interval
	BookingID    uuid.UUID
	OwnerID      string
	OpenMatch    bool
	Participants int
	External     bool
	ExternalKey  string
}

type Source interface {
	// Occupied lists blocked intervals for the resource intersecting the
	// half-open window [windowStart, windowEnd).
	Occupied(ctx context.Context, resourceID uuid.UUID, windowStart, windowEnd time.Time) ([]OccupiedInterval, error)
}
