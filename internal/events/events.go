package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Routing keys for broker fan-out.
const (
	RKOccupied           = "booking.occupied"
	RKReleased           = "booking.released"
	RKWaitlistPromotable = "waitlist.promotable"
)

// Event is a domain state change exposed to collaborators (live UI updates,
// notification dispatch). Payload times are floating values.
type Event interface {
	RoutingKey() string
}

type Occupied struct {
	BookingID  uuid.UUID `json:"booking_id"`
	ResourceID uuid.UUID `json:"resource_id"`
	Date       time.Time `json:"date"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	OwnerID    string    `json:"owner_id"`
}

func (Occupied) RoutingKey() string { return RKOccupied }

type Released struct {
	BookingID  uuid.UUID `json:"booking_id"`
	ResourceID uuid.UUID `json:"resource_id"`
	Date       time.Time `json:"date"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

func (Released) RoutingKey() string { return RKReleased }

type WaitlistPromotable struct {
	EntryID    uuid.UUID `json:"entry_id"`
	UserID     string    `json:"user_id"`
	ResourceID uuid.UUID `json:"resource_id"`
	Date       time.Time `json:"date"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

func (WaitlistPromotable) RoutingKey() string { return RKWaitlistPromotable }

type Handler func(ctx context.Context, ev Event)

// Bus dispatches events synchronously, in subscription order. Handlers run
// on the publisher's goroutine; anything slow belongs behind its own queue.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
}
