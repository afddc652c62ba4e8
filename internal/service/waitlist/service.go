package waitlist

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"matchpoint/backend/internal/domain"
	"matchpoint/backend/internal/events"
	"matchpoint/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// Service keeps per-slot FIFO waitlists and flags candidates when a slot
// frees up. Promotion is advisory only: the flagged user books through the
// normal path, where the slot is contested like any other.
type Service struct {
	repo store.WaitlistRepository
	bus  *events.Bus
	log  *slog.Logger
}

func NewService(repo store.WaitlistRepository, bus *events.Bus, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, bus: bus, log: log}
}

type JoinInput struct {
	ResourceID uuid.UUID
	UserID     string
	StartTime  time.Time
	EndTime    time.Time
}

// Join appends the user to the slot's queue. Duplicate entries for the
// same user and slot are tolerated; they resolve naturally at promotion
// time, when a user who already booked simply ignores the extra nudge.
func (s *Service) Join(ctx context.Context, in JoinInput) (domain.WaitlistEntry, error) {
	if in.UserID == "" {
		return domain.WaitlistEntry{}, validationError("user_id is required")
	}
	if in.ResourceID == uuid.Nil {
		return domain.WaitlistEntry{}, validationError("resource_id is required")
	}
	iv := domain.Interval{Start: in.StartTime, End: in.EndTime}
	if err := iv.Validate(); err != nil {
		return domain.WaitlistEntry{}, err
	}

	return s.repo.Insert(ctx, domain.WaitlistEntry{
		ResourceID: in.ResourceID,
		Date:       domain.DateOf(in.StartTime),
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		UserID:     in.UserID,
	})
}

func (s *Service) Leave(ctx context.Context, entryID uuid.UUID) error {
	return s.repo.Delete(ctx, entryID)
}

// HandleReleased reacts to a freed slot: the oldest not-yet-notified entry
// for that exact slot is marked and a promotable event goes out. Nothing is
// booked on the user's behalf.
func (s *Service) HandleReleased(ctx context.Context, ev events.Released) {
	entries, err := s.repo.ListForSlot(ctx, ev.ResourceID, ev.Date, ev.StartTime, ev.EndTime)
	if err != nil {
		s.log.Warn("waitlist lookup failed",
			slog.String("resource_id", ev.ResourceID.String()),
			slog.Any("err", err),
		)
		return
	}

	for _, e := range entries {
		if e.Notified {
			continue
		}
		if err := s.repo.MarkNotified(ctx, e.ID); err != nil {
			s.log.Warn("waitlist notify failed",
				slog.String("entry_id", e.ID.String()),
				slog.Any("err", err),
			)
			return
		}
		s.bus.Publish(ctx, events.WaitlistPromotable{
			EntryID:    e.ID,
			UserID:     e.UserID,
			ResourceID: e.ResourceID,
			Date:       e.Date,
			StartTime:  e.StartTime,
			EndTime:    e.EndTime,
		})
		return
	}
}
