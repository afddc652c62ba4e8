package bookings

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

type SeriesScope string

const (
	ScopeSingle   SeriesScope = "single"
	ScopeUpcoming SeriesScope = "upcoming"
)

// externalChecker is the reconciliation engine's fail-closed verification:
// it must refuse (not assume free) when the provider cannot be reached.
type externalChecker interface {
	VerifyExternalFree(ctx context.Context, resourceID uuid.UUID, candidates []domain.Interval) error
}

type Service struct {
	repo     store.BookingRepository
	external externalChecker
	audit    store.AuditRepository
	bus      *events.Bus
	log      *slog.Logger
}

func NewService(repo store.BookingRepository, external externalChecker, audit store.AuditRepository, bus *events.Bus, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, external: external, audit: audit, bus: bus, log: log}
}

type CreateInput struct {
	ResourceID    uuid.UUID
	OwnerID       string
	StartTime     time.Time
	EndTime       time.Time
	RequiresCoach bool
	PriceMinor    int64
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Booking, error) {
	if in.OwnerID == "" {
		return domain.Booking{}, validationError("owner_id is required")
	}
	if in.ResourceID == uuid.Nil {
		return domain.Booking{}, validationError("resource_id is required")
	}
	candidate := domain.Interval{Start: in.StartTime, End: in.EndTime}
	if err := validateSameDay(candidate); err != nil {
		return domain.Booking{}, err
	}

	if err := s.external.VerifyExternalFree(ctx, in.ResourceID, []domain.Interval{candidate}); err != nil {
		return domain.Booking{}, err
	}

	status := domain.BookingStatusPending
	if in.RequiresCoach {
		status = domain.BookingStatusPendingCoach
	}

	created, err := s.repo.CreateBooking(ctx, domain.Booking{
		ResourceID: in.ResourceID,
		OwnerID:    in.OwnerID,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		Status:     status,
		PriceMinor: in.PriceMinor,
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.publishOccupied(ctx, created)
	s.writeAudit(ctx, in.OwnerID, domain.AuditActionCreate, created.ID, nil, snapshotPtr(created), domain.NewCreateDiff(created))
	return created, nil
}

type CreateSeriesInput struct {
	ResourceID    uuid.UUID
	OwnerID       string
	Frequency     domain.SeriesFrequency
	Count         int
	StartTime     time.Time
	EndTime       time.Time
	RequiresCoach bool
	PriceMinor    int64
}

// CreateSeries materializes every occurrence eagerly. The whole series is
// all-or-nothing: one conflicting occurrence means zero rows persist,
// because a partial series is indistinguishable from manually created
// single bookings.
func (s *Service) CreateSeries(ctx context.Context, in CreateSeriesInput) (domain.RecurringSeries, []domain.Booking, error) {
	if in.OwnerID == "" {
		return domain.RecurringSeries{}, nil, validationError("owner_id is required")
	}
	if in.ResourceID == uuid.Nil {
		return domain.RecurringSeries{}, nil, validationError("resource_id is required")
	}
	if err := validateSameDay(domain.Interval{Start: in.StartTime, End: in.EndTime}); err != nil {
		return domain.RecurringSeries{}, nil, err
	}

	series := domain.RecurringSeries{
		ResourceID:      in.ResourceID,
		OwnerID:         in.OwnerID,
		Frequency:       in.Frequency,
		OccurrenceCount: in.Count,
		AnchorStart:     in.StartTime,
		AnchorEnd:       in.EndTime,
	}
	occurrences, err := series.Occurrences()
	if err != nil {
		return domain.RecurringSeries{}, nil, validationError(err.Error())
	}

	if err := s.external.VerifyExternalFree(ctx, in.ResourceID, occurrences); err != nil {
		return domain.RecurringSeries{}, nil, err
	}

	status := domain.BookingStatusPending
	if in.RequiresCoach {
		status = domain.BookingStatusPendingCoach
	}

	instances := make([]domain.Booking, 0, len(occurrences))
	for _, occ := range occurrences {
		instances = append(instances, domain.Booking{
			ResourceID: in.ResourceID,
			OwnerID:    in.OwnerID,
			StartTime:  occ.Start,
			EndTime:    occ.End,
			Status:     status,
			PriceMinor: in.PriceMinor,
		})
	}

	createdSeries, rows, err := s.repo.CreateSeries(ctx, series, instances)
	if err != nil {
		return domain.RecurringSeries{}, nil, err
	}

	for _, b := range rows {
		s.publishOccupied(ctx, b)
		s.writeAudit(ctx, in.OwnerID, domain.AuditActionCreate, b.ID, nil, snapshotPtr(b), domain.NewCreateDiff(b))
	}
	return createdSeries, rows, nil
}

type UpdateChanges struct {
	StartTime       *time.Time
	EndTime         *time.Time
	Status          *domain.BookingStatus
	PriceMinor      *int64
	MaxParticipants *int
}

// Update applies changes to one booking, or to this-and-future series
// siblings when scope is "upcoming". Time changes carry the wall-clock
// values onto each sibling's own date. Sibling updates are atomic: one
// conflicting re-check aborts them all.
func (s *Service) Update(ctx context.Context, bookingID uuid.UUID, actorID string, changes UpdateChanges, scope SeriesScope) ([]domain.Booking, error) {
	current, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	targets, err := s.resolveScope(ctx, current, scope)
	if err != nil {
		return nil, err
	}

	updated := make([]domain.Booking, 0, len(targets))
	var externalCandidates []domain.Interval
	for _, target := range targets {
		next := target

		if changes.StartTime != nil {
			next.StartTime = combineDayTime(target.Date(), *changes.StartTime)
		}
		if changes.EndTime != nil {
			next.EndTime = combineDayTime(target.Date(), *changes.EndTime)
		}
		if changes.Status != nil {
			if !target.Status.CanTransitionTo(*changes.Status) {
				return nil, validationError("invalid status transition")
			}
			next.Status = *changes.Status
		}
		if changes.PriceMinor != nil {
			next.PriceMinor = *changes.PriceMinor
		}
		if changes.MaxParticipants != nil {
			next.MaxParticipants = *changes.MaxParticipants
		}

		if err := validateSameDay(next.Interval()); err != nil {
			return nil, err
		}

		timesChanged := !next.StartTime.Equal(target.StartTime) || !next.EndTime.Equal(target.EndTime)
		if next.Status.Occupies() && timesChanged {
			externalCandidates = append(externalCandidates, next.Interval())
		}
		updated = append(updated, next)
	}

	if len(externalCandidates) > 0 {
		if err := s.external.VerifyExternalFree(ctx, current.ResourceID, externalCandidates); err != nil {
			return nil, err
		}
	}

	persisted, err := s.repo.UpdateBookings(ctx, current.ResourceID, updated)
	if err != nil {
		return nil, err
	}

	for i, after := range persisted {
		before := targets[i]
		diff := domain.NewUpdateDiff(domain.ComputeBookingChanges(before, after))
		s.writeAudit(ctx, actorID, domain.AuditActionUpdate, after.ID, snapshotPtr(before), snapshotPtr(after), diff)

		if before.Status.Occupies() && !after.Status.Occupies() {
			s.publishReleased(ctx, before)
		}
	}
	return persisted, nil
}

// Delete removes one row, or this-and-future siblings. Each removed row is
// audited with its full pre-delete snapshot and releases its interval.
func (s *Service) Delete(ctx context.Context, bookingID uuid.UUID, actorID string, scope SeriesScope) ([]domain.Booking, error) {
	var (
		removed []domain.Booking
		err     error
	)
	switch scope {
	case "", ScopeSingle:
		var row domain.Booking
		row, err = s.repo.DeleteBooking(ctx, bookingID)
		removed = []domain.Booking{row}
	case ScopeUpcoming:
		var current domain.Booking
		current, err = s.repo.GetBooking(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if current.SeriesID == nil {
			return nil, validationError("booking is not part of a series")
		}
		removed, err = s.repo.DeleteSeriesFrom(ctx, *current.SeriesID, current.Date())
	default:
		return nil, validationError("invalid series scope")
	}
	if err != nil {
		return nil, err
	}

	for _, b := range removed {
		s.writeAudit(ctx, actorID, domain.AuditActionDelete, b.ID, snapshotPtr(b), nil, domain.NewDeleteDiff(b))
		if b.Status.Occupies() {
			s.publishReleased(ctx, b)
		}
	}
	return removed, nil
}

// ConvertToOpenMatch opens a booking to additional participants. Only the
// owner or an admin may convert; the owner is the first participant.
func (s *Service) ConvertToOpenMatch(ctx context.Context, bookingID uuid.UUID, actorID string, actorIsAdmin bool, maxPlayers int) (domain.Booking, error) {
	if maxPlayers < 2 {
		return domain.Booking{}, validationError("max players must be at least 2")
	}

	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if actorID != b.OwnerID && !actorIsAdmin {
		return domain.Booking{}, store.ErrNotOwner
	}

	before := b
	b.OpenMatch = true
	b.MaxParticipants = maxPlayers
	b.ParticipantIDs = []string{b.OwnerID}

	updated, err := s.repo.UpdateBooking(ctx, b)
	if err != nil {
		return domain.Booking{}, err
	}

	s.writeAudit(ctx, actorID, domain.AuditActionConvertToOpenMatch, updated.ID, snapshotPtr(before), snapshotPtr(updated), domain.NewConvertToOpenMatchDiff(maxPlayers))
	return updated, nil
}

func (s *Service) JoinOpenMatch(ctx context.Context, bookingID uuid.UUID, userID string) (domain.Booking, error) {
	if userID == "" {
		return domain.Booking{}, validationError("user_id is required")
	}

	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if !b.OpenMatch {
		return domain.Booking{}, validationError("booking is not an open match")
	}
	if b.HasParticipant(userID) {
		return domain.Booking{}, store.ErrAlreadyJoined
	}
	if len(b.ParticipantIDs) >= b.MaxParticipants {
		return domain.Booking{}, store.ErrMatchFull
	}

	before := b
	b.ParticipantIDs = append(append([]string(nil), b.ParticipantIDs...), userID)

	updated, err := s.repo.UpdateBooking(ctx, b)
	if err != nil {
		return domain.Booking{}, err
	}

	s.writeAudit(ctx, userID, domain.AuditActionJoinOpenMatch, updated.ID, snapshotPtr(before), snapshotPtr(updated), domain.NewJoinOpenMatchDiff(userID))
	return updated, nil
}

func (s *Service) LeaveOpenMatch(ctx context.Context, bookingID uuid.UUID, userID string) (domain.Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if !b.OpenMatch {
		return domain.Booking{}, validationError("booking is not an open match")
	}
	if userID == b.OwnerID {
		// Ownership transfer is out of scope; the owner stays in.
		return domain.Booking{}, validationError("the owner cannot leave an open match")
	}
	if !b.HasParticipant(userID) {
		return domain.Booking{}, store.ErrNotFound
	}

	before := b
	remaining := make([]string, 0, len(b.ParticipantIDs)-1)
	for _, id := range b.ParticipantIDs {
		if id != userID {
			remaining = append(remaining, id)
		}
	}
	b.ParticipantIDs = remaining

	updated, err := s.repo.UpdateBooking(ctx, b)
	if err != nil {
		return domain.Booking{}, err
	}

	s.writeAudit(ctx, userID, domain.AuditActionLeaveOpenMatch, updated.ID, snapshotPtr(before), snapshotPtr(updated), domain.NewLeaveOpenMatchDiff(userID))
	return updated, nil
}

func (s *Service) resolveScope(ctx context.Context, current domain.Booking, scope SeriesScope) ([]domain.Booking, error) {
	switch scope {
	case "", ScopeSingle:
		return []domain.Booking{current}, nil
	case ScopeUpcoming:
		if current.SeriesID == nil {
			return nil, validationError("booking is not part of a series")
		}
		return s.repo.ListSeriesFrom(ctx, *current.SeriesID, current.Date())
	}
	return nil, validationError("invalid series scope")
}

// writeAudit is best-effort: a logging failure is reported but never fails
// or rolls back the booking operation it describes.
func (s *Service) writeAudit(ctx context.Context, actorID string, action domain.AuditAction, bookingID uuid.UUID, before, after *domain.BookingSnapshot, diff domain.AuditDiff) {
	id := bookingID
	entry := domain.AuditLogEntry{
		BookingID: &id,
		ActorID:   actorID,
		Action:    action,
		Before:    before,
		After:     after,
		Diff:      diff,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Warn("audit append failed",
			slog.String("booking_id", bookingID.String()),
			slog.String("action", string(action)),
			slog.Any("err", err),
		)
	}
}

func (s *Service) publishOccupied(ctx context.Context, b domain.Booking) {
	s.bus.Publish(ctx, events.Occupied{
		BookingID:  b.ID,
		ResourceID: b.ResourceID,
		Date:       b.Date(),
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		OwnerID:    b.OwnerID,
	})
}

func (s *Service) publishReleased(ctx context.Context, b domain.Booking) {
	s.bus.Publish(ctx, events.Released{
		BookingID:  b.ID,
		ResourceID: b.ResourceID,
		Date:       b.Date(),
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
	})
}

func validateSameDay(iv domain.Interval) error {
	if err := iv.Validate(); err != nil {
		return err
	}
	if iv.End.After(domain.DateOf(iv.Start).AddDate(0, 0, 1)) {
		return validationError("booking must stay within one calendar day")
	}
	return nil
}

func combineDayTime(date, clock time.Time) time.Time {
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(),
		time.UTC,
	)
}

func snapshotPtr(b domain.Booking) *domain.BookingSnapshot {
	snap := domain.SnapshotOf(b)
	return &snap
}
