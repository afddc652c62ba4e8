package domain

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AuditAction string

const (
	AuditActionCreate             AuditAction = "create"
	AuditActionUpdate             AuditAction = "update"
	AuditActionDelete             AuditAction = "delete"
	AuditActionConvertToOpenMatch AuditAction = "convert_to_open_match"
	AuditActionJoinOpenMatch      AuditAction = "join_open_match"
	AuditActionLeaveOpenMatch     AuditAction = "leave_open_match"
)

// BookingSnapshot freezes a booking's state for the audit trail. Delete
// entries keep the full snapshot because the row itself is gone afterwards.
type BookingSnapshot struct {
	ID              uuid.UUID     `json:"id"`
	ResourceID      uuid.UUID     `json:"resource_id"`
	OwnerID         string        `json:"owner_id"`
	SeriesID        *uuid.UUID    `json:"series_id,omitempty"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	Status          BookingStatus `json:"status"`
	OpenMatch       bool          `json:"open_match"`
	ParticipantIDs  []string      `json:"participant_ids,omitempty"`
	MaxParticipants int           `json:"max_participants"`
	PriceMinor      int64         `json:"price_minor"`
}

func SnapshotOf(b Booking) BookingSnapshot {
	var participants []string
	if len(b.ParticipantIDs) > 0 {
		participants = append(participants, b.ParticipantIDs...)
	}
	return BookingSnapshot{
		ID:              b.ID,
		ResourceID:      b.ResourceID,
		OwnerID:         b.OwnerID,
		SeriesID:        b.SeriesID,
		StartTime:       b.StartTime,
		EndTime:         b.EndTime,
		Status:          b.Status,
		OpenMatch:       b.OpenMatch,
		ParticipantIDs:  participants,
		MaxParticipants: b.MaxParticipants,
		PriceMinor:      b.PriceMinor,
	}
}

type FieldChange struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// AuditDiff is a tagged union over the known diff shapes; Action selects
// which of the optional payloads is populated. Keeping the shapes closed
// lets log consumers switch exhaustively instead of probing a free-form map.
type AuditDiff struct {
	Action          AuditAction      `json:"action"`
	Created         *BookingSnapshot `json:"created,omitempty"`
	Changes         []FieldChange    `json:"changes,omitempty"`
	Deleted         *BookingSnapshot `json:"deleted,omitempty"`
	MaxParticipants int              `json:"max_participants,omitempty"`
	UserID          string           `json:"user_id,omitempty"`
}

func NewCreateDiff(b Booking) AuditDiff {
	snap := SnapshotOf(b)
	return AuditDiff{Action: AuditActionCreate, Created: &snap}
}

func NewUpdateDiff(changes []FieldChange) AuditDiff {
	return AuditDiff{Action: AuditActionUpdate, Changes: changes}
}

func NewDeleteDiff(b Booking) AuditDiff {
	snap := SnapshotOf(b)
	return AuditDiff{Action: AuditActionDelete, Deleted: &snap}
}

func NewConvertToOpenMatchDiff(maxParticipants int) AuditDiff {
	return AuditDiff{Action: AuditActionConvertToOpenMatch, MaxParticipants: maxParticipants}
}

func NewJoinOpenMatchDiff(userID string) AuditDiff {
	return AuditDiff{Action: AuditActionJoinOpenMatch, UserID: userID}
}

func NewLeaveOpenMatchDiff(userID string) AuditDiff {
	return AuditDiff{Action: AuditActionLeaveOpenMatch, UserID: userID}
}

// ComputeBookingChanges lists per-field from/to pairs between two states of
// the same booking.
func ComputeBookingChanges(before, after Booking) []FieldChange {
	changes := make([]FieldChange, 0, 4)
	add := func(field, from, to string) {
		if from != to {
			changes = append(changes, FieldChange{Field: field, From: from, To: to})
		}
	}

	add("start_time", before.StartTime.Format(FloatingLayout), after.StartTime.Format(FloatingLayout))
	add("end_time", before.EndTime.Format(FloatingLayout), after.EndTime.Format(FloatingLayout))
	add("status", string(before.Status), string(after.Status))
	add("open_match", strconv.FormatBool(before.OpenMatch), strconv.FormatBool(after.OpenMatch))
	add("max_participants", strconv.Itoa(before.MaxParticipants), strconv.Itoa(after.MaxParticipants))
	add("price_minor", strconv.FormatInt(before.PriceMinor, 10), strconv.FormatInt(after.PriceMinor, 10))
	add("participant_ids", strings.Join(before.ParticipantIDs, ","), strings.Join(after.ParticipantIDs, ","))
	return changes
}

// AuditLogEntry is append-only; rows are never updated or deleted. The
// booking reference is nullable and unconstrained so entries survive hard
// deletes of the booking they describe.
type AuditLogEntry struct {
	bun.BaseModel `bun:"table:audit_log"`

	ID        uuid.UUID        `bun:"id,pk,type:uuid"`
	BookingID *uuid.UUID       `bun:"booking_id,type:uuid"`
	ActorID   string           `bun:"actor_id,notnull"`
	Action    AuditAction      `bun:"action,notnull"`
	Before    *BookingSnapshot `bun:"before_snapshot,type:jsonb"`
	After     *BookingSnapshot `bun:"after_snapshot,type:jsonb"`
	Diff      AuditDiff        `bun:"diff,notnull,type:jsonb"`
	CreatedAt time.Time        `bun:"created_at,notnull"`
}

func (e *AuditLogEntry) BeforeAppendModel(ctx context.Context, query bun.Query) error {
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
