package availability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"matchpoint/backend/internal/directory"
	"matchpoint/backend/internal/domain"
	"matchpoint/backend/internal/source"
	"matchpoint/backend/internal/store"
)

// Engine reconciles local and external occupancy into one per-resource
// timeline. Conflict checks fail closed on an unreachable external source;
// free-slot display fails open.
type Engine struct {
	local    source.Source
	external source.Source
	dir      directory.Directory
	slotUnit time.Duration
	log      *slog.Logger
}

func NewEngine(local, external source.Source, dir directory.Directory, slotUnit time.Duration, log *slog.Logger) *Engine {
	if slotUnit <= 0 {
		slotUnit = 30 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{local: local, external: external, dir: dir, slotUnit: slotUnit, log: log}
}

// CheckConflict reports whether the candidate range overlaps any occupied
// interval from either source. An unreachable external source surfaces as
// source.ErrUnavailable; callers committing a booking must treat that as a
// refusal, never as a free slot.
func (e *Engine) CheckConflict(ctx context.Context, resourceID uuid.UUID, startTime, endTime time.Time) (bool, error) {
	candidate := domain.Interval{Start: startTime, End: endTime}
	if err := candidate.Validate(); err != nil {
		return false, err
	}

	windowStart := domain.DateOf(startTime)
	windowEnd := domain.DateOf(endTime).AddDate(0, 0, 1)

	occupied, err := e.local.Occupied(ctx, resourceID, windowStart, windowEnd)
	if err != nil {
		return false, err
	}
	externalOcc, err := e.external.Occupied(ctx, resourceID, windowStart, windowEnd)
	if err != nil {
		return false, err
	}
	occupied = append(occupied, externalOcc...)

	for _, iv := range occupied {
		if candidate.Overlaps(iv.Interval) {
			return true, nil
		}
	}
	return false, nil
}

// VerifyExternalFree checks a set of candidate intervals against external
// occupancy only; the local side is re-checked inside the commit
// transaction. Fail closed: unavailability propagates.
func (e *Engine) VerifyExternalFree(ctx context.Context, resourceID uuid.UUID, candidates []domain.Interval) error {
	if len(candidates) == 0 {
		return nil
	}

	windowStart := domain.DateOf(candidates[0].Start)
	windowEnd := candidates[0].End
	for _, c := range candidates[1:] {
		if d := domain.DateOf(c.Start); d.Before(windowStart) {
			windowStart = d
		}
		if c.End.After(windowEnd) {
			windowEnd = c.End
		}
	}
	windowEnd = domain.DateOf(windowEnd).AddDate(0, 0, 1)

	occupied, err := e.external.Occupied(ctx, resourceID, windowStart, windowEnd)
	if err != nil {
		return err
	}

	for _, iv := range occupied {
		for _, c := range candidates {
			if c.Overlaps(iv.Interval) {
				return store.ErrConflict
			}
		}
	}
	return nil
}

type FreeSlot struct {
	Start time.Time
	End   time.Time
	Label string
}

// ComputeFreeSlots derives per-day free ranges inside the window for each
// resource, keyed by resolved resource name. Gaps shorter than one bookable
// unit are dropped, and resources with no free gap are omitted entirely —
// presentation layers rely on absent keys to skip empty sections.
func (e *Engine) ComputeFreeSlots(ctx context.Context, resourceIDs []uuid.UUID, windowStart, windowEnd time.Time) (map[string][]FreeSlot, error) {
	window := domain.Interval{Start: windowStart, End: windowEnd}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	out := make(map[string][]FreeSlot, len(resourceIDs))
	for _, resourceID := range resourceIDs {
		occupied, err := e.local.Occupied(ctx, resourceID, windowStart, windowEnd)
		if err != nil {
			return nil, err
		}

		externalOcc, err := e.external.Occupied(ctx, resourceID, windowStart, windowEnd)
		if err != nil {
			if !errors.Is(err, source.ErrUnavailable) {
				return nil, err
			}
			// Fail open for display: show local availability and log the
			// degradation.
			e.log.Warn("external source unavailable; free slots computed from local occupancy only",
				slog.String("resource_id", resourceID.String()),
				slog.Any("err", err),
			)
		} else {
			occupied = append(occupied, externalOcc...)
		}

		segments := make([]domain.Interval, 0, len(occupied))
		for _, iv := range occupied {
			segments = append(segments, domain.SplitByDay(iv.Interval)...)
		}

		slots := e.freeSlotsPerDay(window, segments)
		if len(slots) == 0 {
			continue
		}

		info, err := e.dir.ResolveResource(ctx, resourceID)
		if err != nil {
			return nil, err
		}
		out[info.Name] = slots
	}
	return out, nil
}

func (e *Engine) freeSlotsPerDay(window domain.Interval, segments []domain.Interval) []FreeSlot {
	var slots []FreeSlot
	for day := domain.DateOf(window.Start); day.Before(window.End); day = day.AddDate(0, 0, 1) {
		dayWindow := domain.Interval{Start: day, End: day.AddDate(0, 0, 1)}
		if window.Start.After(dayWindow.Start) {
			dayWindow.Start = window.Start
		}
		if window.End.Before(dayWindow.End) {
			dayWindow.End = window.End
		}
		if dayWindow.Validate() != nil {
			continue
		}

		dayOccupied := make([]domain.Interval, 0, len(segments))
		for _, seg := range segments {
			if seg.Overlaps(dayWindow) {
				dayOccupied = append(dayOccupied, seg)
			}
		}

		for _, gap := range domain.FreeGaps(dayWindow, domain.MergeIntervals(dayOccupied)) {
			if gap.Duration() < e.slotUnit {
				continue
			}
			slots = append(slots, FreeSlot{
				Start: gap.Start,
				End:   gap.End,
				Label: domain.FormatRange(gap),
			})
		}
	}
	return slots
}
