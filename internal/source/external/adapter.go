package external

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"matchpoint/backend/internal/domain"
	"matchpoint/backend/internal/source"
)

type DefinitionFetcher interface {
	FetchDefinitions(ctx context.Context, rawStart, rawEnd time.Time) ([]Definition, error)
}

type AdapterConfig struct {
	// CourtMap translates provider court identifiers to internal resource
	// ids. Definitions without a mapping are never surfaced.
	CourtMap map[string]uuid.UUID

	// PaddingDays widens the raw fetch window on both sides so multi-day
	// occurrences near the edges are not missed; results are filtered back
	// to the requested window.
	PaddingDays int

	// CacheTTL is the validity window for raw fetches.
	CacheTTL time.Duration
}

// Adapter expands provider definitions into concrete occurrences under
// floating-time semantics and maps them onto internal resources.
type Adapter struct {
	fetcher  DefinitionFetcher
	courtMap map[string]uuid.UUID
	padding  int
	cacheTTL time.Duration
	log      *slog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time
}

type cacheEntry struct {
	defs      []Definition
	fetchedAt time.Time
}

func NewAdapter(fetcher DefinitionFetcher, cfg AdapterConfig, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	padding := cfg.PaddingDays
	if padding < 1 {
		padding = 2
	}
	return &Adapter{
		fetcher:  fetcher,
		courtMap: cfg.CourtMap,
		padding:  padding,
		cacheTTL: cfg.CacheTTL,
		log:      log,
		cache:    make(map[string]cacheEntry),
		now:      time.Now,
	}
}

func (a *Adapter) Occupied(ctx context.Context, resourceID uuid.UUID, windowStart, windowEnd time.Time) ([]source.OccupiedInterval, error) {
	rawStart := windowStart.AddDate(0, 0, -a.padding)
	rawEnd := windowEnd.AddDate(0, 0, a.padding)

	defs, err := a.fetch(ctx, rawStart, rawEnd)
	if err != nil {
		if !errors.Is(err, source.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", source.ErrUnavailable, err)
		}
		return nil, err
	}

	firstDate := domain.DateOf(windowStart)
	lastDate := domain.DateOf(windowEnd)
	inWindowDates := func(d time.Time) bool {
		return !d.Before(firstDate) && !d.After(lastDate)
	}

	out := make([]source.OccupiedInterval, 0, len(defs))
	seen := make(map[string]struct{}, len(defs))

	for _, def := range defs {
		if !a.mapsTo(def, resourceID) {
			continue
		}

		start, err := time.Parse(domain.FloatingLayout, def.Start)
		if err != nil {
			a.log.Warn("skipping definition with bad start", slog.String("definition_id", def.ID), slog.Any("err", err))
			continue
		}
		end, err := time.Parse(domain.FloatingLayout, def.End)
		if err != nil {
			a.log.Warn("skipping definition with bad end", slog.String("definition_id", def.ID), slog.Any("err", err))
			continue
		}
		duration := end.Sub(start)
		if duration <= 0 {
			a.log.Warn("skipping definition with non-positive duration", slog.String("definition_id", def.ID))
			continue
		}

		var occStarts []time.Time
		if def.RecurrenceRule == "" {
			occStarts = []time.Time{start}
		} else {
			rule, err := ParseRule(def.RecurrenceRule)
			if err != nil {
				a.log.Warn("skipping definition with malformed rule",
					slog.String("definition_id", def.ID),
					slog.Any("err", err),
				)
				continue
			}
			// Occurrence end keeps the definition's duration per rule.
			occStarts = rule.Expand(start, rawStart, rawEnd)
		}

		for _, occStart := range occStarts {
			occEnd := occStart.Add(duration)

			// An occurrence belongs to the window when it starts inside it
			// or, crossing midnight, ends inside it.
			if !inWindowDates(domain.DateOf(occStart)) && !inWindowDates(domain.DateOf(occEnd)) {
				continue
			}

			key := def.ID + ":" + domain.DateOf(occStart).Format(domain.DateLayout)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			out = append(out, source.OccupiedInterval{
				ResourceID:  resourceID,
				Interval:    domain.Interval{Start: occStart, End: occEnd},
				External:    true,
				ExternalKey: key,
			})
		}
	}
	return out, nil
}

func (a *Adapter) mapsTo(def Definition, resourceID uuid.UUID) bool {
	for _, courtID := range def.CourtIDs {
		if internal, ok := a.courtMap[courtID]; ok && internal == resourceID {
			return true
		}
	}
	return false
}

func (a *Adapter) fetch(ctx context.Context, rawStart, rawEnd time.Time) ([]Definition, error) {
	key := rawStart.Format(domain.FloatingLayout) + "/" + rawEnd.Format(domain.FloatingLayout)

	if a.cacheTTL > 0 {
		a.mu.Lock()
		if entry, ok := a.cache[key]; ok && a.now().Sub(entry.fetchedAt) < a.cacheTTL {
			defs := entry.defs
			a.mu.Unlock()
			return defs, nil
		}
		a.mu.Unlock()
	}

	defs, err := a.fetcher.FetchDefinitions(ctx, rawStart, rawEnd)
	if err != nil {
		return nil, err
	}

	if a.cacheTTL > 0 {
		a.mu.Lock()
		a.cache[key] = cacheEntry{defs: defs, fetchedAt: a.now()}
		a.mu.Unlock()
	}
	return defs, nil
}
