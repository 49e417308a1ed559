// Package align matches production events to the nearest-in-time weather
// observation for the same location, within a bounded age tolerance.
package align

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-production-optimizer/internal/domain"
)

// LiveCache serves the most recent observation per location.
type LiveCache interface {
	Latest(ctx context.Context, locationID string) (domain.WeatherObservation, bool, error)
}

// History answers range queries over retained observations.
type History interface {
	Range(ctx context.Context, locationID string, from, to time.Time) ([]domain.WeatherObservation, error)
}

// Aligner is a pure lookup over the supplied cache and history; it holds no
// mutable state and is safe for concurrent use.
type Aligner struct {
	live    LiveCache
	history History
	maxAge  time.Duration
	logger  *slog.Logger
}

// New creates an Aligner with the given weather sources and age tolerance.
func New(live LiveCache, history History, maxAge time.Duration, logger *slog.Logger) *Aligner {
	return &Aligner{live: live, history: history, maxAge: maxAge, logger: logger}
}

// Align attaches a weather context to the event, or returns nil when no
// observation exists within tolerance. Lookup failures (store down, timeout)
// degrade to absence: one event loses its context, the stream keeps moving.
func (a *Aligner) Align(ctx context.Context, event domain.ProductionEvent) *domain.WeatherContext {
	if obs, ok := a.fromLiveCache(ctx, event); ok {
		return newContext(obs, event.Timestamp)
	}
	if obs, ok := a.fromHistory(ctx, event); ok {
		return newContext(obs, event.Timestamp)
	}
	return nil
}

func (a *Aligner) fromLiveCache(ctx context.Context, event domain.ProductionEvent) (domain.WeatherObservation, bool) {
	if a.live == nil {
		return domain.WeatherObservation{}, false
	}
	obs, ok, err := a.live.Latest(ctx, event.LocationID)
	if err != nil {
		a.logger.Warn("live weather lookup failed, falling back to history",
			"error", err, "location_id", event.LocationID)
		return domain.WeatherObservation{}, false
	}
	if !ok || !withinTolerance(obs.Timestamp, event.Timestamp, a.maxAge) {
		return domain.WeatherObservation{}, false
	}
	return obs, true
}

func (a *Aligner) fromHistory(ctx context.Context, event domain.ProductionEvent) (domain.WeatherObservation, bool) {
	if a.history == nil {
		return domain.WeatherObservation{}, false
	}
	from := event.Timestamp.Add(-a.maxAge)
	to := event.Timestamp.Add(a.maxAge)

	candidates, err := a.history.Range(ctx, event.LocationID, from, to)
	if err != nil {
		a.logger.Warn("historical weather lookup failed, continuing without context",
			"error", err, "location_id", event.LocationID)
		return domain.WeatherObservation{}, false
	}
	if len(candidates) == 0 {
		return domain.WeatherObservation{}, false
	}

	best, found := closest(candidates, event.Timestamp, a.maxAge)
	return best, found
}

// closest picks the observation minimizing |obs.ts - target|. On a tie the
// earlier observation wins, keeping alignment deterministic across replays.
func closest(candidates []domain.WeatherObservation, target time.Time, maxAge time.Duration) (domain.WeatherObservation, bool) {
	var best domain.WeatherObservation
	bestDiff := time.Duration(-1)

	for _, obs := range candidates {
		diff := absDuration(obs.Timestamp.Sub(target))
		if diff > maxAge {
			continue
		}
		switch {
		case bestDiff < 0 || diff < bestDiff:
			best, bestDiff = obs, diff
		case diff == bestDiff && obs.Timestamp.Before(best.Timestamp):
			best = obs
		}
	}
	return best, bestDiff >= 0
}

func newContext(obs domain.WeatherObservation, eventTime time.Time) *domain.WeatherContext {
	return &domain.WeatherContext{
		Observation:    obs,
		DataAgeMinutes: absDuration(eventTime.Sub(obs.Timestamp)).Minutes(),
	}
}

func withinTolerance(obsTime, eventTime time.Time, maxAge time.Duration) bool {
	return absDuration(obsTime.Sub(eventTime)) <= maxAge
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
