package correlate

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-production-optimizer/internal/domain"
)

// Snapshot is one fully-computed correlation state for a location. Snapshots
// are immutable once published; readers never see a half-recomputed window.
type Snapshot struct {
	Findings    map[PairKey]domain.CorrelationFinding
	Bands       map[string]*BandAnalysis
	FrontImpact FrontImpact
	SampleSize  int
	ComputedAt  time.Time
}

// Store holds the per-location rolling windows of aligned pairs and the last
// published snapshot for each. Writes to one location are serialized by a
// per-location mutex; reads go through an atomic snapshot pointer and never
// block on recomputation. Different locations are fully independent.
type Store struct {
	engine            *Engine
	cfg               Config
	recomputeInterval time.Duration

	mu        sync.RWMutex // guards the locations map, not the states
	locations map[string]*locationState
}

type locationState struct {
	mu           sync.Mutex // single writer per location
	pairs        []domain.AlignedPair
	observations []domain.WeatherObservation
	snapshot     atomic.Pointer[Snapshot]
}

// NewStore creates a rolling correlation store. recomputeInterval bounds how
// often a location's finding set is rebuilt; zero means rebuild on every
// eligible update.
func NewStore(engine *Engine, cfg Config, recomputeInterval time.Duration) *Store {
	return &Store{
		engine:            engine,
		cfg:               cfg,
		recomputeInterval: recomputeInterval,
		locations:         make(map[string]*locationState),
	}
}

// AddPair appends an aligned pair to its location's window, trimming the
// window to the configured span and size cap.
func (s *Store) AddPair(pair domain.AlignedPair) {
	ls := s.state(pair.Production.LocationID)
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.pairs = append(ls.pairs, pair)
	ls.pairs = trimPairs(ls.pairs, s.cfg.WindowDuration, s.cfg.WindowMaxPairs)
}

// AddObservation records a weather reading for front detection. Observations
// are kept for the window duration only.
func (s *Store) AddObservation(obs domain.WeatherObservation) {
	ls := s.state(obs.LocationID)
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.observations = append(ls.observations, obs)
	cutoff := obs.Timestamp.Add(-s.cfg.WindowDuration)
	for len(ls.observations) > 0 && ls.observations[0].Timestamp.Before(cutoff) {
		ls.observations = ls.observations[1:]
	}
}

// Snapshot returns the last fully-computed state for the location, or nil if
// none has been computed yet. Never blocks on a concurrent recompute.
func (s *Store) Snapshot(locationID string) *Snapshot {
	s.mu.RLock()
	ls, ok := s.locations[locationID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return ls.snapshot.Load()
}

// MaybeRecompute rebuilds the location's finding set if the recompute
// interval has elapsed (or no snapshot exists). The rebuild is a full replace
// from the current window: incremental updates would accumulate
// floating-point drift. Returns true when a new snapshot was published.
func (s *Store) MaybeRecompute(locationID string) bool {
	ls := s.state(locationID)
	ls.mu.Lock()
	defer ls.mu.Unlock()

	now := domain.Now()
	if prev := ls.snapshot.Load(); prev != nil && s.recomputeInterval > 0 &&
		now.Sub(prev.ComputedAt) < s.recomputeInterval {
		return false
	}

	snap := &Snapshot{
		Findings:   s.engine.ComputeCorrelations(ls.pairs),
		Bands:      make(map[string]*BandAnalysis),
		SampleSize: len(ls.pairs),
		ComputedAt: now,
	}
	if len(ls.pairs) >= s.cfg.MinSamples {
		for _, factor := range []string{FactorHumidity, FactorTemperature, FactorPressure} {
			if ba := AnalyzeBands(factor, ls.pairs); ba != nil {
				snap.Bands[factor] = ba
			}
		}
		fronts := DetectFronts(ls.observations, s.cfg.FrontThresholdInHg)
		snap.FrontImpact = AssessFrontImpact(ls.pairs, fronts, s.cfg.WindowDuration)
	}

	ls.snapshot.Store(snap)
	return true
}

// PairCount reports how many aligned pairs the location's window holds.
func (s *Store) PairCount(locationID string) int {
	ls := s.state(locationID)
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return len(ls.pairs)
}

// PressureTrend returns the pressure change rate (inHg/hour) between the two
// most recent observations for the location, or 0 when fewer than two exist.
func (s *Store) PressureTrend(locationID string) float64 {
	ls := s.state(locationID)
	ls.mu.Lock()
	defer ls.mu.Unlock()

	n := len(ls.observations)
	if n < 2 {
		return 0
	}
	prev, cur := ls.observations[n-2], ls.observations[n-1]
	dt := cur.Timestamp.Sub(prev.Timestamp)
	if dt < time.Minute {
		return 0
	}
	return (cur.Pressure - prev.Pressure) / dt.Hours()
}

func (s *Store) state(locationID string) *locationState {
	s.mu.RLock()
	ls, ok := s.locations[locationID]
	s.mu.RUnlock()
	if ok {
		return ls
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ls, ok = s.locations[locationID]; ok {
		return ls
	}
	ls = &locationState{}
	s.locations[locationID] = ls
	return ls
}

// trimPairs drops pairs older than span before the newest pair, then enforces
// the size cap by dropping from the front (oldest arrivals first).
func trimPairs(pairs []domain.AlignedPair, span time.Duration, maxPairs int) []domain.AlignedPair {
	if len(pairs) == 0 {
		return pairs
	}

	newest := pairs[0].Production.Timestamp
	for _, p := range pairs[1:] {
		if p.Production.Timestamp.After(newest) {
			newest = p.Production.Timestamp
		}
	}
	cutoff := newest.Add(-span)

	kept := pairs[:0]
	for _, p := range pairs {
		if !p.Production.Timestamp.Before(cutoff) {
			kept = append(kept, p)
		}
	}
	if maxPairs > 0 && len(kept) > maxPairs {
		kept = kept[len(kept)-maxPairs:]
	}
	return kept
}
