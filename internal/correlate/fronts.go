package correlate

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/weather-production-optimizer/internal/domain"
)

// FrontEvent marks a rapid barometric pressure change between two consecutive
// same-location readings: the signature of an approaching weather system.
type FrontEvent struct {
	LocationID string    `json:"location_id"`
	Timestamp  time.Time `json:"timestamp"` // time of the later reading
	RateInHgHr float64   `json:"rate_inhg_hr"`
	Falling    bool      `json:"falling"`
}

// DetectFronts scans observations (any order; sorted internally) for pressure
// change rates exceeding the threshold. Consecutive readings closer than a
// minute apart are skipped: the rate quotient explodes on near-zero intervals.
func DetectFronts(observations []domain.WeatherObservation, thresholdInHgHr float64) []FrontEvent {
	if len(observations) < 2 {
		return nil
	}
	sorted := make([]domain.WeatherObservation, len(observations))
	copy(sorted, observations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	var fronts []FrontEvent
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		dt := cur.Timestamp.Sub(prev.Timestamp)
		if dt < time.Minute {
			continue
		}
		rate := (cur.Pressure - prev.Pressure) / dt.Hours()
		if math.Abs(rate) > thresholdInHgHr {
			fronts = append(fronts, FrontEvent{
				LocationID: cur.LocationID,
				Timestamp:  cur.Timestamp,
				RateInHgHr: rate,
				Falling:    rate < 0,
			})
		}
	}
	return fronts
}

// FrontImpact compares production quality and cycle time during front windows
// against the non-front baseline.
type FrontImpact struct {
	FrontCount     int     `json:"front_count"`
	QualityDelta   float64 `json:"quality_delta"`    // front mean - baseline mean
	CycleTimeDelta float64 `json:"cycle_time_delta"` // front mean - baseline mean
}

// AssessFrontImpact splits aligned pairs into those observed within
// followWindow after a front passage and the rest, then reports the mean
// deltas. Zero deltas when either side is empty.
func AssessFrontImpact(pairs []domain.AlignedPair, fronts []FrontEvent, followWindow time.Duration) FrontImpact {
	impact := FrontImpact{FrontCount: len(fronts)}
	if len(fronts) == 0 || len(pairs) == 0 {
		return impact
	}

	var frontQuality, frontCycle, baseQuality, baseCycle []float64
	for _, pair := range pairs {
		m := pair.Production.Metrics()
		if afterAnyFront(pair.Production.Timestamp, fronts, followWindow) {
			frontQuality = append(frontQuality, m.QualityScore)
			frontCycle = append(frontCycle, m.CycleTime)
		} else {
			baseQuality = append(baseQuality, m.QualityScore)
			baseCycle = append(baseCycle, m.CycleTime)
		}
	}
	if len(frontQuality) == 0 || len(baseQuality) == 0 {
		return impact
	}

	impact.QualityDelta = stat.Mean(frontQuality, nil) - stat.Mean(baseQuality, nil)
	impact.CycleTimeDelta = stat.Mean(frontCycle, nil) - stat.Mean(baseCycle, nil)
	return impact
}

func afterAnyFront(t time.Time, fronts []FrontEvent, window time.Duration) bool {
	for _, f := range fronts {
		if !t.Before(f.Timestamp) && t.Sub(f.Timestamp) <= window {
			return true
		}
	}
	return false
}
