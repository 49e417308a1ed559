package correlate

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/weather-production-optimizer/internal/domain"
)

// Band is a named value range for a weather factor. Upper bounds are
// exclusive except for the last band, which is open-ended.
type Band struct {
	Name string
	Min  float64
	Max  float64
}

// factorBands are the operating bands the pilot facility reports against.
var factorBands = map[string][]Band{
	FactorHumidity: {
		{Name: "Low", Min: math.Inf(-1), Max: 45},
		{Name: "Optimal", Min: 45, Max: 65},
		{Name: "High", Min: 65, Max: 85},
		{Name: "Extreme", Min: 85, Max: math.Inf(1)},
	},
	FactorTemperature: {
		{Name: "Cool", Min: math.Inf(-1), Max: 75},
		{Name: "Optimal", Min: 75, Max: 85},
		{Name: "Hot", Min: 85, Max: 95},
		{Name: "Extreme", Min: 95, Max: math.Inf(1)},
	},
	FactorPressure: {
		{Name: "Low", Min: math.Inf(-1), Max: 29.5},
		{Name: "Normal", Min: 29.5, Max: 30.2},
		{Name: "High", Min: 30.2, Max: math.Inf(1)},
	},
}

// MetricSummary is the mean/std of one production metric within a band.
type MetricSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
}

// BandStats summarizes production performance within one factor band.
type BandStats struct {
	Band       Band                     `json:"band"`
	SampleSize int                      `json:"sample_size"`
	Metrics    map[string]MetricSummary `json:"metrics"`

	// CompositeScore weighs efficiency and quality against normalized cycle
	// time; the band with the highest score is the recommended operating range.
	CompositeScore float64 `json:"composite_score"`
}

// BandAnalysis is the per-band breakdown for one weather factor, with the
// winning band identified.
type BandAnalysis struct {
	Factor      string      `json:"factor"`
	Bands       []BandStats `json:"bands"`
	OptimalBand *BandStats  `json:"optimal_band,omitempty"`
}

// AnalyzeBands buckets aligned pairs into the factor's bands and summarizes
// each production metric per band. Returns nil for factors without a band
// table (wind, precipitation).
func AnalyzeBands(factor string, pairs []domain.AlignedPair) *BandAnalysis {
	bands, ok := factorBands[factor]
	if !ok {
		return nil
	}

	buckets := make([][]domain.AlignedPair, len(bands))
	for _, pair := range pairs {
		v := factorValue(factor, pair.Weather)
		for i, b := range bands {
			if v >= b.Min && (v < b.Max || math.IsInf(b.Max, 1)) {
				buckets[i] = append(buckets[i], pair)
				break
			}
		}
	}

	maxCycle := maxCycleTime(pairs)

	analysis := &BandAnalysis{Factor: factor}
	bestIdx := -1
	for i, b := range bands {
		if len(buckets[i]) == 0 {
			continue
		}
		bs := summarizeBand(b, buckets[i], maxCycle)
		analysis.Bands = append(analysis.Bands, bs)
		if bestIdx < 0 || bs.CompositeScore > analysis.Bands[bestIdx].CompositeScore {
			bestIdx = len(analysis.Bands) - 1
		}
	}
	if bestIdx >= 0 {
		analysis.OptimalBand = &analysis.Bands[bestIdx]
	}
	return analysis
}

func summarizeBand(band Band, pairs []domain.AlignedPair, maxCycle float64) BandStats {
	series := map[string][]float64{}
	for _, pair := range pairs {
		m := pair.Production.Metrics()
		series[MetricCycleTime] = append(series[MetricCycleTime], m.CycleTime)
		series[MetricEfficiency] = append(series[MetricEfficiency], m.Efficiency)
		series[MetricQuality] = append(series[MetricQuality], m.QualityScore)
		series[MetricEnergy] = append(series[MetricEnergy], m.EnergyUsage)
	}

	bs := BandStats{Band: band, SampleSize: len(pairs), Metrics: map[string]MetricSummary{}}
	for name, values := range series {
		mean := stat.Mean(values, nil)
		var sd float64
		if len(values) > 1 {
			sd = stat.StdDev(values, nil)
		}
		bs.Metrics[name] = MetricSummary{Mean: mean, StdDev: sd}
	}

	normCycle := 0.0
	if maxCycle > 0 {
		normCycle = bs.Metrics[MetricCycleTime].Mean / maxCycle
	}
	bs.CompositeScore = 0.4*bs.Metrics[MetricEfficiency].Mean +
		0.4*bs.Metrics[MetricQuality].Mean -
		0.2*normCycle
	return bs
}

func factorValue(factor string, obs domain.WeatherObservation) float64 {
	switch factor {
	case FactorTemperature:
		return obs.Temperature
	case FactorHumidity:
		return obs.Humidity
	case FactorPressure:
		return obs.Pressure
	case FactorWindSpeed:
		return obs.WindSpeed
	case FactorPrecipitation:
		return obs.Precipitation
	default:
		return 0
	}
}

func maxCycleTime(pairs []domain.AlignedPair) float64 {
	max := 0.0
	for _, p := range pairs {
		if p.Production.CycleTime > max {
			max = p.Production.CycleTime
		}
	}
	return max
}
