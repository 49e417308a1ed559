// Package correlate maintains rolling statistical correlations between
// weather factors and production metrics per location, discovers optimal
// operating bands, and detects weather fronts from pressure trends.
package correlate

import (
	"time"

	"github.com/couchcryptid/weather-production-optimizer/internal/domain"
)

// Weather factor and production metric names used in finding keys. These
// match the JSON field names on the wire so findings can be joined against
// raw data downstream.
const (
	FactorTemperature   = "temperature"
	FactorHumidity      = "humidity"
	FactorPressure      = "pressure"
	FactorWindSpeed     = "wind_speed"
	FactorPrecipitation = "precipitation"

	MetricCycleTime  = "cycle_time"
	MetricEfficiency = "efficiency"
	MetricQuality    = "quality_score"
	MetricEnergy     = "energy_usage"
	MetricStatusGain = "status_gain"
)

var (
	factors = []string{FactorTemperature, FactorHumidity, FactorPressure, FactorWindSpeed, FactorPrecipitation}
	metrics = []string{MetricCycleTime, MetricEfficiency, MetricQuality, MetricEnergy, MetricStatusGain}
)

// PairKey identifies one (weather factor, production metric) finding.
type PairKey struct {
	Factor string
	Metric string
}

// significanceAlpha is the two-tailed threshold below which a correlation is
// reported as significant.
const significanceAlpha = 0.05

// Config carries the engine's tunables. The defaults reproduce the values the
// pilot facility was validated against; none of them are universal constants.
type Config struct {
	MinSamples         int           // below this, no findings are produced
	WindowDuration     time.Duration // rolling window span
	WindowMaxPairs     int           // rolling window size cap
	FrontThresholdInHg float64       // |dP/dt| in inHg/hour that flags a front
}

// DefaultConfig returns the engine defaults: 10-sample minimum, 1-hour /
// 1000-pair window, 0.1 inHg/h front threshold.
func DefaultConfig() Config {
	return Config{
		MinSamples:         10,
		WindowDuration:     time.Hour,
		WindowMaxPairs:     1000,
		FrontThresholdInHg: 0.1,
	}
}

// Engine computes correlation findings from aligned pairs. It is stateless;
// rolling state lives in Store.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = DefaultConfig().MinSamples
	}
	return &Engine{cfg: cfg}
}

// ComputeCorrelations builds the full finding set for one location's aligned
// pairs. Fewer than MinSamples pairs yields an empty map: a correlation is
// never fabricated from too few points. Factor/metric combinations with zero
// variance are simply absent from the result.
func (e *Engine) ComputeCorrelations(pairs []domain.AlignedPair) map[PairKey]domain.CorrelationFinding {
	findings := make(map[PairKey]domain.CorrelationFinding)
	if len(pairs) < e.cfg.MinSamples {
		return findings
	}

	factorSeries := make(map[string][]float64, len(factors))
	metricSeries := make(map[string][]float64, len(metrics))
	for _, pair := range pairs {
		factorSeries[FactorTemperature] = append(factorSeries[FactorTemperature], pair.Weather.Temperature)
		factorSeries[FactorHumidity] = append(factorSeries[FactorHumidity], pair.Weather.Humidity)
		factorSeries[FactorPressure] = append(factorSeries[FactorPressure], pair.Weather.Pressure)
		factorSeries[FactorWindSpeed] = append(factorSeries[FactorWindSpeed], pair.Weather.WindSpeed)
		factorSeries[FactorPrecipitation] = append(factorSeries[FactorPrecipitation], pair.Weather.Precipitation)

		m := pair.Production.Metrics()
		metricSeries[MetricCycleTime] = append(metricSeries[MetricCycleTime], m.CycleTime)
		metricSeries[MetricEfficiency] = append(metricSeries[MetricEfficiency], m.Efficiency)
		metricSeries[MetricQuality] = append(metricSeries[MetricQuality], m.QualityScore)
		metricSeries[MetricEnergy] = append(metricSeries[MetricEnergy], m.EnergyUsage)
		metricSeries[MetricStatusGain] = append(metricSeries[MetricStatusGain], m.StatusGain)
	}

	for _, factor := range factors {
		for _, metric := range metrics {
			r, p, ok := pearson(factorSeries[factor], metricSeries[metric])
			if !ok {
				continue
			}
			significance := "not_significant"
			if p < significanceAlpha {
				significance = "significant"
			}
			findings[PairKey{Factor: factor, Metric: metric}] = domain.CorrelationFinding{
				WeatherFactor:      factor,
				ProductionMetric:   metric,
				Coefficient:        r,
				PValue:             p,
				Significance:       significance,
				SampleSize:         len(pairs),
				ConfidenceInterval: fisherInterval(r, len(pairs)),
			}
		}
	}
	return findings
}
