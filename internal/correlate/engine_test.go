package correlate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-production-optimizer/internal/domain"
)

var baseTime = time.Date(2026, 7, 14, 12, 0, 0, 0, time.UTC)

// makePair builds an aligned pair with the given humidity and metrics; other
// weather fields get mild jitter from i so series are not degenerate.
func makePair(i int, humidity, cycleTime, efficiency, quality float64) domain.AlignedPair {
	return domain.AlignedPair{
		Weather: domain.WeatherObservation{
			LocationID:  "seguin_tx",
			Timestamp:   baseTime.Add(time.Duration(i) * time.Minute),
			Temperature: 80 + float64(i%7),
			Humidity:    humidity,
			Pressure:    29.9 + float64(i%5)*0.01,
			WindSpeed:   5 + float64(i%3),
		},
		Production: domain.ProductionEvent{
			EventID:    "evt",
			LocationID: "seguin_tx",
			Timestamp:  baseTime.Add(time.Duration(i) * time.Minute),
			CycleTime:  cycleTime,
			Status:     domain.StatusGain,
			Details: map[string]float64{
				"efficiency":    efficiency,
				"quality_score": quality,
				"energy_usage":  100 + float64(i%4)*3,
			},
		},
	}
}

func TestPearson(t *testing.T) {
	t.Run("perfect positive correlation", func(t *testing.T) {
		xs := []float64{1, 2, 3, 4, 5}
		ys := []float64{2, 4, 6, 8, 10}
		r, p, ok := pearson(xs, ys)
		require.True(t, ok)
		assert.InDelta(t, 1.0, r, 1e-12)
		assert.Equal(t, 0.0, p)
	})

	t.Run("strong linear with noise is significant", func(t *testing.T) {
		xs := []float64{40, 45, 50, 55, 60, 65, 70, 75, 80, 85, 90, 95}
		ys := make([]float64, len(xs))
		for i, x := range xs {
			ys[i] = 60 + 0.5*x + float64(i%3) // small deterministic noise
		}
		r, p, ok := pearson(xs, ys)
		require.True(t, ok)
		assert.Greater(t, r, 0.95)
		assert.Less(t, p, 0.05)
	})

	t.Run("zero variance has no correlation", func(t *testing.T) {
		xs := []float64{5, 5, 5, 5, 5}
		ys := []float64{1, 2, 3, 4, 5}
		_, _, ok := pearson(xs, ys)
		assert.False(t, ok)
	})

	t.Run("too few points", func(t *testing.T) {
		_, _, ok := pearson([]float64{1, 2}, []float64{3, 4})
		assert.False(t, ok)
	})
}

func TestFisherInterval(t *testing.T) {
	ci := fisherInterval(0.7, 50)
	assert.Less(t, ci[0], 0.7)
	assert.Greater(t, ci[1], 0.7)
	assert.Greater(t, ci[0], 0.0)
	assert.Less(t, ci[1], 1.0)

	degenerate := fisherInterval(1.0, 50)
	assert.Equal(t, [2]float64{1, 1}, degenerate)
}

func TestComputeCorrelations(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	t.Run("below minimum sample returns empty findings", func(t *testing.T) {
		pairs := make([]domain.AlignedPair, 0, 5)
		for i := 0; i < 5; i++ {
			pairs = append(pairs, makePair(i, 50+float64(i), 70+float64(i), 0.9, 90))
		}
		assert.Empty(t, engine.ComputeCorrelations(pairs))
	})

	t.Run("humidity drives cycle time", func(t *testing.T) {
		pairs := make([]domain.AlignedPair, 0, 30)
		for i := 0; i < 30; i++ {
			humidity := 40 + float64(i)*1.5
			// Cycle time rises with humidity; quality falls.
			pairs = append(pairs, makePair(i, humidity, 60+humidity*0.8, 0.95-float64(i%5)*0.01, 95-humidity*0.1))
		}

		findings := engine.ComputeCorrelations(pairs)
		f, ok := findings[PairKey{Factor: FactorHumidity, Metric: MetricCycleTime}]
		require.True(t, ok)

		assert.Greater(t, f.Coefficient, 0.9)
		assert.Equal(t, "significant", f.Significance)
		assert.True(t, f.Significant())
		assert.Equal(t, 30, f.SampleSize)
		assert.GreaterOrEqual(t, f.Coefficient, f.ConfidenceInterval[0])
		assert.LessOrEqual(t, f.Coefficient, f.ConfidenceInterval[1])
		assert.True(t, f.PValue >= 0 && f.PValue <= 1)
	})

	t.Run("constant metric yields no finding for that pair", func(t *testing.T) {
		pairs := make([]domain.AlignedPair, 0, 15)
		for i := 0; i < 15; i++ {
			pairs = append(pairs, makePair(i, 40+float64(i)*2, 75, 0.9, 90))
		}
		findings := engine.ComputeCorrelations(pairs)
		_, ok := findings[PairKey{Factor: FactorHumidity, Metric: MetricCycleTime}]
		assert.False(t, ok, "constant cycle_time must not produce a finding")
	})

	t.Run("coefficients stay in range", func(t *testing.T) {
		pairs := make([]domain.AlignedPair, 0, 20)
		for i := 0; i < 20; i++ {
			pairs = append(pairs, makePair(i, 40+float64(i)*2, 60+float64(i), 0.9-float64(i)*0.01, 90-float64(i)*0.5))
		}
		for _, f := range engine.ComputeCorrelations(pairs) {
			assert.False(t, math.IsNaN(f.Coefficient))
			assert.GreaterOrEqual(t, f.Coefficient, -1.0)
			assert.LessOrEqual(t, f.Coefficient, 1.0)
			assert.GreaterOrEqual(t, f.PValue, 0.0)
			assert.LessOrEqual(t, f.PValue, 1.0)
		}
	})
}

func TestAnalyzeBands(t *testing.T) {
	// Optimal band should be the 45-65 humidity range, where efficiency and
	// quality peak and cycle time bottoms out.
	var pairs []domain.AlignedPair
	add := func(humidity, cycle, eff, quality float64, count int) {
		for i := 0; i < count; i++ {
			pairs = append(pairs, makePair(len(pairs), humidity+float64(i), cycle, eff, quality))
		}
	}
	add(30, 85, 0.80, 82, 5)  // Low
	add(50, 70, 0.95, 94, 5)  // Optimal
	add(70, 80, 0.88, 88, 5)  // High
	add(90, 95, 0.75, 78, 5)  // Extreme

	analysis := AnalyzeBands(FactorHumidity, pairs)
	require.NotNil(t, analysis)
	require.Len(t, analysis.Bands, 4)
	require.NotNil(t, analysis.OptimalBand)

	assert.Equal(t, "Optimal", analysis.OptimalBand.Band.Name)
	assert.Equal(t, 5, analysis.OptimalBand.SampleSize)
	assert.InDelta(t, 0.95, analysis.OptimalBand.Metrics[MetricEfficiency].Mean, 1e-9)

	t.Run("unbanded factor returns nil", func(t *testing.T) {
		assert.Nil(t, AnalyzeBands(FactorWindSpeed, pairs))
	})
}

func TestTemperatureEfficiencyImpact(t *testing.T) {
	assert.Equal(t, 0.0, TemperatureEfficiencyImpact(75))
	assert.Equal(t, 0.0, TemperatureEfficiencyImpact(85))
	assert.InDelta(t, 0.075, TemperatureEfficiencyImpact(90), 1e-9)
	assert.InDelta(t, 0.15, TemperatureEfficiencyImpact(95), 1e-9)
	assert.InDelta(t, 0.30, TemperatureEfficiencyImpact(100), 1e-9)
}

func TestHumidityPreMixFactor(t *testing.T) {
	assert.Equal(t, 1.0, HumidityPreMixFactor(50, 1.4))
	assert.InDelta(t, 1.03, HumidityPreMixFactor(75, 1.4), 1e-9)
	assert.Equal(t, 1.4, HumidityPreMixFactor(300, 1.4))
}
