package recommend

import (
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-production-optimizer/internal/domain"
)

var testTime = time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)

func newTestRecommender(t *testing.T) *Recommender {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(testTime))
	t.Cleanup(func() { domain.SetClock(nil) })
	return New(DefaultParams(), slog.Default())
}

func TestEvaluate_NeutralInputs(t *testing.T) {
	r := newTestRecommender(t)

	rec := r.Evaluate(NeutralInputs("seguin_tx"))

	assert.Equal(t, 150.0, rec.DryerTempF)
	assert.Zero(t, rec.PreMixTimeDelta)
	assert.Equal(t, domain.Continue, rec.HoldRelease)
	assert.Equal(t, domain.AlertLow, rec.AlertLevel)
	require.Len(t, rec.Rationale, 1)
	assert.Equal(t, "Standard operating parameters - no weather adjustments needed.", rec.Rationale[0])
	assert.Equal(t, testTime, rec.Timestamp)
}

func TestEvaluate_HeavyRainfallHolds(t *testing.T) {
	r := newTestRecommender(t)

	in := NeutralInputs("seguin_tx")
	in.RainfallLast24h = 2.0

	rec := r.Evaluate(in)

	assert.Equal(t, domain.Hold, rec.HoldRelease)
	assert.GreaterOrEqual(t, int(rec.AlertLevel), int(domain.AlertHigh))
	assert.Contains(t, rec.RationaleText(), "Heavy rainfall")
}

func TestEvaluate_FreezingHolds(t *testing.T) {
	r := newTestRecommender(t)

	in := NeutralInputs("seguin_tx")
	in.TemperatureAmbient = 30

	rec := r.Evaluate(in)

	assert.Equal(t, domain.Hold, rec.HoldRelease)
	assert.GreaterOrEqual(t, int(rec.AlertLevel), int(domain.AlertHigh))
	assert.Contains(t, rec.RationaleText(), "FREEZING CONDITIONS")
	// Cold compensation also ran: deficit of 30°F below 60 caps at +30.
	assert.Equal(t, 180.0, rec.DryerTempF)
}

func TestEvaluate_ExtremeHeatHolds(t *testing.T) {
	r := newTestRecommender(t)

	in := NeutralInputs("seguin_tx")
	in.TemperatureAmbient = 107

	rec := r.Evaluate(in)

	assert.Equal(t, domain.Hold, rec.HoldRelease)
	assert.Contains(t, rec.RationaleText(), "EXTREME HEAT")
}

func TestEvaluate_HotWeatherCompensation(t *testing.T) {
	r := newTestRecommender(t)

	in := NeutralInputs("seguin_tx")
	in.TemperatureAmbient = 95

	rec := r.Evaluate(in)

	// 10°F above the hot threshold reduces the dryer by 8°F.
	assert.InDelta(t, 142.0, rec.DryerTempF, 1e-9)
	assert.InDelta(t, 90.0, rec.PreMixTimeDelta, 1e-9)
	assert.Equal(t, domain.Continue, rec.HoldRelease)
	assert.Contains(t, rec.RationaleText(), "Hot weather")
}

func TestEvaluate_MoistureExcess(t *testing.T) {
	r := newTestRecommender(t)

	in := NeutralInputs("seguin_tx")
	in.RainfallLast24h = 1.2 // below the hold threshold, adds 3.0 moisture

	rec := r.Evaluate(in)

	// deviation = 3.0: dryer +15°F, pre-mix +90s.
	assert.InDelta(t, 165.0, rec.DryerTempF, 1e-9)
	assert.InDelta(t, 90.0, rec.PreMixTimeDelta, 1e-9)
	assert.Equal(t, domain.AlertMedium, rec.AlertLevel)
	assert.Contains(t, rec.RationaleText(), "Excess moisture")
}

func TestEvaluate_MildMoistureAppliesSmallBump(t *testing.T) {
	r := newTestRecommender(t)

	in := NeutralInputs("seguin_tx")
	in.RainfallLast24h = 0.6 // adds 1.5 moisture, mild band

	rec := r.Evaluate(in)

	assert.InDelta(t, 160.0, rec.DryerTempF, 1e-9)
	assert.InDelta(t, 60.0, rec.PreMixTimeDelta, 1e-9)
	assert.NotContains(t, rec.RationaleText(), "Excess moisture")
}

func TestEvaluate_RainProbabilityAccelerates(t *testing.T) {
	r := newTestRecommender(t)

	in := NeutralInputs("seguin_tx")
	in.RainProbabilityNext6h = 85

	rec := r.Evaluate(in)

	assert.Contains(t, rec.RationaleText(), "accelerating production")
	assert.Less(t, rec.PreMixTimeDelta, 0.0)
}

func TestEvaluate_EfficiencyDegradation(t *testing.T) {
	r := newTestRecommender(t)

	t.Run("minor", func(t *testing.T) {
		in := NeutralInputs("seguin_tx")
		in.CurrentEfficiency = 0.90

		rec := r.Evaluate(in)
		assert.InDelta(t, 158.0, rec.DryerTempF, 1e-9)
		assert.Contains(t, rec.RationaleText(), "Efficiency decline detected")
	})

	t.Run("critical", func(t *testing.T) {
		in := NeutralInputs("seguin_tx")
		in.CurrentEfficiency = 0.70

		rec := r.Evaluate(in)
		assert.InDelta(t, 165.0, rec.DryerTempF, 1e-9)
		assert.GreaterOrEqual(t, int(rec.AlertLevel), int(domain.AlertHigh))
		assert.Contains(t, rec.RationaleText(), "Critical efficiency loss")
	})
}

func TestEvaluate_CriticalSafetyHaltsEverything(t *testing.T) {
	r := newTestRecommender(t)

	in := NeutralInputs("seguin_tx")
	in.RainfallLast24h = 2.5
	in.RainProbabilityNext6h = 90
	in.TemperatureAmbient = 33
	in.HumidityRelative = 95

	rec := r.Evaluate(in)

	assert.Equal(t, domain.Hold, rec.HoldRelease)
	assert.Equal(t, domain.AlertCritical, rec.AlertLevel)
	assert.Contains(t, rec.RationaleText(), "CRITICAL SAFETY CONDITIONS")
	assert.InDelta(t, 0.95, rec.Confidence, 1e-9)
}

func TestEvaluate_OutputBounds(t *testing.T) {
	r := newTestRecommender(t)

	// Stack every dryer-raising condition: cold, wet, inefficient.
	in := NeutralInputs("seguin_tx")
	in.TemperatureAmbient = 40
	in.MoistureLevel = ptr(20.0)
	in.CurrentEfficiency = 0.5
	in.HumidityRelative = 88

	rec := r.Evaluate(in)

	assert.LessOrEqual(t, rec.DryerTempF, 200.0)
	assert.GreaterOrEqual(t, rec.DryerTempF, 100.0)
	assert.LessOrEqual(t, rec.PreMixTimeDelta, 600.0)
	assert.GreaterOrEqual(t, rec.PreMixTimeDelta, -300.0)
}

func TestEvaluate_ConfidenceScoring(t *testing.T) {
	r := newTestRecommender(t)

	t.Run("base with full rationale", func(t *testing.T) {
		in := NeutralInputs("seguin_tx")
		in.TemperatureAmbient = 95

		rec := r.Evaluate(in)
		assert.InDelta(t, 0.7, rec.Confidence, 1e-9,
			"base 0.8 minus short-rationale penalty")
	})

	t.Run("degraded sensors", func(t *testing.T) {
		in := NeutralInputs("seguin_tx")
		in.TemperatureAmbient = 95
		in.SensorDataQuality = 0.5

		rec := r.Evaluate(in)
		assert.InDelta(t, 0.5, rec.Confidence, 1e-9)
	})

	t.Run("never below floor", func(t *testing.T) {
		in := NeutralInputs("seguin_tx")
		in.SensorDataQuality = 0.1

		rec := r.Evaluate(in)
		assert.GreaterOrEqual(t, rec.Confidence, 0.1)
		assert.LessOrEqual(t, rec.Confidence, 1.0)
	})
}

func TestEvaluate_PanicFallsBack(t *testing.T) {
	r := newTestRecommender(t)
	r.rules = append(r.rules, func(domain.Recommendation, derived, Inputs, Params) domain.Recommendation {
		panic("rule blew up")
	})

	rec := r.Evaluate(NeutralInputs("seguin_tx"))

	assert.Equal(t, 150.0, rec.DryerTempF)
	assert.Equal(t, domain.AlertMedium, rec.AlertLevel)
	assert.InDelta(t, 0.1, rec.Confidence, 1e-9)
	assert.Contains(t, rec.RationaleText(), "evaluation error")
	assert.Contains(t, rec.RationaleText(), "rule blew up")
}

func TestEvaluate_AlertNeverDowngrades(t *testing.T) {
	r := newTestRecommender(t)

	// Heavy rainfall raises to HIGH; the subsequent mild efficiency rule
	// must not pull it back to MEDIUM.
	in := NeutralInputs("seguin_tx")
	in.RainfallLast24h = 1.8
	in.CurrentEfficiency = 0.90

	rec := r.Evaluate(in)
	assert.GreaterOrEqual(t, int(rec.AlertLevel), int(domain.AlertHigh))
}

func TestEvaluate_HoldImpliesHighAlert(t *testing.T) {
	r := newTestRecommender(t)

	in := NeutralInputs("seguin_tx")
	in.TemperatureAmbient = 20

	rec := r.Evaluate(in)
	require.Equal(t, domain.Hold, rec.HoldRelease)
	assert.GreaterOrEqual(t, int(rec.AlertLevel), int(domain.AlertHigh))
}

func ptr(v float64) *float64 { return &v }
