package recommend

import (
	"fmt"

	"github.com/couchcryptid/weather-production-optimizer/internal/domain"
)

// rule transforms a recommendation given the derived impacts and raw inputs.
// Rules run in fixed order; the safety rule runs last so it can override
// everything before it. A rule may increase numeric adjustments, raise the
// alert level, and append rationale; only the safety rule and the temperature
// extreme floor may force a HOLD.
type rule func(rec domain.Recommendation, d derived, in Inputs, p Params) domain.Recommendation

func orderedRules() []rule {
	return []rule{
		moistureRule,
		precipitationRule,
		temperatureRule,
		efficiencyRule,
		safetyRule,
	}
}

func moistureRule(rec domain.Recommendation, d derived, _ Inputs, p Params) domain.Recommendation {
	dev := d.moisture.deviation
	switch {
	case dev > p.MoistureDeviationHigh:
		tempIncrease := dev * p.MoistureTempGain
		if tempIncrease > p.MoistureTempCap {
			tempIncrease = p.MoistureTempCap
		}
		rec.DryerTempF += tempIncrease
		rec.PreMixTimeDelta += dev * p.MoisturePreMixGain
		rec.AlertLevel = rec.AlertLevel.Raise(domain.AlertMedium)
		rec.Rationale = append(rec.Rationale, fmt.Sprintf("Excess moisture (%.1f%%) detected.", dev))
	case dev > p.MoistureDeviationLow:
		rec.DryerTempF += p.MoistureTempSmall
		rec.PreMixTimeDelta += p.MoisturePreMixSmall
	}
	return rec
}

func precipitationRule(rec domain.Recommendation, _ derived, in Inputs, p Params) domain.Recommendation {
	if in.RainfallLast24h > p.HeavyRainfallHoldIn {
		rec.HoldRelease = domain.Hold
		rec.AlertLevel = rec.AlertLevel.Raise(domain.AlertHigh)
		rec.Rationale = append(rec.Rationale,
			fmt.Sprintf("Heavy rainfall (%.2f\") in last 24h. Production hold recommended.", in.RainfallLast24h))
		// Heavy rain supersedes the predictive logic for this event.
		return rec
	}
	if in.RainProbabilityNext6h > p.RainProbAcceleratePct {
		rec.PreMixTimeDelta -= p.AcceleratePreMixCut
		rec.AlertLevel = rec.AlertLevel.Raise(domain.AlertMedium)
		rec.Rationale = append(rec.Rationale,
			fmt.Sprintf("High rain probability (%.0f%%) - accelerating production.", in.RainProbabilityNext6h))
	}
	return rec
}

func temperatureRule(rec domain.Recommendation, d derived, in Inputs, p Params) domain.Recommendation {
	switch {
	case d.temperature.hotExcess > 0:
		reduction := d.temperature.hotExcess * p.HotTempGain
		if reduction > p.HotTempCap {
			reduction = p.HotTempCap
		}
		rec.DryerTempF -= reduction
		rec.PreMixTimeDelta += p.HotPreMixAdd
		rec.Rationale = append(rec.Rationale,
			fmt.Sprintf("Hot weather (%.1f°F) compensation.", in.TemperatureAmbient))
	case d.temperature.coldDeficit > 0:
		increase := d.temperature.coldDeficit * p.ColdTempGain
		if increase > p.ColdTempCap {
			increase = p.ColdTempCap
		}
		rec.DryerTempF += increase
		rec.Rationale = append(rec.Rationale,
			fmt.Sprintf("Cold weather (%.1f°F) compensation.", in.TemperatureAmbient))
	}

	// Hard floor beneath the safety rule: freezing or dangerous heat halts
	// production no matter what the other rules decided.
	if d.temperature.freeze {
		rec.HoldRelease = domain.Hold
		rec.AlertLevel = rec.AlertLevel.Raise(domain.AlertHigh)
		rec.Rationale = append(rec.Rationale, "FREEZING CONDITIONS - Production hold required for safety.")
	} else if d.temperature.extremeHeat {
		rec.HoldRelease = domain.Hold
		rec.AlertLevel = rec.AlertLevel.Raise(domain.AlertHigh)
		rec.Rationale = append(rec.Rationale, "EXTREME HEAT - Production hold required for safety.")
	}
	return rec
}

func efficiencyRule(rec domain.Recommendation, d derived, _ Inputs, p Params) domain.Recommendation {
	loss := d.efficiency.loss
	switch {
	case loss > p.EfficiencyLossCritical:
		rec.DryerTempF += 15
		rec.PreMixTimeDelta += 180
		rec.AlertLevel = rec.AlertLevel.Raise(domain.AlertHigh)
		rec.Rationale = append(rec.Rationale,
			fmt.Sprintf("Critical efficiency loss (%.1f%%) - aggressive parameter adjustment.", loss*100))
	case loss > p.EfficiencyLossMinor:
		rec.DryerTempF += 8
		rec.PreMixTimeDelta += 60
		rec.AlertLevel = rec.AlertLevel.Raise(domain.AlertMedium)
		rec.Rationale = append(rec.Rationale,
			fmt.Sprintf("Efficiency decline detected (%.1f%%) - parameter optimization applied.", loss*100))
	}
	return rec
}

func safetyRule(rec domain.Recommendation, d derived, _ Inputs, p Params) domain.Recommendation {
	switch {
	case d.safety.critical:
		rec.HoldRelease = domain.Hold
		rec.AlertLevel = domain.AlertCritical
		rec.Rationale = append(rec.Rationale, "CRITICAL SAFETY CONDITIONS - All production halted.")
		rec.Confidence = p.CriticalConfidence
	case d.safety.warning:
		rec.AlertLevel = rec.AlertLevel.Raise(domain.AlertHigh)
		rec.Rationale = append(rec.Rationale, "Safety warning conditions present - enhanced monitoring required.")
	}
	return rec
}

// validate is the final bounds and consistency pass, applied after every
// evaluation including the fallback path.
func validate(rec domain.Recommendation, p Params) domain.Recommendation {
	rec.DryerTempF = clampF(rec.DryerTempF, p.DryerTempMinF, p.DryerTempMaxF)
	rec.PreMixTimeDelta = clampF(rec.PreMixTimeDelta, p.PreMixDeltaMinSec, p.PreMixDeltaMaxSec)

	if rec.HoldRelease == domain.Hold {
		rec.AlertLevel = rec.AlertLevel.Raise(domain.AlertHigh)
	}
	if len(rec.Rationale) == 0 {
		rec.Rationale = []string{"Standard operating parameters - no weather adjustments needed."}
	}
	return rec
}

// scoreConfidence sets the final confidence. CRITICAL alerts pin it at the
// configured high-water mark: the safety decision itself is not uncertain.
func scoreConfidence(rec domain.Recommendation, in Inputs, p Params) domain.Recommendation {
	confidence := p.ConfidenceBase
	if in.SensorDataQuality < p.SensorQualityFloor {
		confidence -= p.SensorQualityPenalty
	}
	if rec.AlertLevel == domain.AlertCritical {
		confidence = p.CriticalConfidence
	}
	if len(rec.RationaleText()) < p.ShortRationaleLen {
		confidence -= p.ShortRationalePenalty
	}
	rec.Confidence = clampF(confidence, p.ConfidenceMin, p.ConfidenceMax)
	return rec
}

func clampF(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
