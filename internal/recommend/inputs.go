package recommend

// Inputs are the instantaneous weather and production readings one
// recommendation is evaluated against. Callers fill every field; use
// NeutralInputs as the base when a source has gaps.
type Inputs struct {
	SiteID                string
	RainfallLast24h       float64 // inches
	RainProbabilityNext6h float64 // 0-100
	TemperatureAmbient    float64 // °F
	HumidityRelative      float64 // 0-100
	CurrentEfficiency     float64 // ratio, 1.0 = baseline
	SensorDataQuality     float64 // [0,1]

	// MoistureLevel is the measured material moisture when a sensor is
	// present; nil falls back to the configured baseline.
	MoistureLevel *float64

	LineSpeed    float64 // units/hour, informational
	ProductType  string
	MachineClass string
}

// NeutralInputs returns inputs at operating defaults: dry, 75°F, 50%
// humidity, full efficiency, trusted sensors. Evaluating these yields the
// no-adjustment recommendation.
func NeutralInputs(siteID string) Inputs {
	return Inputs{
		SiteID:             siteID,
		TemperatureAmbient: 75,
		HumidityRelative:   50,
		CurrentEfficiency:  1.0,
		SensorDataQuality:  1.0,
	}
}

// derived holds the per-rule impact assessments computed once before the rule
// fold runs.
type derived struct {
	moisture    moistureImpact
	temperature temperatureAdjustment
	efficiency  efficiencyDegradation
	safety      safetyAssessment
}

type moistureImpact struct {
	adjustedMoisture float64
	deviation        float64 // adjusted - baseline; positive means excess
}

type temperatureAdjustment struct {
	hotExcess   float64 // degrees above the hot threshold
	coldDeficit float64 // degrees below the cold threshold
	freeze      bool
	extremeHeat bool
}

type efficiencyDegradation struct {
	loss float64 // 1 - current efficiency
}

type safetyAssessment struct {
	score    float64
	critical bool
	warning  bool
}

func deriveImpacts(in Inputs, p Params) derived {
	return derived{
		moisture:    deriveMoisture(in, p),
		temperature: deriveTemperature(in, p),
		efficiency:  efficiencyDegradation{loss: 1 - in.CurrentEfficiency},
		safety:      deriveSafety(in, p),
	}
}

func deriveMoisture(in Inputs, p Params) moistureImpact {
	current := p.BaseMoisturePct
	if in.MoistureLevel != nil {
		current = *in.MoistureLevel
	}
	rainfallFactor := in.RainfallLast24h * p.RainfallMoistureGain
	if rainfallFactor > p.RainfallMoistureCap {
		rainfallFactor = p.RainfallMoistureCap
	}
	humidityFactor := (in.HumidityRelative - 50) / 100

	adjusted := current + rainfallFactor + humidityFactor
	return moistureImpact{
		adjustedMoisture: adjusted,
		deviation:        adjusted - p.BaseMoisturePct,
	}
}

func deriveTemperature(in Inputs, p Params) temperatureAdjustment {
	t := in.TemperatureAmbient
	adj := temperatureAdjustment{
		freeze:      t < p.FreezeHoldF,
		extremeHeat: t > p.HeatHoldF,
	}
	if t > p.HotThresholdF {
		adj.hotExcess = t - p.HotThresholdF
	}
	if t < p.ColdThresholdF {
		adj.coldDeficit = p.ColdThresholdF - t
	}
	return adj
}

func deriveSafety(in Inputs, p Params) safetyAssessment {
	score := 1.0
	if in.RainfallLast24h > p.SafetyRainIn {
		score -= p.SafetyRainPenalty
	}
	if in.RainProbabilityNext6h > p.SafetyRainProbPct {
		score -= p.SafetyRainProbPenalty
	}
	if in.TemperatureAmbient < p.SafetyTempLowF || in.TemperatureAmbient > p.SafetyTempHighF {
		score -= p.SafetyTempPenalty
	}
	if in.HumidityRelative > p.SafetyHumidityPct {
		score -= p.SafetyHumidityPenalty
	}
	if score < 0 {
		score = 0
	}
	return safetyAssessment{
		score:    score,
		critical: score < p.SafetyCriticalScore,
		warning:  score < p.SafetyWarningScore,
	}
}
