package recommend

// Params collects every rule coefficient and threshold. The defaults come
// from the pilot facility's historical tuning and carry no empirical
// derivation beyond that; treat them as site configuration pending domain
// validation, not universal constants. Each field can be overridden through
// its RULE_-prefixed environment variable.
type Params struct {
	// Moisture rule.
	BaseMoisturePct       float64 `envconfig:"MOISTURE_BASE_PCT"`       // baseline material moisture content
	RainfallMoistureGain  float64 `envconfig:"RAINFALL_MOISTURE_GAIN"`  // moisture % added per inch of 24h rainfall
	RainfallMoistureCap   float64 `envconfig:"RAINFALL_MOISTURE_CAP"`   // cap on the rainfall contribution
	MoistureDeviationHigh float64 `envconfig:"MOISTURE_DEVIATION_HIGH"` // deviation above this escalates to MEDIUM
	MoistureDeviationLow  float64 `envconfig:"MOISTURE_DEVIATION_LOW"`  // deviation above this applies the small fixed bump
	MoistureTempGain      float64 `envconfig:"MOISTURE_TEMP_GAIN"`      // °F added per point of deviation
	MoistureTempCap       float64 `envconfig:"MOISTURE_TEMP_CAP"`       // cap on moisture-driven temperature increase
	MoisturePreMixGain    float64 `envconfig:"MOISTURE_PREMIX_GAIN"`    // seconds added per point of deviation
	MoistureTempSmall     float64 `envconfig:"MOISTURE_TEMP_SMALL"`     // fixed °F bump for mild deviation
	MoisturePreMixSmall   float64 `envconfig:"MOISTURE_PREMIX_SMALL"`   // fixed seconds bump for mild deviation

	// Precipitation rule.
	HeavyRainfallHoldIn   float64 `envconfig:"HEAVY_RAINFALL_HOLD_IN"`   // 24h rainfall forcing a HOLD
	RainProbAcceleratePct float64 `envconfig:"RAIN_PROB_ACCELERATE_PCT"` // 6h rain probability triggering acceleration
	AcceleratePreMixCut   float64 `envconfig:"ACCELERATE_PREMIX_CUT"`    // seconds removed to beat the front

	// Temperature rule.
	OptimalTempF   float64 `envconfig:"OPTIMAL_TEMP_F"`
	HotThresholdF  float64 `envconfig:"HOT_THRESHOLD_F"`
	ColdThresholdF float64 `envconfig:"COLD_THRESHOLD_F"`
	HotTempGain    float64 `envconfig:"HOT_TEMP_GAIN"`    // dryer reduction per °F of excess
	HotTempCap     float64 `envconfig:"HOT_TEMP_CAP"`
	HotPreMixAdd   float64 `envconfig:"HOT_PREMIX_ADD"`   // extra mixing seconds in hot weather
	ColdTempGain   float64 `envconfig:"COLD_TEMP_GAIN"`   // dryer increase per °F of deficit
	ColdTempCap    float64 `envconfig:"COLD_TEMP_CAP"`
	FreezeHoldF    float64 `envconfig:"FREEZE_HOLD_F"`    // below this, HOLD regardless of other rules
	HeatHoldF      float64 `envconfig:"HEAT_HOLD_F"`      // above this, HOLD regardless of other rules

	// Efficiency rule.
	EfficiencyLossCritical float64 `envconfig:"EFFICIENCY_LOSS_CRITICAL"`
	EfficiencyLossMinor    float64 `envconfig:"EFFICIENCY_LOSS_MINOR"`

	// Safety rule penalties and thresholds.
	SafetyRainIn          float64 `envconfig:"SAFETY_RAIN_IN"`
	SafetyRainPenalty     float64 `envconfig:"SAFETY_RAIN_PENALTY"`
	SafetyRainProbPct     float64 `envconfig:"SAFETY_RAIN_PROB_PCT"`
	SafetyRainProbPenalty float64 `envconfig:"SAFETY_RAIN_PROB_PENALTY"`
	SafetyTempLowF        float64 `envconfig:"SAFETY_TEMP_LOW_F"`
	SafetyTempHighF       float64 `envconfig:"SAFETY_TEMP_HIGH_F"`
	SafetyTempPenalty     float64 `envconfig:"SAFETY_TEMP_PENALTY"`
	SafetyHumidityPct     float64 `envconfig:"SAFETY_HUMIDITY_PCT"`
	SafetyHumidityPenalty float64 `envconfig:"SAFETY_HUMIDITY_PENALTY"`
	SafetyCriticalScore   float64 `envconfig:"SAFETY_CRITICAL_SCORE"`    // below: HOLD + CRITICAL
	SafetyWarningScore    float64 `envconfig:"SAFETY_WARNING_SCORE"`     // below: HIGH

	// Confidence scoring.
	ConfidenceBase        float64 `envconfig:"CONFIDENCE_BASE"`
	SensorQualityFloor    float64 `envconfig:"SENSOR_QUALITY_FLOOR"`
	SensorQualityPenalty  float64 `envconfig:"SENSOR_QUALITY_PENALTY"`
	ShortRationaleLen     int     `envconfig:"SHORT_RATIONALE_LEN"`
	ShortRationalePenalty float64 `envconfig:"SHORT_RATIONALE_PENALTY"`
	CriticalConfidence    float64 `envconfig:"CRITICAL_CONFIDENCE"`
	ConfidenceMin         float64 `envconfig:"CONFIDENCE_MIN"`
	ConfidenceMax         float64 `envconfig:"CONFIDENCE_MAX"`

	// Output bounds.
	DefaultDryerTempF float64 `envconfig:"DEFAULT_DRYER_TEMP_F"`
	DryerTempMinF     float64 `envconfig:"DRYER_TEMP_MIN_F"`
	DryerTempMaxF     float64 `envconfig:"DRYER_TEMP_MAX_F"`
	PreMixDeltaMinSec float64 `envconfig:"PREMIX_DELTA_MIN_SEC"`
	PreMixDeltaMaxSec float64 `envconfig:"PREMIX_DELTA_MAX_SEC"`
}

// DefaultParams returns the pilot facility defaults.
func DefaultParams() Params {
	return Params{
		BaseMoisturePct:       8.0,
		RainfallMoistureGain:  2.5,
		RainfallMoistureCap:   10.0,
		MoistureDeviationHigh: 2.0,
		MoistureDeviationLow:  1.0,
		MoistureTempGain:      5,
		MoistureTempCap:       25,
		MoisturePreMixGain:    30,
		MoistureTempSmall:     10,
		MoisturePreMixSmall:   60,

		HeavyRainfallHoldIn:   1.5,
		RainProbAcceleratePct: 70,
		AcceleratePreMixCut:   120,

		OptimalTempF:   75,
		HotThresholdF:  85,
		ColdThresholdF: 60,
		HotTempGain:    0.8,
		HotTempCap:     20,
		HotPreMixAdd:   90,
		ColdTempGain:   1.2,
		ColdTempCap:    30,
		FreezeHoldF:    32,
		HeatHoldF:      105,

		EfficiencyLossCritical: 0.25,
		EfficiencyLossMinor:    0.05,

		SafetyRainIn:          2.0,
		SafetyRainPenalty:     0.3,
		SafetyRainProbPct:     80,
		SafetyRainProbPenalty: 0.2,
		SafetyTempLowF:        35,
		SafetyTempHighF:       100,
		SafetyTempPenalty:     0.4,
		SafetyHumidityPct:     90,
		SafetyHumidityPenalty: 0.1,
		SafetyCriticalScore:   0.3,
		SafetyWarningScore:    0.7,

		ConfidenceBase:        0.8,
		SensorQualityFloor:    0.8,
		SensorQualityPenalty:  0.2,
		ShortRationaleLen:     50,
		ShortRationalePenalty: 0.1,
		CriticalConfidence:    0.95,
		ConfidenceMin:         0.1,
		ConfidenceMax:         1.0,

		DefaultDryerTempF: 150,
		DryerTempMinF:     100,
		DryerTempMaxF:     200,
		PreMixDeltaMinSec: -300,
		PreMixDeltaMaxSec: 600,
	}
}
