package correlate

// TemperatureEfficiencyImpact estimates the fractional efficiency loss from
// ambient temperature: none up to 85°F, 1.5% per degree from 85–95°F, then
// 15% plus 3% per degree above 95°F. Piecewise fit from the pilot facility's
// historical analysis; validate before reuse elsewhere.
func TemperatureEfficiencyImpact(tempF float64) float64 {
	switch {
	case tempF <= 85:
		return 0
	case tempF <= 95:
		return (tempF - 85) * 0.015
	default:
		return 0.15 + (tempF-95)*0.03
	}
}

// HumidityPreMixFactor returns the multiplicative pre-mix time adjustment for
// humidity above the 65% knee: +0.3% per percentage point, capped by maxFactor.
func HumidityPreMixFactor(humidity, maxFactor float64) float64 {
	factor := 1.0
	if humidity > 65 {
		factor += (humidity - 65) * 0.003
	}
	if factor > maxFactor {
		factor = maxFactor
	}
	return factor
}
