package domain

import "time"

// WeatherAlert notifies downstream consumers of a rapid pressure change
// consistent with an approaching weather front.
type WeatherAlert struct {
	ID           string     `json:"id"`
	LocationID   string     `json:"location_id"`
	Timestamp    time.Time  `json:"timestamp"`
	AlertType    string     `json:"alert_type"` // currently always "pressure_front"
	Severity     AlertLevel `json:"severity"`
	Message      string     `json:"message"`
	RateInHgHr   float64    `json:"pressure_rate_inhg_hr"`
	FallingFront bool       `json:"falling_front"`
}
