package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// weatherEnvelope is the wire format on the weather-data topic. The collector
// wraps each reading in a typed envelope so the topic can also carry forecast
// and alert payloads.
type weatherEnvelope struct {
	Type string         `json:"type"`
	Data weatherPayload `json:"data"`
}

// weatherPayload uses pointers for the measured fields so missing values can
// be distinguished from zero when scoring data quality.
type weatherPayload struct {
	Timestamp     string   `json:"timestamp"`
	LocationID    string   `json:"location_id"`
	Temperature   *float64 `json:"temperature"`
	Humidity      *float64 `json:"humidity"`
	Pressure      *float64 `json:"pressure"`
	WindSpeed     *float64 `json:"wind_speed"`
	Visibility    *float64 `json:"visibility"`
	Precipitation *float64 `json:"precipitation"`
	Condition     string   `json:"weather_condition"`
	QualityScore  *float64 `json:"quality_score"`
}

// ParseWeatherObservation deserializes a weather-data message. Envelope types
// other than weather_reading are reported via ErrNotWeatherReading so the
// caller can skip them without treating the message as malformed.
func ParseWeatherObservation(raw RawEvent) (WeatherObservation, error) {
	var env weatherEnvelope
	if err := json.Unmarshal(raw.Value, &env); err != nil {
		return WeatherObservation{}, fmt.Errorf("parse weather message: %w", err)
	}
	if env.Type != "" && env.Type != "weather_reading" {
		return WeatherObservation{}, fmt.Errorf("%w: %s", ErrNotWeatherReading, env.Type)
	}
	p := env.Data
	if p.LocationID == "" {
		// Some producers publish the reading unwrapped.
		if err := json.Unmarshal(raw.Value, &p); err != nil || p.LocationID == "" {
			return WeatherObservation{}, fmt.Errorf("weather message missing location_id")
		}
	}

	ts, err := parseTimestamp(p.Timestamp, raw.Timestamp)
	if err != nil {
		return WeatherObservation{}, err
	}

	obs := WeatherObservation{
		Timestamp:     ts,
		LocationID:    p.LocationID,
		Temperature:   deref(p.Temperature),
		Humidity:      deref(p.Humidity),
		Pressure:      deref(p.Pressure),
		WindSpeed:     deref(p.WindSpeed),
		Precipitation: deref(p.Precipitation),
		Condition:     p.Condition,
	}
	if p.QualityScore != nil {
		obs.QualityScore = clamp01(*p.QualityScore)
	} else {
		obs.QualityScore = scoreQuality(p)
	}
	return obs, nil
}

// ErrNotWeatherReading marks envelope types this processor does not consume.
var ErrNotWeatherReading = fmt.Errorf("not a weather reading")

// scoreQuality rates completeness: required fields carry 80% of the score,
// optional fields the remaining 20%.
func scoreQuality(p weatherPayload) float64 {
	required := []*float64{p.Temperature, p.Humidity, p.Pressure}
	optional := []*float64{p.WindSpeed, p.Visibility, p.Precipitation}

	var reqPresent, optPresent float64
	for _, f := range required {
		if f != nil {
			reqPresent++
		}
	}
	for _, f := range optional {
		if f != nil {
			optPresent++
		}
	}
	return reqPresent/float64(len(required))*0.8 + optPresent/float64(len(optional))*0.2
}

// ParseProductionEvent deserializes a production-events message. Events
// without an event_id get a deterministic one derived from their key fields,
// so replays of the same raw message produce the same ID.
func ParseProductionEvent(raw RawEvent) (ProductionEvent, error) {
	var wire struct {
		EventID      string             `json:"event_id"`
		Timestamp    string             `json:"timestamp"`
		LocationID   string             `json:"location_id"`
		MachineID    string             `json:"machine_id"`
		MachineClass string             `json:"machine_class_id"`
		Cycle        int                `json:"cycle"`
		PartID       string             `json:"part_id"`
		JobID        string             `json:"job_id"`
		OperatorID   string             `json:"operator_id"`
		Status       string             `json:"status"`
		CycleTime    float64            `json:"cycle_time"`
		Details      map[string]float64 `json:"details"`
		StopReasons  []string           `json:"stop_reason"`
	}
	if err := json.Unmarshal(raw.Value, &wire); err != nil {
		return ProductionEvent{}, fmt.Errorf("parse production event: %w", err)
	}
	if wire.LocationID == "" {
		return ProductionEvent{}, fmt.Errorf("production event missing location_id")
	}
	if wire.MachineID == "" {
		return ProductionEvent{}, fmt.Errorf("production event missing machine_id")
	}

	ts, err := parseTimestamp(wire.Timestamp, raw.Timestamp)
	if err != nil {
		return ProductionEvent{}, err
	}
	if wire.CycleTime < 0 {
		return ProductionEvent{}, fmt.Errorf("negative cycle_time %g", wire.CycleTime)
	}

	event := ProductionEvent{
		EventID:      wire.EventID,
		Timestamp:    ts,
		LocationID:   wire.LocationID,
		MachineID:    wire.MachineID,
		MachineClass: wire.MachineClass,
		CycleIndex:   wire.Cycle,
		PartID:       wire.PartID,
		JobID:        wire.JobID,
		OperatorID:   wire.OperatorID,
		Status:       normalizeStatus(wire.Status),
		CycleTime:    wire.CycleTime,
		Details:      wire.Details,
		StopReasons:  wire.StopReasons,
		RawPayload:   raw.Value,
	}
	if event.EventID == "" {
		event.EventID = generateEventID(event)
	}
	return event, nil
}

// normalizeStatus maps upstream spellings ("New Session", "Quality Issue") to
// the canonical constants; unknown statuses pass through untouched.
func normalizeStatus(s string) EventStatus {
	switch s {
	case "Gain":
		return StatusGain
	case "Loss":
		return StatusLoss
	case "New Session", "NewSession":
		return StatusNewSession
	case "Quality Issue", "QualityIssue":
		return StatusQualityIssue
	default:
		return EventStatus(s)
	}
}

func parseTimestamp(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		if fallback.IsZero() {
			return time.Time{}, fmt.Errorf("message has no timestamp")
		}
		return fallback, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// generateEventID produces a deterministic ID from the event's key fields,
// enabling idempotent inserts and replay safety downstream.
func generateEventID(e ProductionEvent) string {
	input := fmt.Sprintf("%s|%s|%d|%s|%g",
		e.LocationID, e.MachineID, e.CycleIndex, e.Timestamp.UTC().Format(time.RFC3339), e.CycleTime)
	hash := sha256.Sum256([]byte(input))
	return "prod-" + hex.EncodeToString(hash[:8])
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
